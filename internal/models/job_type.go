// -----------------------------------------------------------------------
// Job Type - Closed enumeration of job kinds this worker can claim
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"strings"
)

// JobType identifies the kind of work an assignment carries. The dispatch
// API tags every job with one of these; a worker only claims jobs whose
// types it registered handlers for.
type JobType string

// JobType constants define all supported job kinds
const (
	JobTypeTest                    JobType = "TEST"
	JobTypeRegionalAssessment      JobType = "REGIONAL_ASSESSMENT"
	JobTypeSuitabilityAssessment   JobType = "SUITABILITY_ASSESSMENT"
	JobTypeDataSpecificationUpdate JobType = "DATA_SPECIFICATION_UPDATE"
)

// IsValid checks if the JobType is a known, valid type
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeTest, JobTypeRegionalAssessment, JobTypeSuitabilityAssessment,
		JobTypeDataSpecificationUpdate:
		return true
	}
	return false
}

// String returns the string representation of the JobType
func (t JobType) String() string {
	return string(t)
}

// AllJobTypes returns a slice of all valid JobType values
func AllJobTypes() []JobType {
	return []JobType{
		JobTypeTest,
		JobTypeRegionalAssessment,
		JobTypeSuitabilityAssessment,
		JobTypeDataSpecificationUpdate,
	}
}

// ParseJobTypes parses a comma-separated list of job type tags into a
// deduplicated slice. Unknown tags are an error so that configuration
// drift is caught at startup rather than at dispatch time.
func ParseJobTypes(csv string) ([]JobType, error) {
	parts := strings.Split(csv, ",")
	seen := make(map[JobType]bool, len(parts))
	types := make([]JobType, 0, len(parts))

	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		jt := JobType(tag)
		if !jt.IsValid() {
			return nil, fmt.Errorf("unknown job type %q", tag)
		}
		if seen[jt] {
			continue
		}
		seen[jt] = true
		types = append(types, jt)
	}

	if len(types) == 0 {
		return nil, fmt.Errorf("no job types configured")
	}
	return types, nil
}

// JobTypesCSV renders a slice of job types as the comma-separated form the
// poll endpoint expects.
func JobTypesCSV(types []JobType) string {
	tags := make([]string, len(types))
	for i, t := range types {
		tags[i] = t.String()
	}
	return strings.Join(tags, ",")
}
