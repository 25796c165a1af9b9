package handlers

import (
	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/jobs"
	"github.com/ternarybob/scopulus/internal/models"
)

// RegisterAll binds the four shipped handlers into the registry. Adding
// a job kind is one more call here plus its payload types; the runtime
// never changes.
func RegisterAll(registry *jobs.Registry) {
	registry.Register(models.JobTypeTest, jobs.Capability{
		Handler:  NewTestHandler(),
		NewInput: func() interfaces.JobInput { return &models.TestJobInput{} },
	})
	registry.Register(models.JobTypeRegionalAssessment, jobs.Capability{
		Handler:  NewRegionalHandler(),
		NewInput: func() interfaces.JobInput { return &models.RegionalAssessmentInput{} },
	})
	registry.Register(models.JobTypeSuitabilityAssessment, jobs.Capability{
		Handler:  NewSuitabilityHandler(),
		NewInput: func() interfaces.JobInput { return &models.SuitabilityAssessmentInput{} },
	})
	registry.Register(models.JobTypeDataSpecificationUpdate, jobs.Capability{
		Handler:  NewDataSpecHandler(),
		NewInput: func() interfaces.JobInput { return &models.DataSpecificationUpdateInput{} },
	})
}
