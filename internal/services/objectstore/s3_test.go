package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scopulus/internal/models"
)

// fakeUploader fails a configured number of attempts before accepting.
type fakeUploader struct {
	failures int
	failErr  error // returned while failures remain; nil means a generic transient error
	attempts int
	bucket   string
	key      string
	body     []byte
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.attempts++
	if f.failures > 0 {
		f.failures--
		if f.failErr != nil {
			return nil, f.failErr
		}
		return nil, fmt.Errorf("simulated 500 from object store")
	}
	f.bucket = *input.Bucket
	f.key = *input.Key
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.body = data
	return &manager.UploadOutput{}, nil
}

func newTestStore(fake *fakeUploader) *Store {
	return &Store{
		uploader: fake,
		logger:   arbor.NewLogger(),
		sleep:    func(ctx context.Context, d time.Duration) error { return nil },
	}
}

func writeTempArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.tiff")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestUpload_Success(t *testing.T) {
	fake := &fakeUploader{}
	store := newTestStore(fake)
	path := writeTempArtifact(t, "raster-bytes")

	err := store.Upload(context.Background(), path, "s3://reef-artifacts/jobs/j-1/regional_assessment.tiff")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.attempts)
	assert.Equal(t, "reef-artifacts", fake.bucket)
	assert.Equal(t, "jobs/j-1/regional_assessment.tiff", fake.key)
	assert.Equal(t, []byte("raster-bytes"), fake.body)
}

func TestUpload_RetriesTransientThenSucceeds(t *testing.T) {
	fake := &fakeUploader{failures: 2}
	store := newTestStore(fake)
	path := writeTempArtifact(t, "raster-bytes")

	err := store.Upload(context.Background(), path, "s3://bucket/key")
	require.NoError(t, err)
	// 500, 500, 200: exactly three attempts.
	assert.Equal(t, 3, fake.attempts)
}

func TestUpload_ExhaustionSurfacesUploadFailure(t *testing.T) {
	fake := &fakeUploader{failures: 10}
	store := newTestStore(fake)
	path := writeTempArtifact(t, "raster-bytes")

	err := store.Upload(context.Background(), path, "s3://bucket/key")
	require.Error(t, err)
	assert.Equal(t, models.ErrKindUpload, models.KindOf(err))
	assert.Equal(t, 3, fake.attempts)
}

func TestUpload_ClientFaultFailsFast(t *testing.T) {
	fake := &fakeUploader{
		failures: 10,
		failErr:  &smithy.GenericAPIError{Code: "AccessDenied", Message: "access denied", Fault: smithy.FaultClient},
	}
	store := newTestStore(fake)
	path := writeTempArtifact(t, "raster-bytes")

	err := store.Upload(context.Background(), path, "s3://bucket/key")
	require.Error(t, err)
	assert.Equal(t, models.ErrKindUpload, models.KindOf(err))
	// A denied request fails the same way every time; no retries.
	assert.Equal(t, 1, fake.attempts)
}

func TestUpload_ServerFaultIsRetried(t *testing.T) {
	fake := &fakeUploader{
		failures: 2,
		failErr:  &smithy.GenericAPIError{Code: "InternalError", Message: "we encountered an internal error", Fault: smithy.FaultServer},
	}
	store := newTestStore(fake)
	path := writeTempArtifact(t, "raster-bytes")

	err := store.Upload(context.Background(), path, "s3://bucket/key")
	require.NoError(t, err)
	assert.Equal(t, 3, fake.attempts)
}

func TestUpload_MissingLocalFile(t *testing.T) {
	fake := &fakeUploader{}
	store := newTestStore(fake)

	err := store.Upload(context.Background(), filepath.Join(t.TempDir(), "absent.tiff"), "s3://bucket/key")
	require.Error(t, err)
	assert.Equal(t, models.ErrKindUpload, models.KindOf(err))
	// The open fails before the uploader is ever reached.
	assert.Zero(t, fake.attempts)
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"plain", "s3://bucket/key", "bucket", "key", false},
		{"nested key", "s3://bucket/a/b/c.tiff", "bucket", "a/b/c.tiff", false},
		{"not s3", "https://bucket/key", "", "", true},
		{"no key", "s3://bucket", "", "", true},
		{"no bucket", "s3:///key", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestJoinURI(t *testing.T) {
	assert.Equal(t, "s3://b/p/suitable.geojson", JoinURI("s3://b/p", "suitable.geojson"))
	assert.Equal(t, "s3://b/p/suitable.geojson", JoinURI("s3://b/p/", "suitable.geojson"))
}
