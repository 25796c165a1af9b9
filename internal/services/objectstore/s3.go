// Package objectstore uploads job artifacts to an S3-compatible store.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/models"
)

const (
	// uploadAttempts bounds transient retries. The SDK's own retryer is
	// disabled so this count is exact.
	uploadAttempts = 3

	// uploadBackoffBase is the first retry delay; each retry doubles it.
	uploadBackoffBase = 500 * time.Millisecond
)

// uploadAPI is the slice of the SDK the store uses. Tests substitute a
// fake; production wires manager.Uploader.
type uploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Store uploads local files to s3:// URIs. Constructed per job with the
// job's region and optional endpoint override.
type Store struct {
	uploader uploadAPI
	logger   arbor.ILogger
	sleep    func(context.Context, time.Duration) error
}

var _ interfaces.ObjectStore = (*Store)(nil)

// NewStore creates an uploader for one region. A non-empty endpoint signs
// against that endpoint with path-style addressing (MinIO-compatible) and
// reads static credentials from the environment.
func NewStore(ctx context.Context, region, endpoint string, logger arbor.ILogger) (*Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if endpoint != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				os.Getenv("AWS_ACCESS_KEY_ID"),
				os.Getenv("AWS_SECRET_ACCESS_KEY"),
				os.Getenv("AWS_SESSION_TOKEN"),
			)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// The worker owns the retry policy so the attempt count stays
		// exact; the SDK must not retry underneath it.
		o.Retryer = aws.NopRetryer{}
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		uploader: manager.NewUploader(client),
		logger:   logger,
		sleep:    sleepCtx,
	}, nil
}

// Upload copies a local artifact to its target URI, retrying transient
// failures only; non-transient errors fail fast. Exhaustion surfaces as
// an upload error.
func (s *Store) Upload(ctx context.Context, localPath, targetURI string) error {
	bucket, key, err := ParseURI(targetURI)
	if err != nil {
		return err
	}

	var lastErr error
	backoff := uploadBackoffBase
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		lastErr = s.uploadOnce(ctx, localPath, bucket, key)
		if lastErr == nil {
			if attempt > 1 {
				s.logger.Info().Str("uri", targetURI).Int("attempt", attempt).Msg("Upload succeeded after retry")
			}
			return nil
		}
		if !retryable(lastErr) {
			return models.WrapError(models.ErrKindUpload, lastErr,
				fmt.Sprintf("upload of %s failed", targetURI))
		}
		if attempt == uploadAttempts {
			break
		}
		s.logger.Warn().Err(lastErr).
			Str("uri", targetURI).
			Int("attempt", attempt).
			Msg("Upload failed, backing off")
		if err := s.sleep(ctx, backoff); err != nil {
			return models.WrapError(models.ErrKindUpload, err, "upload retry interrupted")
		}
		backoff *= 2
	}
	return models.WrapError(models.ErrKindUpload, lastErr,
		fmt.Sprintf("upload of %s exhausted %d attempts", targetURI, uploadAttempts))
}

// retryable reports whether another attempt can change the outcome.
// Client-fault API errors (access denied, missing bucket, bad signature)
// and local file problems fail identically every time; server faults and
// network errors may clear.
func retryable(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorFault() != smithy.FaultClient
	}
	var pathErr *os.PathError
	return !errors.As(err, &pathErr)
}

func (s *Store) uploadOnce(ctx context.Context, localPath, bucket, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	return err
}

// ParseURI splits an s3://bucket/key… URI.
func ParseURI(uri string) (bucket, key string, err error) {
	trimmed, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", models.WorkerErrorf(models.ErrKindInvalidInput, "storage URI %q is not an s3:// URI", uri)
	}
	bucket, key, ok = strings.Cut(trimmed, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", models.WorkerErrorf(models.ErrKindInvalidInput, "storage URI %q lacks a bucket or key", uri)
	}
	return bucket, key, nil
}

// JoinURI appends a filename to a storage URI prefix.
func JoinURI(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
