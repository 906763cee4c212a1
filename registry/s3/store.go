package s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"crate-registry/config"
)

// ErrIncompleteS3Config is returned when the S3 configuration is incomplete
var ErrIncompleteS3Config = errors.New("incomplete S3 configuration")

// ErrObjectNotFound is returned when no object exists under a key
var ErrObjectNotFound = errors.New("artifact object not found")

// S3Store implements the artifact store interface using an s3-backed
// bucket
type S3Store struct {
	S3Client *s3.Client
	Timeout  time.Duration
	Bucket   string
	Prefix   string
}

// New creates a new s3-based artifact store
func New(cfg *config.AppConfig) (*S3Store, error) {
	// check for required S3 configuration
	if strings.TrimSpace(cfg.Persistence.S3.AccessKey) == "" ||
		strings.TrimSpace(cfg.Persistence.S3.KeyID) == "" ||
		strings.TrimSpace(cfg.Persistence.S3.Endpoint) == "" ||
		strings.TrimSpace(cfg.Persistence.S3.Region) == "" ||
		strings.TrimSpace(cfg.Persistence.S3.Bucket) == "" ||
		strings.TrimSpace(cfg.Persistence.S3.Timeout) == "" {
		return nil, fmt.Errorf("%w", ErrIncompleteS3Config)
	}

	s3Client := s3.New(s3.Options{
		UsePathStyle: true,
		BaseEndpoint: aws.String(cfg.Persistence.S3.Endpoint),
		Region:       cfg.Persistence.S3.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				cfg.Persistence.S3.KeyID,
				cfg.Persistence.S3.AccessKey,
				"",
			),
		),
	})

	timeoutDuration, err := time.ParseDuration(cfg.Persistence.S3.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid S3 timeout value: %w", err)
	}

	return &S3Store{
		S3Client: s3Client,
		Timeout:  timeoutDuration,
		Bucket:   cfg.Persistence.S3.Bucket,
		Prefix:   cfg.Persistence.S3.Prefix,
	}, nil
}

// Put uploads content to the bucket and returns its content-addressed
// object key
func (s *S3Store) Put(ctx context.Context, content []byte) (string, error) {
	hash := sha256.Sum256(content)
	key := hex.EncodeToString(hash[:])

	uploader := manager.NewUploader(s.S3Client)

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	result, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.getObjectPath(key)),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		var mu manager.MultiUploadFailure
		if errors.As(err, &mu) {
			log.Error().
				Msg(fmt.Sprintf("multi-upload failure (upload_id: %s): %v", mu.UploadID(), mu))

			return "", fmt.Errorf(
				"multi-upload failure (upload_id: %s): %w",
				mu.UploadID(),
				mu,
			)
		}

		log.Error().Err(err).Msg("upload failure")

		return "", fmt.Errorf("upload failure: %w", err)
	}

	log.Info().
		Str("location", result.Location).
		Msg("successfully uploaded artifact to s3 bucket")

	return key, nil
}

// Get retrieves the content stored under key
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	object, err := s.S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.getObjectPath(key)),
	})
	if err != nil {
		var notFoundErr *types.NoSuchKey
		if errors.As(err, &notFoundErr) {
			return nil, ErrObjectNotFound
		}

		return nil, fmt.Errorf("failed to get artifact from S3: %w", err)
	}

	var content []byte
	if object.Body != nil {
		defer func() {
			if cerr := object.Body.Close(); cerr != nil {
				log.Error().Err(cerr).Msg("failed to close S3 object body")
			}
		}()

		content, err = io.ReadAll(object.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact content: %w", err)
		}
	}

	return content, nil
}

// Delete removes the object stored under key
func (s *S3Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	_, err := s.S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.getObjectPath(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete artifact from S3: %w", err)
	}

	return nil
}

// getObjectPath returns the bucket key for an object
func (s *S3Store) getObjectPath(key string) string {
	return path.Join(s.Prefix, key+".crate")
}
