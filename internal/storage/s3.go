package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
)

const s3BreakerName = "s3-images"

// S3Config describes the bucket images are written to.
// Endpoint is only set for S3 compatible services (MinIO, Spaces).
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3ImageStore writes images to a bucket behind a circuit breaker
type S3ImageStore struct {
	client    s3API
	bucket    string
	publicURL string
	cb        *gobreaker.CircuitBreaker[string]
}

// NewS3ImageStore builds the client from static credentials, or the default chain when none are set
func NewS3ImageStore(ctx context.Context, cfg S3Config) (*S3ImageStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	if cfg.Endpoint != "" {
		publicURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return newS3ImageStore(client, cfg.Bucket, publicURL), nil
}

func newS3ImageStore(client s3API, bucket, publicURL string) *S3ImageStore {
	metrics.CircuitBreakerState.WithLabelValues(s3BreakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        s3BreakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &S3ImageStore{client: client, bucket: bucket, publicURL: publicURL, cb: cb}
}

func (s *S3ImageStore) Save(ctx context.Context, img *Image) (string, error) {
	key := path.Join(recipeImageDir, uuid.NewString()+img.Extension)
	_, err := s.cb.Execute(func() (string, error) {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(img.Data),
			ContentType: aws.String(img.MIME),
		})
		return key, err
	})
	metrics.RecordImageOperation("s3", "save", err)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return s.publicURL + "/" + key, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, s.publicURL+"/")
	if !ok {
		return nil
	}
	_, err := s.cb.Execute(func() (string, error) {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return key, err
	})
	metrics.RecordImageOperation("s3", "delete", err)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
