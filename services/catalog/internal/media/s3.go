package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// S3Config configures the S3-compatible object store.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // MinIO / other S3-compatible services
	UsePathStyle    bool
	PresignTTL      time.Duration // default 36000s
	CallTimeout     time.Duration // per storage call, default 3s

	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
	BreakerFailures    uint32
}

type s3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3ObjectStore lists and presigns through aws-sdk-go-v2. Every call runs
// behind a circuit breaker and its own deadline.
type S3ObjectStore struct {
	api         s3API
	presign     presigner
	bucket      string
	ttl         time.Duration
	callTimeout time.Duration
	cb          *gobreaker.CircuitBreaker
	log         *zap.Logger
}

func NewS3ObjectStore(ctx context.Context, cfg S3Config, log *zap.Logger) (*S3ObjectStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3ObjectStore(client, s3.NewPresignClient(client), cfg, log), nil
}

func newS3ObjectStore(api s3API, p presigner, cfg S3Config, log *zap.Logger) *S3ObjectStore {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 36000 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 3 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	failures := cfg.BreakerFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "object-storage",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit-breaker state change", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &S3ObjectStore{
		api:         api,
		presign:     p,
		bucket:      cfg.Bucket,
		ttl:         cfg.PresignTTL,
		callTimeout: cfg.CallTimeout,
		cb:          cb,
		log:         log,
	}
}

type presignResult struct {
	url   string
	found bool
}

func (s *S3ObjectStore) Presign(ctx context.Context, prefix string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	res, err := s.cb.Execute(func() (interface{}, error) {
		out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(s.bucket),
			Prefix:  aws.String(prefix),
			MaxKeys: aws.Int32(1),
		})
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", prefix, err)
		}
		if len(out.Contents) == 0 || out.Contents[0].Key == nil {
			return presignResult{}, nil
		}
		req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    out.Contents[0].Key,
		}, func(o *s3.PresignOptions) {
			o.Expires = s.ttl
		})
		if err != nil {
			return nil, fmt.Errorf("presign %q: %w", *out.Contents[0].Key, err)
		}
		return presignResult{url: req.URL, found: true}, nil
	})
	if err != nil {
		return "", false, err
	}
	r := res.(presignResult)
	return r.url, r.found, nil
}

func (s *S3ObjectStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	_, err := s.cb.Execute(func() (interface{}, error) {
		return s.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentType),
		})
	})
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}
