package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	stdoutLocation = "-"
	s3Scheme       = "s3"
	defaultRegion  = "us-east-1"
)

// Sink is where a dump is written. Close finishes the output; for object storage it
// is the moment the dump is uploaded.
type Sink interface {
	io.Writer
	Close(ctx context.Context) error
	Location() string
}

// S3Config configures the client used for s3:// locations. Empty credentials fall
// back to the default AWS credential chain.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// ObjectPutter is the part of the S3 client a sink needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type sinkConfig struct {
	stdout io.Writer
	s3     S3Config
	putter ObjectPutter
}

type SinkOption func(*sinkConfig)

func WithS3Config(c S3Config) SinkOption {
	return func(sc *sinkConfig) {
		sc.s3 = c
	}
}

// WithObjectPutter replaces the S3 client built from the S3 config.
func WithObjectPutter(p ObjectPutter) SinkOption {
	return func(sc *sinkConfig) {
		sc.putter = p
	}
}

// WithStdout replaces os.Stdout for the "-" location.
func WithStdout(w io.Writer) SinkOption {
	return func(sc *sinkConfig) {
		sc.stdout = w
	}
}

// OpenSink opens the output at location: "-" or "" for standard output,
// s3://bucket/key for object storage and a file path otherwise.
func OpenSink(ctx context.Context, location string, opts ...SinkOption) (Sink, error) {
	cfg := &sinkConfig{stdout: os.Stdout}
	for _, opt := range opts {
		opt(cfg)
	}

	location = strings.TrimSpace(location)
	switch {
	case location == "" || location == stdoutLocation:
		return &writerSink{w: cfg.stdout, location: stdoutLocation}, nil
	case strings.HasPrefix(location, s3Scheme+"://"):
		return openS3Sink(ctx, location, cfg)
	default:
		f, err := os.Create(location)
		if err != nil {
			return nil, fmt.Errorf("open output '%s': %w", location, err)
		}
		return &fileSink{File: f}, nil
	}
}

type writerSink struct {
	w        io.Writer
	location string
}

func (s *writerSink) Write(p []byte) (int, error) { return s.w.Write(p) }

func (s *writerSink) Close(context.Context) error { return nil }

func (s *writerSink) Location() string { return s.location }

type fileSink struct {
	*os.File
}

func (s *fileSink) Close(context.Context) error {
	if err := s.File.Sync(); err != nil {
		_ = s.File.Close()
		return err
	}
	return s.File.Close()
}

func (s *fileSink) Location() string { return s.File.Name() }

// s3Sink spools the dump to a temporary file and uploads it on Close, so a failed
// dump never leaves a partial object behind.
type s3Sink struct {
	*os.File
	putter   ObjectPutter
	bucket   string
	key      string
	location string
}

func openS3Sink(ctx context.Context, location string, cfg *sinkConfig) (*s3Sink, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}

	putter := cfg.putter
	if putter == nil {
		if putter, err = newS3Client(ctx, cfg.s3); err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
	}

	f, err := os.CreateTemp("", "rawrepo-dump-*")
	if err != nil {
		return nil, fmt.Errorf("spool file: %w", err)
	}
	return &s3Sink{File: f, putter: putter, bucket: bucket, key: key, location: location}, nil
}

func (s *s3Sink) Close(ctx context.Context) error {
	defer os.Remove(s.File.Name())

	if _, err := s.File.Seek(0, io.SeekStart); err != nil {
		_ = s.File.Close()
		return err
	}
	_, putErr := s.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   s.File,
	})
	if putErr != nil {
		putErr = fmt.Errorf("upload %s: %w", s.location, putErr)
	}
	return errors.Join(putErr, s.File.Close())
}

func (s *s3Sink) Location() string { return s.location }

// ParseS3Location splits s3://bucket/key.
func ParseS3Location(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("invalid output '%s': %w", location, err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Scheme != s3Scheme || u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid output '%s': expected s3://bucket/key", location)
	}
	return u.Host, key, nil
}

func newS3Client(ctx context.Context, c S3Config) (*s3.Client, error) {
	region := c.Region
	if region == "" {
		region = defaultRegion
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if c.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = c.PathStyle
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}
