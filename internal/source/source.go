// Package source resolves comparison inputs to local files. Plain paths are
// used as-is; s3://bucket/key objects are downloaded to a temporary file.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrInvalidURI is returned for s3 URIs without a bucket or key.
var ErrInvalidURI = errors.New("invalid source uri")

// ErrNotFound is returned when a local path does not exist.
var ErrNotFound = errors.New("source not found")

// objectGetter is the subset of the S3 client used for downloads.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Fetcher resolves source URIs. The S3 client is created on first use.
type Fetcher struct {
	profile string
	region  string
	tempDir string

	once      sync.Once
	client    objectGetter
	clientErr error
	newClient func(ctx context.Context) (objectGetter, error)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithProfile selects a shared AWS config profile.
func WithProfile(profile string) Option {
	return func(f *Fetcher) { f.profile = profile }
}

// WithRegion overrides the AWS region.
func WithRegion(region string) Option {
	return func(f *Fetcher) { f.region = region }
}

// WithTempDir sets where downloaded objects are written.
func WithTempDir(dir string) Option {
	return func(f *Fetcher) { f.tempDir = dir }
}

// New returns a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{}
	for _, opt := range opts {
		opt(f)
	}
	f.newClient = f.loadS3Client
	return f
}

// Fetch is shorthand for New().Fetch with the default AWS configuration.
func Fetch(ctx context.Context, uri string) (string, func(), error) {
	return New().Fetch(ctx, uri)
}

// Fetch returns a local path for uri and a cleanup func that removes any
// temporary copy. Cleanup is never nil and never touches local sources.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (string, func(), error) {
	noop := func() {}

	if !IsS3(uri) {
		if _, err := os.Stat(uri); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", noop, fmt.Errorf("%w: %s", ErrNotFound, uri)
			}
			return "", noop, fmt.Errorf("stat %s: %w", uri, err)
		}
		return uri, noop, nil
	}

	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return "", noop, err
	}

	f.once.Do(func() { f.client, f.clientErr = f.newClient(ctx) })
	if f.clientErr != nil {
		return "", noop, f.clientErr
	}

	local, err := f.download(ctx, bucket, key)
	if err != nil {
		return "", noop, err
	}
	return local, func() { os.Remove(local) }, nil
}

func (f *Fetcher) download(ctx context.Context, bucket, key string) (string, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return "", fmt.Errorf("getting s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	// Keep the extension so format detection has the usual hint.
	tmp, err := os.CreateTemp(f.tempDir, "tabdiff-*"+path.Ext(key))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("downloading s3://%s/%s: %w", bucket, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return filepath.Clean(tmp.Name()), nil
}

func (f *Fetcher) loadS3Client(ctx context.Context) (objectGetter, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if f.profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(f.profile))
	}
	if f.region != "" {
		opts = append(opts, awsconfig.WithRegion(f.region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// IsS3 reports whether uri uses the s3 scheme.
func IsS3(uri string) bool {
	return strings.HasPrefix(strings.ToLower(uri), "s3://")
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil || !strings.EqualFold(u.Scheme, "s3") {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s: expected s3://bucket/key", ErrInvalidURI, uri)
	}
	return u.Host, key, nil
}
