package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// SpacesConfig holds configuration for the DigitalOcean Spaces store
type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
}

// SpacesStore keeps files in a private DigitalOcean Spaces (S3 compatible) bucket.
// Objects are never public; downloads are streamed through the API.
type SpacesStore struct {
	client s3iface.S3API
	bucket string
}

// NewSpacesStore creates a Spaces-backed store
func NewSpacesStore(cfg SpacesConfig) (*SpacesStore, error) {
	if cfg.Bucket == "" || cfg.Endpoint == "" {
		return nil, errors.New("DO_SPACES_BUCKET and DO_SPACES_ENDPOINT are required for the spaces storage driver")
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		),
		Endpoint:         aws.String(cfg.Endpoint),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return NewSpacesStoreWithClient(s3.New(sess), cfg.Bucket), nil
}

// NewSpacesStoreWithClient wraps an existing S3 client
func NewSpacesStoreWithClient(client s3iface.S3API, bucket string) *SpacesStore {
	return &SpacesStore{client: client, bucket: bucket}
}

func (s *SpacesStore) Save(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	key, err := cleanKey(key)
	if err != nil {
		return 0, err
	}
	if contentType == "" {
		contentType = ContentType(key)
	}

	counter := &countingReader{r: r}
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        aws.ReadSeekCloser(counter),
		ACL:         aws.String("private"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload file: %w", err)
	}
	return counter.n, nil
}

func (s *SpacesStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	return result.Body, nil
}

func (s *SpacesStore) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *SpacesStore) Exists(ctx context.Context, key string) (bool, error) {
	key, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}

// List pages through every object under prefix
func (s *SpacesStore) List(ctx context.Context, prefix string) ([]string, error) {
	prefix, err := cleanKey(prefix)
	if err != nil {
		return nil, err
	}

	var keys []string
	err = s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix + "/"),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return keys, nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
