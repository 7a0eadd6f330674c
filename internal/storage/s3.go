package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Config holds the settings of an S3 or S3-compatible (R2, MinIO) store.
type S3Config struct {
	Endpoint  string // empty for AWS
	Region    string
	AccessKey string
	SecretKey string
	PathStyle bool
	BaseURL   string // public URL base, optional
}

// S3 stores blobs in S3 buckets. R2 is S3-compatible, so the same SDK serves
// both.
type S3 struct {
	client    s3iface.S3API
	endpoint  string
	region    string
	pathStyle bool
	baseURL   string
}

// deleteBatch is the DeleteObjects per-request limit.
const deleteBatch = 1000

func NewS3(cfg S3Config) (*S3, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.PathStyle),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}
	return NewS3WithClient(s3.New(sess), cfg), nil
}

func NewS3WithClient(client s3iface.S3API, cfg S3Config) *S3 {
	return &S3{
		client:    client,
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		region:    cfg.Region,
		pathStyle: cfg.PathStyle,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (s *S3) ListContainers(ctx context.Context) ([]Container, error) {
	out, err := s.client.ListBucketsWithContext(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	containers := make([]Container, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		containers = append(containers, Container{Name: aws.StringValue(b.Name)})
	}
	return containers, nil
}

func (s *S3) CreateContainer(ctx context.Context, name string, public bool) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if public {
		input.ACL = aws.String(s3.BucketCannedACLPublicRead)
	}
	if _, err := s.client.CreateBucketWithContext(ctx, input); err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) {
			switch aerr.Code() {
			case s3.ErrCodeBucketAlreadyExists, s3.ErrCodeBucketAlreadyOwnedByYou:
				return ErrContainerExists
			}
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// SetPublic installs a bucket policy that allows anonymous reads.
func (s *S3) SetPublic(ctx context.Context, container string) error {
	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Sid":"PublicRead","Effect":"Allow","Principal":"*","Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, container)
	_, err := s.client.PutBucketPolicyWithContext(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(container),
		Policy: aws.String(policy),
	})
	if err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	return nil
}

func (s *S3) Put(ctx context.Context, container, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:       aws.String(container),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
	}
	if _, err := s.client.PutObjectWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.PublicURL(container, key), nil
}

func (s *S3) Get(ctx context.Context, container, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get from S3: %w", err)
	}
	return out.Body, nil
}

func (s *S3) Delete(ctx context.Context, container string, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatch {
		end := start + deleteBatch
		if end > len(keys) {
			end = len(keys)
		}
		objects := make([]*s3.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, &s3.ObjectIdentifier{Key: aws.String(k)})
		}
		out, err := s.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(container),
			Delete: &s3.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete from S3: %w", err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("failed to delete %s from S3: %s", aws.StringValue(e.Key), aws.StringValue(e.Message))
		}
	}
	return nil
}

func (s *S3) List(ctx context.Context, container string) ([]Object, error) {
	var objects []Object
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(container)},
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, o := range page.Contents {
				objects = append(objects, Object{Name: aws.StringValue(o.Key), Size: aws.Int64Value(o.Size)})
			}
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return objects, nil
}

func (s *S3) PublicURL(container, key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	switch {
	case s.baseURL != "":
		return s.baseURL + "/" + escaped
	case s.endpoint != "" && s.pathStyle:
		return s.endpoint + "/" + container + "/" + escaped
	case s.endpoint != "":
		u, err := url.Parse(s.endpoint)
		if err != nil {
			return s.endpoint + "/" + container + "/" + escaped
		}
		return u.Scheme + "://" + container + "." + u.Host + "/" + escaped
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", container, s.region, escaped)
	}
}
