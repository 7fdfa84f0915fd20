// Package storage keeps project material files in S3 or an S3-compatible
// store such as MinIO.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

type Config struct {
	Bucket      string
	Region      string
	EndpointURL string
	PublicURL   string
}

type S3Service struct {
	client    *s3.Client
	uploader  *manager.Uploader
	bucket    string
	region    string
	endpoint  string
	publicURL string
	now       func() time.Time
}

// MaterialUpload is one file sent by a client for a project.
type MaterialUpload struct {
	UserID      uuid.UUID
	ProjectID   uuid.UUID
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadResult struct {
	Key        string
	Bucket     string
	URL        string
	FileSize   int64
	MimeType   string
	UploadedAt time.Time
}

// NewS3Service creates a new S3 service instance with MinIO support
func NewS3Service(ctx context.Context, cfg Config) (*S3Service, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true // MinIO requires path-style addressing
		}
	})

	return &S3Service{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    cfg.Bucket,
		region:    region,
		endpoint:  strings.TrimRight(cfg.EndpointURL, "/"),
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		now:       time.Now,
	}, nil
}

// MaterialKey builds "{user}/{project}/{unix_ms}_{file}". Directory parts of
// the client-supplied name are dropped.
func MaterialKey(userID, projectID uuid.UUID, fileName string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s/%s/%d_%s", userID, projectID, at.UnixMilli(), name)
}

// ObjectURL is the public address of key in bucket. An explicit public base
// wins, then a custom endpoint (path style), then the AWS virtual-host form.
func ObjectURL(publicBase, endpoint, bucket, region, key string) string {
	escaped := escapeKey(key)
	switch {
	case publicBase != "":
		return publicBase + "/" + escaped
	case endpoint != "":
		return endpoint + "/" + bucket + "/" + escaped
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, escaped)
	}
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// UploadMaterial stores a material file and returns its key and public URL.
func (s *S3Service) UploadMaterial(ctx context.Context, in MaterialUpload) (*UploadResult, error) {
	uploadedAt := s.now().UTC()
	key := MaterialKey(in.UserID, in.ProjectID, in.FileName, uploadedAt)

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        in.Body,
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": in.FileName,
			"user-id":           in.UserID.String(),
			"project-id":        in.ProjectID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		Key:        key,
		Bucket:     s.bucket,
		URL:        s.PublicURL(key),
		FileSize:   in.Size,
		MimeType:   contentType,
		UploadedAt: uploadedAt,
	}, nil
}

func (s *S3Service) PublicURL(key string) string {
	return ObjectURL(s.publicURL, s.endpoint, s.bucket, s.region, key)
}

// GeneratePresignedURL generates a presigned URL for temporary access (for previews, etc.)
func (s *S3Service) GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(s.client)

	request, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiration
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return request.URL, nil
}

// CheckFileExists checks if a file exists in S3
func (s *S3Service) CheckFileExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}

	return true, nil
}
