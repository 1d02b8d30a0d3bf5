// Package storage issues presigned S3 URLs for voice and image media.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/bhashahub/crowdsource/internal/config"
	"github.com/bhashahub/crowdsource/internal/models"
)

// ErrContentType is returned when a content type does not fit the contribution kind.
var ErrContentType = errors.New("content type not allowed for kind")

// ErrObjectNotFound is returned when no object exists under a key.
var ErrObjectNotFound = errors.New("object not found")

// PresignedUpload is a short-lived URL the client PUTs media to.
type PresignedUpload struct {
	URL         string    `json:"upload_url"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// S3Storage presigns uploads into a single bucket.
type S3Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	ttl       time.Duration
}

// NewS3Storage creates the S3 client from config. Static credentials are used
// when configured, otherwise the default AWS credential chain applies.
func NewS3Storage(ctx context.Context, cfg *config.StorageConfig) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		ttl:       cfg.UploadTTLDuration(),
	}, nil
}

// PresignUpload returns a PUT URL for a new object owned by ownerID.
func (s *S3Storage) PresignUpload(ctx context.Context, ownerID string, kind models.ContributionKind, contentType string) (*PresignedUpload, error) {
	if err := CheckContentType(kind, contentType); err != nil {
		return nil, err
	}

	key := ObjectKey(ownerID, kind, contentType)
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload for key %s: %w", key, err)
	}

	return &PresignedUpload{
		URL:         req.URL,
		ObjectKey:   key,
		ContentType: contentType,
		ExpiresAt:   time.Now().Add(s.ttl).UTC(),
	}, nil
}

// ObjectSize returns the stored size of an uploaded object.
func (s *S3Storage) ObjectSize(ctx context.Context, key string) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return 0, ErrObjectNotFound
		}
		return 0, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// CheckContentType accepts audio/* for voice and image/* for image.
func CheckContentType(kind models.ContributionKind, contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrContentType, contentType)
	}

	var prefix string
	switch kind {
	case models.KindVoice:
		prefix = "audio/"
	case models.KindImage:
		prefix = "image/"
	default:
		return fmt.Errorf("%w: %s contributions carry no media", ErrContentType, kind)
	}
	if !strings.HasPrefix(mediaType, prefix) {
		return fmt.Errorf("%w: %s for %s", ErrContentType, mediaType, kind)
	}
	return nil
}

// ObjectKey builds a unique key of the form <kind>/<owner>/<uuid><ext>. The
// owner segment is path-escaped so subjects containing "/" stay one segment.
func ObjectKey(ownerID string, kind models.ContributionKind, contentType string) string {
	ext := ""
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("%s/%s/%s%s", kind, url.PathEscape(ownerID), uuid.NewString(), ext)
}

// OwnedBy reports whether key was generated for ownerID.
func OwnedBy(key, ownerID string) bool {
	parts := strings.SplitN(key, "/", 3)
	return len(parts) == 3 && ownerID != "" && parts[1] == url.PathEscape(ownerID)
}
