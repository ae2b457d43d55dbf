package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"foodhub-gateway/pkg/apperrors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const uploadExpiry = 5 * time.Minute

// Upload kinds accepted by Presign
const (
	UploadFood  = "food"
	UploadUser  = "user"
	UploadCover = "cover"
)

var uploadExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// UploadConfig configures the image bucket
type UploadConfig struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
	PublicURL string
}

// UploadRequest represents a request to get a pre-signed URL
type UploadRequest struct {
	Kind        string `json:"kind"`
	ContentType string `json:"content_type"`
}

// UploadResponse represents the response with pre-signed URL
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// UploadService hands out pre-signed S3 URLs for food and profile images
type UploadService struct {
	presign   *s3.PresignClient
	bucket    string
	publicURL string
}

// NewUploadService creates the upload service; it returns nil when no bucket is configured
func NewUploadService(ctx context.Context, cfg UploadConfig) (*UploadService, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
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

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &UploadService{
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

// Presign returns a URL the caller can PUT one image to, under <kind>/<user>/<uuid>
func (s *UploadService) Presign(ctx context.Context, userID string, req UploadRequest) (*UploadResponse, error) {
	if s == nil {
		return nil, apperrors.NewValidationError("uploads are not configured")
	}
	switch req.Kind {
	case UploadFood, UploadUser, UploadCover:
	default:
		return nil, apperrors.NewValidationError("kind must be food, user or cover")
	}
	ext, ok := uploadExtensions[req.ContentType]
	if !ok {
		return nil, apperrors.NewValidationError("content_type must be image/jpeg, image/png or image/webp")
	}

	key := fmt.Sprintf("%s/%s/%s.%s", req.Kind, userID, uuid.New().String(), ext)
	request, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.ContentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = uploadExpiry
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate pre-signed URL", err)
	}

	return &UploadResponse{
		UploadURL: request.URL,
		PublicURL: s.publicURL + "/" + key,
		Key:       key,
		ExpiresIn: int(uploadExpiry.Seconds()),
	}, nil
}
