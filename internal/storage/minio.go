package storage

import (
	"account-service/internal/core"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

const (
	objectPrefix = "users/"
	publicPrefix = "/uploads/"
)

// Config holds the object storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioImageStore keeps profile images in a MinIO (S3-compatible) bucket.
type MinioImageStore struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

var _ core.ImageStore = (*MinioImageStore)(nil)

// NewMinioImageStore connects to MinIO and creates the bucket if missing.
func NewMinioImageStore(ctx context.Context, cfg Config, logger zerolog.Logger) (*MinioImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
		logger.Info().Str("bucket", cfg.Bucket).Msg("Created image bucket")
	}

	return &MinioImageStore{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

// Upload stores the image and returns the public path recorded on the user.
func (s *MinioImageStore) Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(s.now(), filename)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return publicPrefix + key, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey names an uploaded file users/<unix-millis>-<sanitised-name>.
func ObjectKey(at time.Time, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		name = "image"
	}
	return objectPrefix + strconv.FormatInt(at.UnixMilli(), 10) + "-" + name
}
