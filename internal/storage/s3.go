package storage

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/config"
)

// S3Mirror uploads run artifacts to an S3 bucket
type S3Mirror struct {
	bucket   string
	prefix   string
	uploader s3manageriface.UploaderAPI
	logger   *zap.Logger
}

// NewS3Mirror creates a new S3Mirror
func NewS3Mirror(cfg config.S3Config, logger *zap.Logger) (*S3Mirror, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Mirror{
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		uploader: s3manager.NewUploader(sess),
		logger:   logger,
	}, nil
}

// MirrorRun uploads every regular file below dir
func (m *S3Mirror) MirrorRun(ctx context.Context, dir, key string) error {
	uploaded := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		objectKey := path.Join(m.prefix, key, filepath.ToSlash(rel))

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		contentType := mime.TypeByExtension(filepath.Ext(p))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		_, err = m.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
			Bucket:      aws.String(m.bucket),
			Key:         aws.String(objectKey),
			Body:        f,
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s to S3: %w", objectKey, err)
		}
		uploaded++
		return nil
	})
	if err != nil {
		m.logger.Error("Failed to mirror run artifacts",
			zap.String("dir", dir),
			zap.String("bucket", m.bucket),
			zap.Error(err))
		return err
	}

	m.logger.Info("Mirrored run artifacts",
		zap.String("bucket", m.bucket),
		zap.String("key", path.Join(m.prefix, key)),
		zap.Int("files", uploaded))
	return nil
}
