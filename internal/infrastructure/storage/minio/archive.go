// Package minio stores the raw payloads fetched from literature sources so a
// schema change in the extractor never requires re-fetching upstream APIs.
package minio

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/openlongevity/longmap/internal/config"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
)

const connectTimeout = 10 * time.Second

// objectStore is the slice of the MinIO client the archive uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

// minioStore adapts *minio.Client to objectStore.
type minioStore struct {
	mc *minio.Client
}

func (s minioStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return s.mc.BucketExists(ctx, bucket)
}

func (s minioStore) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return s.mc.MakeBucket(ctx, bucket, opts)
}

func (s minioStore) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return s.mc.PutObject(ctx, bucket, key, reader, size, opts)
}

func (s minioStore) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return s.mc.GetObject(ctx, bucket, key, opts)
}

// Payload is one raw document as it came off the wire.
type Payload struct {
	Source      string
	SourceID    string
	ContentType string
	FetchedAt   time.Time
	Body        []byte
}

// Archive writes raw source payloads into one bucket, keyed by source and
// fetch month so object listings stay browsable.
type Archive struct {
	store  objectStore
	bucket string
	logger logging.Logger
}

// NewArchive connects, verifies the endpoint and creates the bucket when it
// does not exist yet.
func NewArchive(ctx context.Context, cfg config.MinIOConfig, logger logging.Logger) (*Archive, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeArchiveWriteFailed, "create minio client")
	}

	a := &Archive{
		store:  minioStore{mc: mc},
		bucket: cfg.Bucket,
		logger: logger.Named("archive"),
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("payload archive ready",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket))
	return a, nil
}

func (a *Archive) ensureBucket(ctx context.Context) error {
	exists, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return errors.Wrap(err, errors.CodeServiceUnavailable, "check archive bucket")
	}
	if exists {
		return nil
	}
	if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.CodeArchiveWriteFailed, "create archive bucket")
	}
	return nil
}

// Store writes one payload and returns its object key. Re-storing the same
// (source, source_id, month) overwrites, which is the wanted behavior when a
// source republishes a corrected record.
func (a *Archive) Store(ctx context.Context, p Payload) (string, error) {
	if p.Source == "" || p.SourceID == "" {
		return "", errors.New(errors.CodeValidation, "payload source and source_id required")
	}
	if len(p.Body) == 0 {
		return "", errors.New(errors.CodeValidation, "payload body empty")
	}

	key := objectKey(p)
	contentType := p.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	_, err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(p.Body), int64(len(p.Body)), minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"source":     p.Source,
			"source-id":  p.SourceID,
			"fetched-at": p.FetchedAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeArchiveWriteFailed, "store payload")
	}

	a.logger.Debug("payload archived",
		logging.String("key", key),
		logging.Int("bytes", len(p.Body)))
	return key, nil
}

// Get reads one archived payload back by its key.
func (a *Archive) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.store.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "read archived payload")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "read archived payload")
	}
	return data, nil
}

// objectKey lays payloads out as <source>/<yyyy>/<mm>/<source_id>.json.
func objectKey(p Payload) string {
	at := p.FetchedAt
	if at.IsZero() {
		at = time.Now()
	}
	return p.Source + "/" + at.UTC().Format("2006/01") + "/" + p.SourceID + ".json"
}
