package rulesource

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/aalemi-dev/apmbridge/rules"
)

// ObjectStoreSource reads the rule table from an object in MinIO or S3.
type ObjectStoreSource struct {
	client *minio.Client
	bucket string
	key    string
}

// NewObjectStoreSource connects to the store. No request is made until Fetch.
func NewObjectStoreSource(cfg ObjectStoreConfig) (*ObjectStoreSource, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: object store endpoint", ErrMissingLocation)
	}
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("%w: object store bucket and key", ErrMissingLocation)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return &ObjectStoreSource{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

func (o *ObjectStoreSource) Name() string {
	return KindObjectStore + ":" + o.bucket + "/" + o.key
}

// Fetch downloads the object.
func (o *ObjectStoreSource) Fetch(ctx context.Context) ([]byte, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, o.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateObjectError(err)
	}
	defer func() { _ = obj.Close() }()

	// GetObject is lazy; missing objects surface on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateObjectError(err)
	}
	return nonEmpty(data)
}

// Publish validates a rule table document and uploads it to the configured object.
func (o *ObjectStoreSource) Publish(ctx context.Context, data []byte) error {
	if _, err := rules.Load(data); err != nil {
		return err
	}
	_, err := o.client.PutObject(ctx, o.bucket, o.key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return translateObjectError(err)
}
