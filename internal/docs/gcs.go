package docs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// GCSUploader stages uploaded documents in a bucket the index imports
// from.
type GCSUploader struct {
	bucket *storage.BucketHandle
	name   string
}

func NewGCSUploader(ctx context.Context, bucketName string, opts ...option.ClientOption) (*GCSUploader, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("docs: storage client: %w", err)
	}
	return &GCSUploader{bucket: client.Bucket(bucketName), name: bucketName}, nil
}

func (u *GCSUploader) Save(ctx context.Context, tenantID, filename string, data []byte) (string, error) {
	dest := fmt.Sprintf("%s/%s_%s", tenantID, uuid.NewString(), filename)

	w := u.bucket.Object(dest).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("docs: upload %s: %w", dest, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("docs: upload %s: %w", dest, err)
	}

	return fmt.Sprintf("gs://%s/%s", u.name, dest), nil
}
