package kv

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MetadataHeader is the user metadata key carrying a key's listing
// metadata. S3 exposes it as X-Amz-Meta-Catalog.
const MetadataHeader = "Catalog"

// MinioConfig addresses a bucket on an S3-compatible endpoint.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioNamespace maps each key to an object under "<namespace>/".
type MinioNamespace struct {
	client *minio.Client
	bucket string
	root   string
}

// OpenMinio connects to the endpoint and checks the bucket exists. The
// bucket is created when missing so a fresh deployment can be seeded.
func OpenMinio(ctx context.Context, cfg MinioConfig, namespace string) (*MinioNamespace, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client %s: %w", cfg.Endpoint, err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("minio make bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinioNamespace{client: client, bucket: cfg.Bucket, root: namespace + "/"}, nil
}

func (m *MinioNamespace) objectName(key string) string {
	return m.root + key
}

// Put implements Writer.
func (m *MinioNamespace) Put(ctx context.Context, key string, value, metadata []byte) error {
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	if metadata != nil {
		opts.UserMetadata = map[string]string{MetadataHeader: string(metadata)}
	}
	_, err := m.client.PutObject(ctx, m.bucket, m.objectName(key), bytes.NewReader(value), int64(len(value)), opts)
	return err
}

// Get implements Namespace.
func (m *MinioNamespace) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, m.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinioErr(key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateMinioErr(key, err)
	}
	if len(data) == 0 {
		return nil, NotFoundError{Key: key}
	}
	return data, nil
}

// List implements Namespace. ListObjects with metadata is a MinIO
// extension; other S3 servers leave UserMetadata empty and each key is
// then stat'ed for its metadata header.
func (m *MinioNamespace) List(ctx context.Context, prefix string) ([]Key, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var keys []Key
	objects := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:       m.objectName(prefix),
		Recursive:    true,
		WithMetadata: true,
	})
	for object := range objects {
		if object.Err != nil {
			return nil, object.Err
		}
		name, ok := strings.CutPrefix(object.Key, m.root)
		if !ok {
			continue
		}
		md, found := userMetadata(object.UserMetadata)
		if !found {
			info, err := m.client.StatObject(ctx, m.bucket, object.Key, minio.StatObjectOptions{})
			if err != nil {
				return nil, translateMinioErr(name, err)
			}
			md, _ = userMetadata(info.UserMetadata)
		}
		keys = append(keys, Key{Name: name, Metadata: md})
	}
	return keys, nil
}

// Close implements Namespace. The minio client holds no closable state.
func (m *MinioNamespace) Close() error {
	return nil
}

// userMetadata finds the catalog header regardless of the casing or
// prefix the server returned it with.
func userMetadata(md map[string]string) ([]byte, bool) {
	for k, v := range md {
		name := strings.TrimPrefix(http.CanonicalHeaderKey(k), "X-Amz-Meta-")
		if strings.EqualFold(name, MetadataHeader) {
			return []byte(v), true
		}
	}
	return nil, false
}

func translateMinioErr(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return NotFoundError{Key: key}
	}
	return err
}
