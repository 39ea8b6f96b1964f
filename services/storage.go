package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"legalflow/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ObjectStore stores uploaded documents and generated files.
type ObjectStore interface {
	Put(ctx context.Context, r io.Reader, key, contentType string, size int64) (*StoredObject, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Remove(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// StoredObject describes a stored file
type StoredObject struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Storage is the process-wide object store
var Storage ObjectStore

// InitializeStorage uses S3-compatible storage (Cloudflare R2) when its
// credentials are set and reachable, the local disk otherwise.
func InitializeStorage(cfg *config.Config) {
	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" {
		Storage = NewDiskStore(cfg.UploadDir)
		log.Info().Str("dir", cfg.UploadDir).Msg("Storage ready (local disk)")
		return
	}

	store, err := NewBucketStore(cfg)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, err = store.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(store.bucket)})
	}
	if err != nil {
		log.Warn().Err(err).Msg("Bucket storage unavailable, falling back to local disk")
		Storage = NewDiskStore(cfg.UploadDir)
		return
	}

	Storage = store
	log.Info().Str("bucket", cfg.R2BucketName).Msg("Storage ready (R2)")
}

// BucketStore keeps objects in an S3-compatible bucket
type BucketStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// NewBucketStore builds a client for https://<account>.r2.cloudflarestorage.com.
func NewBucketStore(cfg *config.Config) (*BucketStore, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &BucketStore{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.R2BucketName,
	}, nil
}

func (b *BucketStore) Put(ctx context.Context, r io.Reader, key, contentType string, size int64) (*StoredObject, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, &ExternalServiceError{Service: "storage", Err: err}
	}
	return &StoredObject{Key: key, Size: size, ContentType: contentType}, nil
}

func (b *BucketStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", &ExternalServiceError{Service: "storage", Err: err}
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

func (b *BucketStore) Remove(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &ExternalServiceError{Service: "storage", Err: err}
	}
	return nil
}

func (b *BucketStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// DiskStore keeps objects under a local directory
type DiskStore struct {
	root string
}

func NewDiskStore(root string) *DiskStore {
	return &DiskStore{root: root}
}

func (d *DiskStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", invalid("key", "empty storage key")
	}
	return filepath.Join(d.root, clean), nil
}

func (d *DiskStore) Put(ctx context.Context, r io.Reader, key, contentType string, size int64) (*StoredObject, error) {
	full, err := d.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	return &StoredObject{Key: key, Size: written, ContentType: contentType}, nil
}

func (d *DiskStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	full, err := d.path(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", notFound("File", key)
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, contentTypeFor(key), nil
}

func (d *DiskStore) Remove(ctx context.Context, key string) error {
	full, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// SignedURL returns the static path; local files are served unsigned.
func (d *DiskStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "/" + path.Join(filepath.ToSlash(d.root), key), nil
}

func contentTypeFor(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// StoreUpload copies a multipart upload into the store.
func StoreUpload(ctx context.Context, store ObjectStore, file *multipart.FileHeader, key string) (*StoredObject, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFor(file.Filename)
	}
	return store.Put(ctx, src, key, contentType, file.Size)
}

// OfficeObjectKey namespaces keys by office so tenants never share a prefix:
// offices/<office>/<area>/<owner>/<uuid><ext>
func OfficeObjectKey(officeID, area, ownerID, filename string) string {
	return path.Join("offices", officeID, area, ownerID, uuid.New().String()+strings.ToLower(filepath.Ext(filename)))
}
