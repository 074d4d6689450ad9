package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectNotFound is returned by Load when the object is missing or expired.
var ErrObjectNotFound = errors.New("object not found")

// Object is a stored file together with its metadata.
type Object struct {
	Body         io.ReadCloser
	ContentType  string
	Size         int64
	LastModified time.Time
}

// Storage provides an S3-compatible storage backend using MinIO.
// It stores screenshots in a bucket under different subdirectories.
type Storage struct {
	client     *minio.Client
	bucketName string
	ttl        time.Duration
}

// NewStorage creates a new Storage instance connected to the specified MinIO server.
// If the bucket does not exist, it will be created automatically.
// Objects older than ttl are treated as missing; a zero ttl keeps them forever.
func NewStorage(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool, ttl time.Duration) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: bucketName,
		ttl:        ttl,
	}, nil
}

// Save uploads data to the specified subdirectory in the bucket.
// Returns the object path within the bucket.
func (s *Storage) Save(ctx context.Context, subdir, filename string, src io.Reader, size int64, contentType string) (string, error) {
	objectName := path.Join(subdir, filename)

	_, err := s.client.PutObject(ctx, s.bucketName, objectName, src, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return objectName, nil
}

// Load retrieves the object at path.
// The caller must close the returned body.
func (s *Storage) Load(ctx context.Context, path string) (Object, error) {
	info, err := s.client.StatObject(ctx, s.bucketName, path, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return Object{}, ErrObjectNotFound
		}
		return Object{}, fmt.Errorf("failed to stat file: %w", err)
	}

	if s.expired(info.LastModified) {
		return Object{}, ErrObjectNotFound
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, path, minio.GetObjectOptions{})
	if err != nil {
		return Object{}, fmt.Errorf("failed to load file: %w", err)
	}

	return Object{
		Body:         obj,
		ContentType:  info.ContentType,
		Size:         info.Size,
		LastModified: info.LastModified,
	}, nil
}

// Delete removes the specified file from the bucket.
func (s *Storage) Delete(ctx context.Context, path string) error {
	return s.client.RemoveObject(ctx, s.bucketName, path, minio.RemoveObjectOptions{})
}

// ListExpired returns the paths under prefix that are older than the storage ttl.
func (s *Storage) ListExpired(ctx context.Context, prefix string) ([]string, error) {
	if s.ttl <= 0 {
		return nil, nil
	}

	var paths []string
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return paths, fmt.Errorf("failed to list files: %w", obj.Err)
		}
		if s.expired(obj.LastModified) {
			paths = append(paths, obj.Key)
		}
	}

	return paths, nil
}

func (s *Storage) expired(modified time.Time) bool {
	return s.ttl > 0 && time.Since(modified) > s.ttl
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
