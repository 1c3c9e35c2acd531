package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
)

// Cache policy split: image objects are content-addressed per user folder and
// may be cached, catalog documents must always revalidate.
const (
	imageCacheControl   = "public, max-age=3600, s-maxage=600"
	catalogCacheControl = "public, max-age=0, s-maxage=0"

	visibilityTag = "visibility"
	visibleValue  = "public"
)

// S3Store adapts a MinIO bucket to the catalog and workflow object
// interfaces. Visibility is tracked with an object tag so it survives copies
// and is cheap to read back.
type S3Store struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

func NewS3Store(client *minio.Client, bucket, publicBaseURL string) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        strings.TrimSpace(bucket),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
}

func (s *S3Store) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if s.client == nil {
		return nil, fmt.Errorf("s3 client is nil")
	}

	var keys []string
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects under %q: %w", prefix, object.Err)
		}
		keys = append(keys, object.Key)
	}

	return keys, nil
}

func (s *S3Store) IsPublic(ctx context.Context, key string) (bool, error) {
	if s.client == nil {
		return false, fmt.Errorf("s3 client is nil")
	}

	objectTags, err := s.client.GetObjectTagging(ctx, s.bucket, key, minio.GetObjectTaggingOptions{})
	if err != nil {
		return false, fmt.Errorf("read tags of %q: %w", key, err)
	}

	return objectTags.ToMap()[visibilityTag] == visibleValue, nil
}

// MakePublic marks the object public and stamps the image caching directive.
// A self-copy is the only way to rewrite metadata in place.
func (s *S3Store) MakePublic(ctx context.Context, key string) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}

	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{
			Bucket:          s.bucket,
			Object:          key,
			ReplaceMetadata: true,
			UserMetadata: map[string]string{
				"Cache-Control": imageCacheControl,
				"Content-Type":  contentTypeByExt(key),
			},
			ReplaceTags: true,
			UserTags: map[string]string{
				visibilityTag: visibleValue,
			},
		},
		minio.CopySrcOptions{
			Bucket: s.bucket,
			Object: key,
		})
	if err != nil {
		return fmt.Errorf("publish %q: %w", key, err)
	}

	return nil
}

func (s *S3Store) WriteJSON(ctx context.Context, key string, data []byte) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "application/json",
		CacheControl: catalogCacheControl,
		UserTags: map[string]string{
			visibilityTag: visibleValue,
		},
	})
	if err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}

	return nil
}

func (s *S3Store) ReadJSON(ctx context.Context, key string) ([]byte, error) {
	if s.client == nil {
		return nil, fmt.Errorf("s3 client is nil")
	}

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", key, err)
	}
	defer func() { _ = object.Close() }()

	data, err := io.ReadAll(object)
	if err != nil {
		// GetObject defers the existence check to the first read.
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("read %q: %w", key, err)
	}

	return data, nil
}

// RemovePrefix deletes every object under the prefix. Used to tear down a
// user's whole submission folder in one call.
func (s *S3Store) RemovePrefix(ctx context.Context, prefix string) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}

	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if object.Err != nil {
				continue
			}
			objectsCh <- object
		}
	}()

	var firstErr error
	for removeErr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if removeErr.Err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove %q: %w", removeErr.ObjectName, removeErr.Err)
		}
	}
	if firstErr != nil {
		return firstErr
	}

	return nil
}

func (s *S3Store) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key)
}

func contentTypeByExt(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".avif":
		return "image/avif"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
