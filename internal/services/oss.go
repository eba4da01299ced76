package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dmail-project/dmail-backend/internal/config"
	"github.com/dmail-project/dmail-backend/internal/database"
	"github.com/dmail-project/dmail-backend/internal/models"
)

// ObjectStore wraps the S3-compatible backend used for file and image
// attachments. The server never proxies bytes, it only presigns URLs and
// verifies uploads afterwards.
type ObjectStore struct {
	client *s3.S3
	bucket string
}

// ObjectMeta is what a HEAD returns about an uploaded object.
type ObjectMeta struct {
	ETag string
	Size uint64
}

var OSS *ObjectStore

var ErrObjectNotFound = fmt.Errorf("object not found")

// InitOSS builds the shared S3 client from config. Returns nil without error
// when the object store is disabled.
func InitOSS(cfg *config.S3Config) error {
	if !cfg.Enable {
		logrus.Info("object store disabled")
		return nil
	}
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(cfg.Region),
		Endpoint:         aws.String(cfg.Endpoint),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("create s3 session: %w", err)
	}
	OSS = &ObjectStore{client: s3.New(sess), bucket: cfg.BucketName}
	logrus.WithField("bucket", cfg.BucketName).Info("object store connected")
	return nil
}

// NewObjectPath allocates a fresh object key preserving the client-supplied
// suffix so stored files keep a usable extension.
func NewObjectPath(suffix string) string {
	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	return "/" + name + suffix
}

// PresignPut returns a URL the client can PUT the object to, valid for
// expireSec seconds.
func (o *ObjectStore) PresignPut(path string, expireSec int64) (string, error) {
	req, _ := o.client.PutObjectRequest(&s3.PutObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(path),
	})
	url, err := req.Presign(time.Duration(expireSec) * time.Second)
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", path, err)
	}
	return url, nil
}

// PresignGet returns a download URL for the object, valid for expireSec
// seconds.
func (o *ObjectStore) PresignGet(path string, expireSec int64) (string, error) {
	req, _ := o.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(path),
	})
	url, err := req.Presign(time.Duration(expireSec) * time.Second)
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", path, err)
	}
	return url, nil
}

// Head fetches the stored object's ETag and size. ErrObjectNotFound when the
// client never completed the upload.
func (o *ObjectStore) Head(ctx context.Context, path string) (ObjectMeta, error) {
	out, err := o.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if aerr, ok := err.(awserr.RequestFailure); ok && aerr.StatusCode() == 404 {
			return ObjectMeta{}, ErrObjectNotFound
		}
		return ObjectMeta{}, fmt.Errorf("head %s: %w", path, err)
	}
	meta := ObjectMeta{}
	if out.ETag != nil {
		meta.ETag = strings.Trim(*out.ETag, `"`)
	}
	if out.ContentLength != nil {
		meta.Size = uint64(*out.ContentLength)
	}
	return meta, nil
}

// PublicURL returns the cached presigned GET for a content hash, renewing it
// when expired. ok is false when the hash was never uploaded.
func (o *ObjectStore) PublicURL(ctx context.Context, hash string) (string, bool, error) {
	cached, ok, err := database.GetFilePublicURL(ctx, hash)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	now := models.Timestamp(time.Now().UnixMilli())
	if cached.Expire > now {
		return cached.URL, true, nil
	}

	expireSec := config.Get().S3.PresignGetExpire
	url, err := o.PresignGet(cached.Path, expireSec)
	if err != nil {
		return "", false, err
	}
	renewed := database.PresignURL{
		Path:   cached.Path,
		URL:    url,
		Expire: now + models.Timestamp(expireSec*1000),
	}
	if err := database.WriteFilePublicURL(ctx, hash, renewed); err != nil {
		return "", false, err
	}
	return url, true, nil
}

// StorePublicURL presigns a fresh GET for a newly uploaded object and caches
// it under the content hash.
func (o *ObjectStore) StorePublicURL(ctx context.Context, hash, path string) (string, error) {
	expireSec := config.Get().S3.PresignGetExpire
	url, err := o.PresignGet(path, expireSec)
	if err != nil {
		return "", err
	}
	entry := database.PresignURL{
		Path:   path,
		URL:    url,
		Expire: models.Timestamp(time.Now().UnixMilli()) + models.Timestamp(expireSec*1000),
	}
	if err := database.WriteFilePublicURL(ctx, hash, entry); err != nil {
		return "", err
	}
	return url, nil
}
