package output

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Uploader copies delivered files into a bucket under Prefix.
type S3Uploader struct {
	S3     s3iface.S3API
	Bucket string
	Prefix string
}

func NewS3Uploader(region, bucket, prefix string) (*S3Uploader, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &S3Uploader{S3: s3.New(sess), Bucket: bucket, Prefix: prefix}, nil
}

// Upload puts localPath at Prefix/key and returns the object key.
func (u *S3Uploader) Upload(ctx context.Context, localPath, key string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	objectKey := path.Join(u.Prefix, filepath.ToSlash(key))
	input := &s3.PutObjectInput{
		Body:   bytes.NewReader(data),
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(objectKey),
	}
	if contentType := mime.TypeByExtension(filepath.Ext(localPath)); contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := u.S3.PutObjectWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload s3://%s/%s: %w", u.Bucket, objectKey, err)
	}
	return objectKey, nil
}
