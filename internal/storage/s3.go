// Package storage publishes produced videos to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// Options selects the bucket and endpoint; credentials come from the
// standard AWS environment/shared config chain.
type Options struct {
	Bucket         string
	Prefix         string
	Region         string
	Endpoint       string
	ForcePathStyle bool
}

type S3Publisher struct {
	api    s3iface.S3API
	bucket string
	prefix string
}

func NewS3Publisher(opts Options) (*S3Publisher, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("publish bucket is required")
	}

	cfg := &aws.Config{
		Region:           aws.String(opts.Region),
		S3ForcePathStyle: aws.Bool(opts.ForcePathStyle),
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating aws session: %w", err)
	}

	return newS3Publisher(s3.New(sess), opts), nil
}

func newS3Publisher(api s3iface.S3API, opts Options) *S3Publisher {
	return &S3Publisher{
		api:    api,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
	}
}

// Key is the object key a local file is stored under.
func (p *S3Publisher) Key(localPath string) string {
	return path.Join(p.prefix, filepath.Base(localPath))
}

// Publish uploads the file at localPath and returns its s3:// URL.
func (p *S3Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	key := p.Key(localPath)
	_, err = p.api.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}
