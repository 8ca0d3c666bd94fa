package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const noSuchKey = "NoSuchKey"

type Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Secure    bool   `mapstructure:"secure"`
}

/*
Conn is a bucket-scoped object connection.
*/
type Conn struct {
	client *minio.Client
	bucket string
}

/*
NewConn connects to the object store and creates the bucket when it does not
exist yet.
*/
func NewConn(ctx context.Context, cfg Config) (*Conn, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client for %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)

	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}

	if !exists {
		log.Info("creating bucket", "bucket", cfg.Bucket)

		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Conn{client: client, bucket: cfg.Bucket}, nil
}

/*
Get reads an object. A missing object is reported as found=false without an
error.
*/
func (conn *Conn) Get(ctx context.Context, key string) (data []byte, found bool, err error) {
	object, err := conn.client.GetObject(ctx, conn.bucket, key, minio.GetObjectOptions{})

	if err != nil {
		return nil, false, missing(err)
	}

	defer object.Close()

	if data, err = io.ReadAll(object); err != nil {
		return nil, false, missing(err)
	}

	return data, true, nil
}

func (conn *Conn) Put(ctx context.Context, key string, data []byte) error {
	_, err := conn.client.PutObject(
		ctx, conn.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)

	return err
}

func (conn *Conn) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := conn.client.StatObject(ctx, conn.bucket, key, minio.StatObjectOptions{}); err != nil {
		return false, missing(err)
	}

	return true, nil
}

// missing maps the object store's not-found response to a nil error.
func missing(err error) error {
	if minio.ToErrorResponse(err).Code == noSuchKey {
		return nil
	}

	return err
}
