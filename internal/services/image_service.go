package services

import (
	"context"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageService signs read URLs for catalog imagery kept in object storage.
type ImageService interface {
	GetPresignedURL(ctx context.Context, objectName string) (string, error)
	BucketExists(ctx context.Context) (bool, error)
}

type minioClient struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewMinioImageService(endpoint, accessKey, secretKey string, useSSL bool, bucket string, expiry time.Duration) (ImageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioClient{client: client, bucket: bucket, expiry: expiry}, nil
}

func (m *minioClient) GetPresignedURL(ctx context.Context, objectName string) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, m.expiry, nil)
	if err != nil {
		return "", err
	}
	return url.String(), nil
}

func (m *minioClient) BucketExists(ctx context.Context) (bool, error) {
	return m.client.BucketExists(ctx, m.bucket)
}
