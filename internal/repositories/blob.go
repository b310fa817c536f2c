package repositories

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rohittcodes/flashio-sub001/internal/logging"
)

var (
	BlobClient   *s3.Client
	BlobBucket   string
	BlobEndpoint string
)

// InitBlobStore initializes the S3 client for the R2 bucket using static
// credentials and a custom endpoint.
func InitBlobStore(accessKey, secretKey, accountID, bucketName, region string) error {
	BlobBucket = bucketName
	BlobEndpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)

	cfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		Region:      region,
	}

	BlobClient = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(BlobEndpoint)
		o.UsePathStyle = true
	})

	logging.Info("Successfully initialized blob store client")

	return nil
}

// PutObject uploads content under the given key.
func PutObject(ctx context.Context, key string, content []byte) error {
	_, err := BlobClient.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(BlobBucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	})
	return err
}

// GetObject downloads the full content stored under the given key.
func GetObject(ctx context.Context, key string) ([]byte, error) {
	out, err := BlobClient.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(BlobBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// DeleteObject removes the object stored under the given key.
func DeleteObject(ctx context.Context, key string) error {
	_, err := BlobClient.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(BlobBucket),
		Key:    aws.String(key),
	})
	return err
}

// VerifyObjectExists checks if a given object key exists in the bucket.
// Returns true if the object exists, false if not, and an error if something went wrong.
func VerifyObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := BlobClient.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(BlobBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NotFound
		if ok := errors.As(err, &nsk); ok {
			// Object not found
			return false, nil
		}
		// Other error (e.g. auth, network)
		return false, err
	}
	return true, nil
}
