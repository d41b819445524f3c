package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/tanq16/mediafetch/internal/utils"
	"golang.org/x/time/rate"
)

// objectAPI is the subset of the S3 client the downloader calls.
type objectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	s3.ListObjectsV2APIClient
}

type s3Object struct {
	Key  string
	Size int64
}

var newObjectClient = func(ctx context.Context, profile string) (objectAPI, error) {
	opts := []func(*config.LoadOptions) error{config.WithRetryMode(aws.RetryModeAdaptive)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func getS3ObjectInfo(ctx context.Context, bucket, key string, client objectAPI) (string, int64, error) {
	headObj, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return "file", aws.ToInt64(headObj.ContentLength), nil
	}

	result, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return "", 0, fmt.Errorf("error accessing S3 object: %w", err)
	}
	if len(result.Contents) > 0 || len(result.CommonPrefixes) > 0 {
		return "folder", 0, nil
	}
	return "", 0, errors.New("S3 object not found")
}

func listS3Objects(ctx context.Context, bucket, prefix string, client objectAPI) ([]s3Object, error) {
	var objects []s3Object
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || obj.Size == nil {
				continue
			}
			// 0-byte keys ending in "/" are folder markers
			if *obj.Size == 0 && strings.HasSuffix(*obj.Key, "/") {
				continue
			}
			objects = append(objects, s3Object{Key: *obj.Key, Size: *obj.Size})
		}
	}
	return objects, nil
}

// fetchObject writes the object (or the given range of it) to path and calls
// report after every block written.
func fetchObject(ctx context.Context, client objectAPI, bucket, key string, rng *utils.ByteRange, path string, limiter *rate.Limiter, report func(int64)) (int64, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if rng != nil {
		input.Range = aws.String(fmt.Sprintf("bytes=%d-%d", rng.Start, rng.End))
	}
	result, err := client.GetObject(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("error getting object: %w", err)
	}
	defer result.Body.Close()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("error creating file: %w", err)
	}
	defer file.Close()

	dst := utils.NewRateLimitedWriter(ctx, file, limiter)
	buffer := make([]byte, utils.DefaultBufferSize)
	var written int64
	for {
		n, err := result.Body.Read(buffer)
		if n > 0 {
			if _, writeErr := dst.Write(buffer[:n]); writeErr != nil {
				return written, fmt.Errorf("error writing file: %w", writeErr)
			}
			written += int64(n)
			if report != nil {
				report(int64(n))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, fmt.Errorf("error reading object: %w", err)
		}
	}
	if rng != nil && written != rng.Len() {
		return written, fmt.Errorf("%w: expected %d bytes, got %d", utils.ErrSizeMismatch, rng.Len(), written)
	}
	return written, file.Sync()
}
