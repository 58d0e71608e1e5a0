package blobstore

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
)

const checksumMetaKey = "blake2b"

// S3API is the part of *s3.Client the backend uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Options configures a MinIO or AWS S3 connection.
type S3Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

// NewS3Client builds a path-style S3 client with static credentials.
func NewS3Client(ctx context.Context, o S3Options) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(opts *s3.Options) {
		if o.BaseEndpoint != "" {
			opts.BaseEndpoint = aws.String(o.BaseEndpoint)
		}
		opts.UsePathStyle = true
	}), nil
}

// S3Backend stores one object per chunk under chunks/<objectID>/<seq>.
type S3Backend struct {
	client S3API
	bucket string
}

func NewS3Backend(client S3API, bucket string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket}
}

func chunkPrefix(objectID string) string {
	return "chunks/" + objectID + "/"
}

func chunkKeyFor(objectID string, seq int) string {
	return chunkPrefix(objectID) + strconv.Itoa(seq)
}

func (b *S3Backend) PutChunk(ctx context.Context, c *models.Chunk) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(chunkKeyFor(c.ObjectID, c.Seq)),
		Body:          bytes.NewReader(c.Data),
		ContentLength: aws.Int64(int64(len(c.Data))),
		Metadata:      map[string]string{checksumMetaKey: hex.EncodeToString(c.Checksum)},
	})
	if err != nil {
		return fmt.Errorf("s3 put chunk: %w", err)
	}
	return nil
}

func (b *S3Backend) GetChunk(ctx context.Context, objectID string, seq int) (*models.Chunk, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(chunkKeyFor(objectID, seq)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("s3 get chunk: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read chunk: %w", err)
	}
	sum, err := hex.DecodeString(out.Metadata[checksumMetaKey])
	if err != nil {
		return nil, fmt.Errorf("%w: bad checksum metadata", common.ErrChunkCorrupted)
	}
	return &models.Chunk{ObjectID: objectID, Seq: seq, Data: data, Checksum: sum}, nil
}

func (b *S3Backend) DeleteChunks(ctx context.Context, objectID string) error {
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(chunkPrefix(objectID)),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 list chunks: %w", err)
		}
		if len(page.Contents) == 0 {
			continue
		}
		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, o := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: o.Key})
		}
		out, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("s3 delete chunks: %w", err)
		}
		if len(out.Errors) > 0 {
			return fmt.Errorf("s3 delete chunks: %s", aws.ToString(out.Errors[0].Message))
		}
	}
	return nil
}
