package gateways

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"

	"github.com/ochairo/threatfeed/internal/domain/entities"
	"github.com/ochairo/threatfeed/internal/external-adapters/yaml"
)

// S3PutObjectAPI is the part of the S3 client the archiver needs
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads run snapshots to an S3 bucket
type S3Archiver struct {
	client S3PutObjectAPI
	bucket string
	prefix string
	format yaml.Format
	codec  *yaml.SnapshotCodec
}

// NewS3Client builds an S3 client from the default AWS credential chain.
// endpoint is optional and enables path-style addressing for S3-compatible stores.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load SDK config")
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Archiver creates an archiver writing to bucket under prefix
func NewS3Archiver(client S3PutObjectAPI, bucket, prefix string, format yaml.Format) *S3Archiver {
	if format == "" {
		format = yaml.FormatJSON
	}
	return &S3Archiver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		format: format,
		codec:  yaml.NewSnapshotCodec(),
	}
}

// ArchiveSnapshot uploads the snapshot and returns its s3:// URI.
// Keys are laid out as <prefix>/YYYY/MM/DD/<run id>.<ext>.
func (a *S3Archiver) ArchiveSnapshot(ctx context.Context, snapshot *entities.Snapshot) (string, error) {
	body, err := a.codec.Encode(snapshot, a.format)
	if err != nil {
		return "", err
	}

	key := a.objectKey(snapshot)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(a.format.ContentType()),
		Metadata: map[string]string{
			"run-id":         snapshot.RunID,
			"section-sha256": snapshot.SectionSHA256,
		},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload s3://%s/%s", a.bucket, key)
	}

	return "s3://" + a.bucket + "/" + key, nil
}

func (a *S3Archiver) objectKey(snapshot *entities.Snapshot) string {
	day := snapshot.GeneratedAt.UTC().Format("2006/01/02")
	name := snapshot.RunID + "." + a.format.Extension()
	if a.prefix == "" {
		return path.Join(day, name)
	}
	return path.Join(a.prefix, day, name)
}
