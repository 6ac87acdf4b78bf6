package gateways

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/threatfeed/internal/domain/entities"
	"github.com/ochairo/threatfeed/internal/external-adapters/yaml"
)

// fakeS3 records uploads in memory
type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, params)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{ETag: aws.String(`"etag"`)}, nil
}

func TestS3Archiver_ArchiveSnapshot(t *testing.T) {
	fake := &fakeS3{}
	archiver := NewS3Archiver(fake, "feeds", "/threatfeed/", yaml.FormatJSON)
	snapshot := notifierSnapshot()
	snapshot.SectionSHA256 = "abc123"

	uri, err := archiver.ArchiveSnapshot(context.Background(), snapshot)

	require.NoError(t, err)
	assert.Equal(t, "s3://feeds/threatfeed/2024/05/02/run-1.json", uri)
	require.Len(t, fake.inputs, 1)

	input := fake.inputs[0]
	assert.Equal(t, "feeds", aws.ToString(input.Bucket))
	assert.Equal(t, "threatfeed/2024/05/02/run-1.json", aws.ToString(input.Key))
	assert.Equal(t, "application/json", aws.ToString(input.ContentType))
	assert.Equal(t, "abc123", input.Metadata["section-sha256"])

	var uploaded entities.Snapshot
	require.NoError(t, json.Unmarshal(fake.bodies[0], &uploaded))
	assert.Equal(t, "run-1", uploaded.RunID)
	assert.Len(t, uploaded.Vulnerabilities, 2)
}

func TestS3Archiver_YAMLWithoutPrefix(t *testing.T) {
	fake := &fakeS3{}
	archiver := NewS3Archiver(fake, "feeds", "", yaml.FormatYAML)

	uri, err := archiver.ArchiveSnapshot(context.Background(), notifierSnapshot())

	require.NoError(t, err)
	assert.Equal(t, "s3://feeds/2024/05/02/run-1.yml", uri)
	assert.Equal(t, "application/yaml", aws.ToString(fake.inputs[0].ContentType))
}

func TestS3Archiver_UploadError(t *testing.T) {
	fake := &fakeS3{err: errors.New("AccessDenied")}
	archiver := NewS3Archiver(fake, "feeds", "p", "")

	_, err := archiver.ArchiveSnapshot(context.Background(), notifierSnapshot())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://feeds/p/2024/05/02/run-1.json")
	assert.Contains(t, err.Error(), "AccessDenied")
}
