package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedDiskRoundTrip(t *testing.T) {
	store, err := NewSharedDisk(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write("a.txt", strings.NewReader("hello")))

	exists, err := store.Exists("a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	reader, err := store.Read("a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete("a.txt"))
	require.NoError(t, store.Delete("a.txt"))

	exists, err = store.Exists("a.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Read("a.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestSharedDiskRejectsEscapingPaths(t *testing.T) {
	store, err := NewSharedDisk(t.TempDir())
	require.NoError(t, err)

	for _, path := range []string{"../outside.txt", "a/../../outside.txt", ".", ""} {
		assert.ErrorIs(t, store.Write(path, strings.NewReader("x")), ErrInvalidStoragePath, path)
		_, err := store.Read(path)
		assert.ErrorIs(t, err, ErrInvalidStoragePath, path)
	}
}

func TestSharedDiskUsage(t *testing.T) {
	store, err := NewSharedDisk(t.TempDir())
	require.NoError(t, err)

	usage, err := store.Usage()
	require.NoError(t, err)
	assert.Greater(t, usage.TotalBytes, uint64(0))
	assert.LessOrEqual(t, usage.FreeBytes, usage.TotalBytes)
}

type fakeS3 struct {
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(params.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(input.Key)] = data
	return &manager.UploadOutput{Key: input.Key}, nil
}

func TestS3Storage(t *testing.T) {
	fake := newFakeS3()
	store := newS3Storage(fake, fake, S3Args{Bucket: "catalog", Prefix: "/uploads/"})

	assert.Equal(t, "s3://catalog/uploads", store.Location())

	require.NoError(t, store.Write("doc.pdf", strings.NewReader("pdf-bytes")))
	assert.Contains(t, fake.objects, "uploads/doc.pdf")

	exists, err := store.Exists("doc.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	reader, err := store.Read("doc.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "pdf-bytes", string(data))

	require.NoError(t, store.Delete("doc.pdf"))
	exists, err = store.Exists("doc.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Read("doc.pdf")
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = store.Usage()
	assert.True(t, errors.Is(err, ErrUsageNotSupported))

	assert.ErrorIs(t, store.Write("../escape", strings.NewReader("x")), ErrInvalidStoragePath)
}
