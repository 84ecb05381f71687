package s3service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-eligibility-engine/internal/config"
	s3service "course-eligibility-engine/internal/services/s3"
)

type fakeS3 struct {
	objects map[string][]byte
	headErr error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	return out, nil
}

func newService() (*s3service.Service, *fakeS3) {
	fake := &fakeS3{objects: map[string][]byte{
		"catalog/requirements.csv": []byte("course_id\nA\n"),
		"catalog/quiz/en.yaml":     []byte("language: en"),
		"other/file.txt":           []byte("x"),
	}}
	return s3service.NewWithClient(fake, "catalog-bucket", nil), fake
}

func TestNewService_RequiresBucket(t *testing.T) {
	_, err := s3service.NewService(context.Background(), &config.Config{AWSRegion: "ap-southeast-1"})
	assert.ErrorIs(t, err, s3service.ErrNoBucket)
}

func TestService_DownloadAndUpload(t *testing.T) {
	svc, fake := newService()
	ctx := context.Background()

	data, err := svc.DownloadFile(ctx, "catalog/requirements.csv")
	require.NoError(t, err)
	assert.Equal(t, "course_id\nA\n", string(data))

	_, err = svc.DownloadFile(ctx, "catalog/missing.csv")
	assert.Error(t, err)

	require.NoError(t, svc.UploadFile(ctx, "catalog/tags.yaml", []byte("tags: {}"), "application/yaml"))
	assert.Equal(t, "tags: {}", string(fake.objects["catalog/tags.yaml"]))
	assert.Equal(t, "catalog-bucket", svc.Bucket())
}

func TestService_FileExists(t *testing.T) {
	svc, fake := newService()
	ctx := context.Background()

	ok, err := svc.FileExists(ctx, "catalog/requirements.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.FileExists(ctx, "catalog/requirements.xlsx")
	require.NoError(t, err)
	assert.False(t, ok)

	fake.headErr = errors.New("access denied")
	_, err = svc.FileExists(ctx, "catalog/requirements.csv")
	assert.Error(t, err)
}

func TestService_ListKeys(t *testing.T) {
	svc, _ := newService()

	keys, err := svc.ListKeys(context.Background(), "catalog/quiz/")
	require.NoError(t, err)
	assert.Equal(t, []string{"catalog/quiz/en.yaml"}, keys)
}

func TestService_PresignWithoutClient(t *testing.T) {
	svc, _ := newService()
	_, err := svc.GeneratePresignedUploadURL(context.Background(), "catalog/requirements.csv", "text/csv", 0)
	assert.Error(t, err)
}
