package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
	calls   int
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls++
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func newFake(t *testing.T, objects map[string]string) (*Fetcher, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: objects}
	f := New(WithTempDir(t.TempDir()))
	f.newClient = func(context.Context) (objectGetter, error) { return fake, nil }
	return f, fake
}

func TestFetch_LocalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, os.WriteFile(path, []byte("id\n1\n"), 0o644))

	got, cleanup, err := Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	cleanup()
	_, err = os.Stat(path)
	assert.NoError(t, err, "cleanup must not remove local sources")
}

func TestFetch_MissingLocalPath(t *testing.T) {
	_, cleanup, err := Fetch(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotNil(t, cleanup)
}

func TestFetch_S3(t *testing.T) {
	f, fake := newFake(t, map[string]string{"ledger/2024/jan.csv": "id,amount\n1,10\n"})

	path, cleanup, err := f.Fetch(context.Background(), "s3://ledger/2024/jan.csv")
	require.NoError(t, err)
	assert.Equal(t, ".csv", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,amount\n1,10\n", string(data))
	assert.Equal(t, 1, fake.calls)

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "cleanup removes the downloaded copy")
}

func TestFetch_S3Error(t *testing.T) {
	f, _ := newFake(t, nil)

	_, _, err := f.Fetch(context.Background(), "s3://ledger/missing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://ledger/missing.csv")
}

func TestFetch_ClientError(t *testing.T) {
	f := New()
	f.newClient = func(context.Context) (objectGetter, error) { return nil, errors.New("no credentials") }

	_, _, err := f.Fetch(context.Background(), "s3://bucket/key.csv")
	assert.EqualError(t, err, "no credentials")
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://bucket/file.csv", "bucket", "file.csv", false},
		{"S3://bucket/dir/file.xlsx", "bucket", "dir/file.xlsx", false},
		{"s3://bucket", "", "", true},
		{"s3://bucket/", "", "", true},
		{"s3:///key.csv", "", "", true},
		{"http://bucket/key.csv", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}
