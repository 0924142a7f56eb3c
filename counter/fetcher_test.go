package counter

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
)

type staticOpener struct {
	bucket Bucket
}

func (opener *staticOpener) Open(ctx context.Context, bucketName string) (Bucket, error) {
	return opener.bucket, nil
}

func newMemFetcher(t *testing.T, objects map[string][]byte) *Fetcher {
	t.Helper()
	memBucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { memBucket.Close() })
	for key, content := range objects {
		assert.Nil(t, memBucket.WriteAll(context.Background(), key, content, nil))
	}
	return NewFetcher(&staticOpener{bucket: NewBlobBucket(memBucket)})
}

func gzipped(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	_, err := writer.Write([]byte(content))
	assert.Nil(t, err)
	assert.Nil(t, writer.Close())
	return buf.Bytes()
}

func collectLines(t *testing.T, iterator *LineIterator) []string {
	t.Helper()
	var lines []string
	for iterator.Next() {
		lines = append(lines, iterator.Text())
	}
	assert.Nil(t, iterator.Err())
	assert.Nil(t, iterator.Close())
	return lines
}

func TestFetch(t *testing.T) {
	t.Run("PlainObject", func(t *testing.T) {
		fetcher := newMemFetcher(t, map[string][]byte{"2026/08/23/1234.log": []byte("first line\nsecond line\n")})
		iterator, err := fetcher.Fetch(context.Background(), "fastly-logs", "2026/08/23/1234.log")
		assert.Nil(t, err)
		assert.Equal(t, []string{"first line", "second line"}, collectLines(t, iterator))
	})
	t.Run("GzippedObject", func(t *testing.T) {
		fetcher := newMemFetcher(t, map[string][]byte{"2026/08/23/1234.log.gz": gzipped(t, "first line\nsecond line\n")})
		iterator, err := fetcher.Fetch(context.Background(), "fastly-logs", "2026/08/23/1234.log.gz")
		assert.Nil(t, err)
		assert.Equal(t, []string{"first line", "second line"}, collectLines(t, iterator))
	})
	t.Run("CorruptGzip", func(t *testing.T) {
		fetcher := newMemFetcher(t, map[string][]byte{"bad.log.gz": []byte("this is not gzip data")})
		_, err := fetcher.Fetch(context.Background(), "fastly-logs", "bad.log.gz")
		assert.NotNil(t, err)
	})
	t.Run("MissingObject", func(t *testing.T) {
		fetcher := newMemFetcher(t, nil)
		_, err := fetcher.Fetch(context.Background(), "fastly-logs", "no/such/object.log")
		assert.NotNil(t, err)
	})
}

func TestBucketOpener(t *testing.T) {
	t.Run("FileSchemeAppendsBucketPath", func(t *testing.T) {
		baseDir := t.TempDir()
		assert.Nil(t, os.Mkdir(filepath.Join(baseDir, "fastly-logs"), 0755))
		opener, err := NewBucketOpener(storeConfigStub{bucketURL: "file://" + baseDir})
		assert.Nil(t, err)
		bucket, err := opener.Open(context.Background(), "fastly-logs")
		assert.Nil(t, err)
		assert.NotNil(t, bucket)
	})
	t.Run("OpenedBucketCached", func(t *testing.T) {
		baseDir := t.TempDir()
		assert.Nil(t, os.Mkdir(filepath.Join(baseDir, "fastly-logs"), 0755))
		opener, err := NewBucketOpener(storeConfigStub{bucketURL: "file://" + baseDir})
		assert.Nil(t, err)
		first, err := opener.Open(context.Background(), "fastly-logs")
		assert.Nil(t, err)
		second, err := opener.Open(context.Background(), "fastly-logs")
		assert.Nil(t, err)
		assert.Same(t, first, second)
	})
	t.Run("HostCarriesBucketName", func(t *testing.T) {
		opener, err := NewBucketOpener(storeConfigStub{bucketURL: "s3://placeholder?region=us-west-2"})
		assert.Nil(t, err)
		var openedURL string
		oldOpenBucket := openBucket
		openBucket = func(ctx context.Context, bucketURL string) (*blob.Bucket, error) {
			openedURL = bucketURL
			return memblob.OpenBucket(nil), nil
		}
		defer func() { openBucket = oldOpenBucket }()
		_, err = opener.Open(context.Background(), "fastly-logs")
		assert.Nil(t, err)
		assert.Equal(t, "s3://fastly-logs?region=us-west-2", openedURL)
	})
	t.Run("InvalidBaseURL", func(t *testing.T) {
		_, err := NewBucketOpener(storeConfigStub{bucketURL: "://not-a-url"})
		assert.NotNil(t, err)
	})
}

type storeConfigStub struct {
	bucketURL string
}

func (stub storeConfigStub) GetLogBucketURL() string {
	return stub.bucketURL
}
