package counter

import (
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"net/url"
	"strings"
	"sync"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/gemstats/download-counter/config"
)

const gzipObjectSuffix = ".gz"

// Bucket defines the read interface for cloud storage operations.
type Bucket interface {
	NewReader(ctx context.Context, key string, opts *blob.ReaderOptions) (Reader, error)
}

// Reader defines the interface for reading from cloud storage objects.
type Reader interface {
	io.ReadCloser
	Size() int64
}

// blobBucket implements the Bucket interface using "gocloud.dev/blob".
type blobBucket struct {
	*blob.Bucket
}

// NewReader creates a new Reader for the given object key.
func (b *blobBucket) NewReader(ctx context.Context, key string, opts *blob.ReaderOptions) (Reader, error) {
	return b.Bucket.NewReader(ctx, key, opts)
}

// NewBlobBucket creates a new Bucket using "gocloud.dev/blob".
func NewBlobBucket(bucket *blob.Bucket) Bucket {
	return &blobBucket{bucket}
}

// BucketOpener resolves a bucket name from a storage event notification to
// an open Bucket handle.
type BucketOpener interface {
	Open(ctx context.Context, bucketName string) (Bucket, error)
}

// blobBucketOpener opens buckets through "gocloud.dev/blob" URLs derived
// from the configured log bucket URL; scheme and query parameters (region,
// endpoint and the like) are retained while the bucket name is swapped in.
type blobBucketOpener struct {
	baseURL *url.URL
	mu      sync.Mutex
	opened  map[string]Bucket
}

// NewBucketOpener creates a BucketOpener from the configured log bucket URL
func NewBucketOpener(objectStoreConfig config.ObjectStoreConfig) (BucketOpener, error) {
	baseURL, err := url.Parse(objectStoreConfig.GetLogBucketURL())
	if err != nil {
		return nil, err
	}
	return &blobBucketOpener{baseURL: baseURL, opened: make(map[string]Bucket)}, nil
}

func (opener *blobBucketOpener) Open(ctx context.Context, bucketName string) (Bucket, error) {
	opener.mu.Lock()
	defer opener.mu.Unlock()
	if bucket, ok := opener.opened[bucketName]; ok {
		return bucket, nil
	}
	bucketURL := *opener.baseURL
	if bucketURL.Scheme == "file" {
		bucketURL.Path = strings.TrimSuffix(bucketURL.Path, "/") + "/" + bucketName
	} else {
		bucketURL.Host = bucketName
	}
	blobBkt, err := openBucket(ctx, bucketURL.String())
	if err != nil {
		return nil, err
	}
	bucket := NewBlobBucket(blobBkt)
	opener.opened[bucketName] = bucket
	return bucket, nil
}

var openBucket = func(ctx context.Context, bucketURL string) (*blob.Bucket, error) {
	return blob.OpenBucket(ctx, bucketURL)
}

// LineIterator exposes a byte stream as a lazy, forward-only sequence of
// log lines; each line is read once and never materialized as a whole file.
type LineIterator struct {
	scanner *bufio.Scanner
	closers []io.Closer
}

// NewLineIterator wraps the reader in a line iterator; closers are closed
// in order when the iterator is closed
func NewLineIterator(r io.Reader, closers ...io.Closer) *LineIterator {
	scanner := bufio.NewScanner(r)
	// CDN log lines carry long URLs and user agents; the default token
	// size limit is too small
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &LineIterator{scanner: scanner, closers: closers}
}

// Next advances to the next line, false at stream end or on read error
func (iterator *LineIterator) Next() bool {
	return iterator.scanner.Scan()
}

// Text retrieves the current line
func (iterator *LineIterator) Text() string {
	return iterator.scanner.Text()
}

// Err retrieves the first error hit while streaming, nil on clean EOF
func (iterator *LineIterator) Err() error {
	return iterator.scanner.Err()
}

// Close closes the underlying readers
func (iterator *LineIterator) Close() error {
	var firstErr error
	for _, closer := range iterator.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Fetcher resolves a (bucket, objectKey) pair to a decompressed line stream
type Fetcher struct {
	opener BucketOpener
}

// NewFetcher creates a Fetcher on top of the bucket opener
func NewFetcher(opener BucketOpener) *Fetcher {
	return &Fetcher{opener: opener}
}

// Fetch retrieves the log object and exposes it as a line iterator,
// transparently gunzipping objects with a .gz key suffix. Transport and
// decompression errors propagate unrecovered; retry is the queue's concern.
func (fetcher *Fetcher) Fetch(ctx context.Context, bucket, objectKey string) (*LineIterator, error) {
	bkt, err := fetcher.opener.Open(ctx, bucket)
	if err != nil {
		return nil, err
	}
	reader, err := bkt.NewReader(ctx, objectKey, nil)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(objectKey, gzipObjectSuffix) {
		return NewLineIterator(reader, reader), nil
	}
	gzipReader, err := gzip.NewReader(reader)
	if err != nil {
		reader.Close()
		return nil, err
	}
	return NewLineIterator(gzipReader, gzipReader, reader), nil
}
