package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/minio/minio-go/v7"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

const defaultCacheSize = 64

// Loader builds CodeSources from storage locations. Plain paths and any URL
// afs understands are walked recursively; s3://bucket/prefix locations are
// listed through the object store client when one is configured.
// Loaded namespaces are cached per location. A Loader is safe for
// concurrent use.
type Loader struct {
	fs        afs.Service
	store     *minio.Client
	cacheSize int
	cache     *lru.Cache[string, map[string]string]
}

type Option func(*Loader)

// WithObjectStore enables s3:// locations.
func WithObjectStore(client *minio.Client) Option {
	return func(l *Loader) { l.store = client }
}

// WithCacheSize bounds the number of cached locations.
func WithCacheSize(n int) Option {
	return func(l *Loader) { l.cacheSize = n }
}

func NewLoader(opts ...Option) (*Loader, error) {
	l := &Loader{
		fs:        afs.New(),
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	cache, err := lru.New[string, map[string]string](l.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("init source cache: %w", err)
	}
	l.cache = cache
	return l, nil
}

// Load returns every file under location keyed by Key.
func (l *Loader) Load(ctx context.Context, location string) (*CodeSource, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("source location is required")
	}
	if files, ok := l.cache.Get(location); ok {
		return New(files), nil
	}

	var (
		files map[string]string
		err   error
	)
	if bucket, prefix, ok := parseBucketURL(location); ok {
		files, err = l.loadBucket(ctx, bucket, prefix)
	} else {
		files, err = l.loadTree(ctx, location)
	}
	if err != nil {
		return nil, err
	}
	l.cache.Add(location, files)
	return New(files), nil
}

// Forget drops location from the cache so the next Load reads it again.
func (l *Loader) Forget(location string) {
	l.cache.Remove(strings.TrimSpace(location))
}

func (l *Loader) loadTree(ctx context.Context, location string) (map[string]string, error) {
	exists, err := l.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", location, err)
	}
	if !exists {
		return nil, fmt.Errorf("load %s: %w", location, os.ErrNotExist)
	}

	files := map[string]string{}
	var visitor storage.OnVisit = func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		if info.IsDir() {
			return true, nil
		}
		var data []byte
		if reader != nil {
			if data, err = io.ReadAll(reader); err != nil {
				return false, err
			}
		} else {
			fileURL := url.Join(url.Join(baseURL, parent), info.Name())
			if data, err = l.fs.DownloadWithURL(ctx, fileURL); err != nil {
				return false, err
			}
		}
		files[Key(info.Name())] = string(data)
		return true, nil
	}
	if err := l.fs.Walk(ctx, location, visitor); err != nil {
		return nil, fmt.Errorf("load %s: %w", location, err)
	}
	return files, nil
}

func (l *Loader) loadBucket(ctx context.Context, bucket, prefix string) (map[string]string, error) {
	if l.store == nil {
		return nil, fmt.Errorf("load s3://%s/%s: object store is not configured", bucket, prefix)
	}
	files := map[string]string{}
	for obj := range l.store.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, obj.Err)
		}
		if obj.Key == "" || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		data, err := l.getObject(ctx, bucket, obj.Key)
		if err != nil {
			return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, obj.Key, err)
		}
		files[Key(obj.Key)] = string(data)
	}
	return files, nil
}

func (l *Loader) getObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := l.store.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

// parseBucketURL splits s3://bucket/prefix.
func parseBucketURL(location string) (bucket, prefix string, ok bool) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", false
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return bucket, prefix, true
}
