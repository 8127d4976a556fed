package blobs

import (
	"context"
	"mime"
	"path"
	"path/filepath"
)

// ObjectStore is the subset of the MinIO store the object target needs.
type ObjectStore interface {
	Bucket() string
	ObjectSize(ctx context.Context, key string) (int64, bool, error)
	UploadFile(ctx context.Context, key, path, contentType string) error
}

// ObjectTarget uploads to "<Prefix>/<namespace>/<rel>" keys.
type ObjectTarget struct {
	Store  ObjectStore
	Prefix string
}

func (t ObjectTarget) Name() string {
	return "s3://" + path.Join(t.Store.Bucket(), t.Prefix)
}

func (t ObjectTarget) key(ns, rel string) string {
	return path.Join(t.Prefix, ns, filepath.ToSlash(rel))
}

func (t ObjectTarget) Has(ctx context.Context, ns, rel string, size int64) (bool, error) {
	n, found, err := t.Store.ObjectSize(ctx, t.key(ns, rel))
	if err != nil || !found {
		return false, err
	}
	return n == size, nil
}

func (t ObjectTarget) Put(ctx context.Context, ns, rel, src string) error {
	ct := mime.TypeByExtension(filepath.Ext(src))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return t.Store.UploadFile(ctx, t.key(ns, rel), src, ct)
}
