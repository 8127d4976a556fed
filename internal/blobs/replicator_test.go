package blobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/reconcile"
)

var (
	group   = models.TenantGroup{ID: 3, Name: "default"}
	discard = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func TestReplicate_FilesystemMerge(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{
		"2024/a/b/c/d/one.jpg": "one",
		"2024/a/b/c/d/two.jpg": "second",
	})
	writeTree(t, filepath.Join(dst, "group_3"), map[string]string{"manual.txt": "kept"})

	r := NewReplicator(discard, Tree{Kind: "screenshots", Source: src, Target: FSTarget{Root: dst}})

	reports, err := r.Replicate(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, []reconcile.BlobReport{{Kind: "screenshots", Target: dst, Copied: 2, Bytes: 9}}, reports)

	got, err := os.ReadFile(filepath.Join(dst, "group_3", "2024/a/b/c/d/two.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
	assert.FileExists(t, filepath.Join(dst, "group_3", "manual.txt"))

	reports, err = r.Replicate(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, 0, reports[0].Copied)
	assert.Equal(t, 2, reports[0].Skipped)

	writeTree(t, src, map[string]string{"2024/a/b/c/d/one.jpg": "one, updated"})
	reports, err = r.Replicate(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, 1, reports[0].Copied)
	assert.Equal(t, 1, reports[0].Skipped)
}

func TestReplicate_MissingSourceIsFilesystemError(t *testing.T) {
	r := NewReplicator(discard, Tree{
		Kind:   "events",
		Source: filepath.Join(t.TempDir(), "missing"),
		Target: FSTarget{Root: t.TempDir()},
	})

	reports, err := r.Replicate(context.Background(), group)
	var fe *reconcile.FilesystemError
	require.ErrorAs(t, err, &fe)
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].Failed)
}

type memObjects struct {
	bucket  string
	objects map[string]int64
	types   map[string]string
	err     error
}

func (m *memObjects) Bucket() string { return m.bucket }

func (m *memObjects) ObjectSize(_ context.Context, key string) (int64, bool, error) {
	n, ok := m.objects[key]
	return n, ok, nil
}

func (m *memObjects) UploadFile(_ context.Context, key, path, contentType string) error {
	if m.err != nil {
		return m.err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	m.objects[key] = info.Size()
	m.types[key] = contentType
	return nil
}

func TestReplicate_ObjectTarget(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"a/b/c/d/face.jpg": "jpeg",
		"events/e1.json":   "{}",
	})
	store := &memObjects{bucket: "fdsync", objects: map[string]int64{"screenshots/group_3/events/e1.json": 2}, types: map[string]string{}}

	r := NewReplicator(discard, Tree{Kind: "screenshots", Source: src, Target: ObjectTarget{Store: store, Prefix: "screenshots"}})
	reports, err := r.Replicate(context.Background(), group)
	require.NoError(t, err)

	assert.Equal(t, "s3://fdsync/screenshots", reports[0].Target)
	assert.Equal(t, 1, reports[0].Copied)
	assert.Equal(t, 1, reports[0].Skipped)
	assert.Equal(t, "image/jpeg", store.types["screenshots/group_3/a/b/c/d/face.jpg"])
}

func TestReplicate_UploadFailuresContinue(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"x.jpg": "1", "y.jpg": "2"})
	store := &memObjects{bucket: "b", objects: map[string]int64{}, types: map[string]string{}, err: errors.New("access denied")}

	r := NewReplicator(discard, Tree{Kind: "screenshots", Source: src, Target: ObjectTarget{Store: store}})
	reports, err := r.Replicate(context.Background(), group)

	var fe *reconcile.FilesystemError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 2, reports[0].Failed)
	assert.Equal(t, 0, reports[0].Copied)
}
