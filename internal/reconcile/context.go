package reconcile

import (
	"context"
	"sync"

	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/settings"
)

// Source is the read-only legacy store. Fetch methods report found=false for
// rows that vanished after enumeration.
type Source interface {
	IDs(ctx context.Context, entity models.Entity) ([]int64, error)
	Links(ctx context.Context, entity models.Entity) ([]models.Link, error)
	Stream(ctx context.Context, id int64) (models.VideoStream, bool, error)
	Descriptor(ctx context.Context, id int64) (models.FaceDescriptor, bool, error)
	SpecialGroup(ctx context.Context, id int64) (models.SpecialGroup, bool, error)
	FaceLog(ctx context.Context, id int64) (models.FaceLog, bool, error)
	CommonSettings(ctx context.Context) ([]settings.Param, error)
}

// Destination is the live store. Every insert and delete commits on its own;
// Insert methods are insert-or-skip and report whether a row was written.
// Enumeration is scoped to a tenant group.
type Destination interface {
	TenantGroupByName(ctx context.Context, name string) (models.TenantGroup, bool, error)

	IDs(ctx context.Context, group int64, entity models.Entity) ([]int64, error)
	Links(ctx context.Context, group int64, entity models.Entity) ([]models.Link, error)

	// Delete removes a row and the rows depending on it in one transaction.
	Delete(ctx context.Context, entity models.Entity, id int64) error
	DeleteLink(ctx context.Context, entity models.Entity, link models.Link) error

	InsertStream(ctx context.Context, group int64, s models.VideoStream, doc settings.Document) (bool, error)
	// InsertDescriptor writes the descriptor and its image in one transaction.
	InsertDescriptor(ctx context.Context, group int64, d models.FaceDescriptor) (bool, error)
	InsertSpecialGroup(ctx context.Context, group int64, g models.SpecialGroup) (bool, error)
	InsertLink(ctx context.Context, entity models.Entity, link models.Link) (bool, error)
	InsertFaceLog(ctx context.Context, l models.FaceLog) (bool, error)

	// ResetSequence sets the entity's next generated id to at least next and
	// returns the value in effect.
	ResetSequence(ctx context.Context, entity models.Entity, next int64) (int64, error)

	LoadConfig(ctx context.Context, table models.ConfigTable, group int64) (settings.Document, error)
	StoreConfig(ctx context.Context, table models.ConfigTable, group int64, doc settings.Document) error
}

// BlobReplicator copies screenshot and event trees into the group's namespace.
// Failures are reported as *FilesystemError.
type BlobReplicator interface {
	Replicate(ctx context.Context, group models.TenantGroup) ([]BlobReport, error)
}

// Observer receives pass progress. Calls are made from the run goroutine.
type Observer interface {
	PassPlanned(group models.TenantGroup, plan Plan)
	PassFinished(group models.TenantGroup, report PassReport)
}

// SyncContext carries the store handles, the resolved tenant group and the id
// snapshots left by completed passes.
type SyncContext struct {
	Source Source
	Dest   Destination
	Group  models.TenantGroup

	mu        sync.RWMutex
	snapshots map[models.Entity]Set[int64]
}

func newSyncContext(src Source, dst Destination) *SyncContext {
	return &SyncContext{
		Source:    src,
		Dest:      dst,
		snapshots: make(map[models.Entity]Set[int64]),
	}
}

// Snapshot returns the ids of entity present in the destination after its
// pass. It is nil until the pass ran.
func (c *SyncContext) Snapshot(entity models.Entity) Set[int64] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshots[entity]
}

func (c *SyncContext) setSnapshot(entity models.Entity, ids Set[int64]) {
	c.mu.Lock()
	c.snapshots[entity] = ids
	c.mu.Unlock()
}
