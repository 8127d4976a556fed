package reconcile

import (
	"time"

	"github.com/your-org/fdsync/internal/models"
)

// Plan is the scope of a pass, computed before any mutation.
type Plan struct {
	Entity   models.Entity `json:"entity"`
	Source   int           `json:"source"`
	Existing int           `json:"existing"`
	New      int           `json:"new"`
	Obsolete int           `json:"obsolete"`
}

// PassReport is the outcome of one entity pass.
type PassReport struct {
	Plan
	Inserted  int `json:"inserted"`
	Conflicts int `json:"conflicts"`
	Skipped   int `json:"skipped"`
	Deleted   int `json:"deleted"`
	// Sequence is the next id after repair, zero when the sequence was left alone.
	Sequence int64         `json:"sequence,omitempty"`
	DryRun   bool          `json:"dry_run,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ConfigReport describes one merged configuration document.
type ConfigReport struct {
	Table   models.ConfigTable `json:"table"`
	Added   int                `json:"added"`
	Changed int                `json:"changed"`
	Kept    int                `json:"kept"`
	Dropped int                `json:"dropped"`
}

// BlobReport describes one replicated tree.
type BlobReport struct {
	Kind    string `json:"kind"`
	Target  string `json:"target"`
	Copied  int    `json:"copied"`
	Skipped int    `json:"skipped"`
	Bytes   int64  `json:"bytes"`
	Failed  int    `json:"failed"`
}

// Mode is how a run treats existing destination rows.
type Mode string

const (
	ModeSync   Mode = "sync"
	ModeImport Mode = "import"
	ModeDryRun Mode = "dry-run"
)

// RunReport is the outcome of Engine.Run.
type RunReport struct {
	ID         string             `json:"id"`
	Mode       Mode               `json:"mode"`
	Group      models.TenantGroup `json:"group"`
	State      State              `json:"state"`
	FailedIn   State              `json:"failed_in,omitempty"`
	Error      string             `json:"error,omitempty"`
	Passes     []PassReport       `json:"passes"`
	Config     []ConfigReport     `json:"config,omitempty"`
	Blobs      []BlobReport       `json:"blobs,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// Pass returns the report of entity's pass, if it ran.
func (r *RunReport) Pass(entity models.Entity) (PassReport, bool) {
	for _, p := range r.Passes {
		if p.Entity == entity {
			return p, true
		}
	}
	return PassReport{}, false
}

// Mutations is the total number of inserted and deleted rows.
func (r *RunReport) Mutations() int {
	n := 0
	for _, p := range r.Passes {
		n += p.Inserted + p.Deleted
	}
	return n
}
