package dto

// SyncRequest starts a run over HTTP or the NATS trigger subject.
type SyncRequest struct {
	DryRun bool `json:"dry_run"`
	Import bool `json:"import"`
	// Workers overrides sync.workers when positive.
	Workers     int    `json:"workers,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
}

type SyncAccepted struct {
	RunID string `json:"run_id"`
	Mode  string `json:"mode"`
}

// WSEvent is a WebSocket message for live run progress.
type WSEvent struct {
	Type  string `json:"type"` // pass_planned, pass_finished, run_finished
	RunID string `json:"run_id,omitempty"`
	Group string `json:"group"`
	Data  any    `json:"data"`
}
