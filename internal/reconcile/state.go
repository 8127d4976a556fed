package reconcile

import "fmt"

// State is a step of the run state machine. States advance linearly; any
// error moves the run to StateFailed.
type State int

const (
	StateIdle State = iota
	StateResolveTenantGroup
	StateSyncStreams
	StateSyncDescriptors
	StateSyncStreamLinks
	StateSyncSpecialGroups
	StateSyncSpecialGroupLinks
	StateSyncConfig
	StateSyncFaceLogs
	StateReplicateBlobs
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:                  "Idle",
	StateResolveTenantGroup:    "ResolveTenantGroup",
	StateSyncStreams:           "SyncStreams",
	StateSyncDescriptors:       "SyncDescriptors",
	StateSyncStreamLinks:       "SyncStreamLinks",
	StateSyncSpecialGroups:     "SyncSpecialGroups",
	StateSyncSpecialGroupLinks: "SyncSpecialGroupLinks",
	StateSyncConfig:            "SyncConfig",
	StateSyncFaceLogs:          "SyncFaceLogs",
	StateReplicateBlobs:        "ReplicateBlobs",
	StateDone:                  "Done",
	StateFailed:                "Failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for st, n := range stateNames {
		if n == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}
