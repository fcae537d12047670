package convo

import "context"

// SchemaVersion is the current snapshot format version. Version 0 snapshots
// predate the model-role relabeling and are migrated on load.
const SchemaVersion = 1

// Snapshot is the persisted form of one domain's conversation: both logs in
// a single value so that every write is all-or-nothing.
type Snapshot struct {
	Version  int       `json:"version"`
	Messages []Message `json:"messages"`
	Turns    []Turn    `json:"turns"`
}

// Store persists conversation snapshots keyed by domain.
//
// Load returns an empty snapshot, not an error, when the domain has no
// persisted state. Corrupt state is an error; the caller resets to empty.
type Store interface {
	Load(ctx context.Context, domain string) (*Snapshot, error)
	Save(ctx context.Context, domain string, snap *Snapshot) error
	Clear(ctx context.Context, domain string) error
}

// migrate upgrades a loaded snapshot to the current schema version.
//
// v0 -> v1: model-authored turns were labeled "assistant"; the model service
// vocabulary requires "model".
func migrate(snap *Snapshot) *Snapshot {
	if snap == nil {
		return &Snapshot{Version: SchemaVersion}
	}
	if snap.Version >= SchemaVersion {
		return snap
	}

	for i, t := range snap.Turns {
		if t.Role == legacyRoleAssistant {
			snap.Turns[i].Role = RoleModel
		}
	}
	snap.Version = SchemaVersion
	return snap
}
