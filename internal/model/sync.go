package model

// SyncStatus is the local sync state machine.
//
// Transitions:
//
//	idle    → syncing   (any sync operation starts)
//	syncing → ok        (operation completed, lastSyncAt refreshed)
//	syncing → error     (operation failed, lastError recorded)
//
// idle is the state before any sync has ever run.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncError   SyncStatus = "error"
	SyncOK      SyncStatus = "ok"
)

// SyncState is the locally persisted sync bookkeeping. It deliberately
// excludes the access token, which lives under its own storage key so that it
// can never leak into an export document.
//
// SyncingSince records when the engine last entered the syncing state. If the
// process dies mid-sync, the state would otherwise read "syncing" forever —
// on the next load, a SyncingSince older than a staleness window demotes the
// status to error.
type SyncState struct {
	GistID       string     `json:"gistId"`
	LastETag     string     `json:"lastETag"`
	LastSyncAt   int64      `json:"lastSyncAt"`
	DeviceID     string     `json:"deviceId"`
	Status       SyncStatus `json:"status"`
	LastError    string     `json:"lastError"`
	SyncingSince int64      `json:"syncingSince,omitempty"`
}

// SyncPayload is the wire document stored as the full content of the remote
// gist file. Data is a pointer so a malformed remote document (missing the
// data block entirely) is detectable as nil rather than silently importing an
// empty dataset.
type SyncPayload struct {
	Version   int             `json:"version"`
	UpdatedAt int64           `json:"updatedAt"`
	DeviceID  string          `json:"deviceId"`
	Data      *ExportDocument `json:"data"`
}
