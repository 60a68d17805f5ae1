// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

// Prompt represents a user-authored prompt: a reusable text snippet with a
// title, the prompt body itself, and a set of tags for filtering.
//
// TIMESTAMPS AS EPOCH MILLISECONDS:
// CreateTime and UpdateTime are int64 epoch-milliseconds, not time.Time.
// The export file format and the cloud sync payload both carry timestamps as
// plain numbers, and datasets already exist in that shape — keeping int64 here
// means marshal/unmarshal is exact with no timezone or precision surprises.
//
// Invariants maintained by the prompt service:
//   - ID is assigned once at creation and never changes
//   - UpdateTime >= CreateTime
//   - Title and Content are non-empty after trimming
type Prompt struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	CreateTime int64    `json:"createTime"`
	UpdateTime int64    `json:"updateTime"`
}

// Settings holds the app-level configuration: the curated tag vocabulary
// offered when tagging prompts, and a document version for forward
// compatibility.
type Settings struct {
	PresetTags []string `json:"presetTags"`
	Version    string   `json:"version"`
}

// ExportDocument is the portable backup format — the exact JSON shape written
// by export and accepted by import. Version is "1.0.0".
//
// Settings is a pointer so that documents without a settings block (e.g. a
// prompts-only backup from another tool) unmarshal to nil rather than to a
// zero-value Settings that would wipe the tag vocabulary on import.
type ExportDocument struct {
	Prompts    []Prompt  `json:"prompts"`
	Settings   *Settings `json:"settings,omitempty"`
	ExportTime int64     `json:"exportTime"`
	Version    string    `json:"version"`
}

// DataStats summarises the local collection for the dashboard.
type DataStats struct {
	TotalPrompts  int `json:"totalPrompts"`
	TotalTags     int `json:"totalTags"`
	RecentPrompts int `json:"recentPrompts"` // created within the last 7 days
}
