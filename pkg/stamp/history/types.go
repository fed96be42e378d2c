// Package history journals manifest updates, one JSON file per run.
package history

import (
	"time"

	"github.com/jamesainslie/stamp/pkg/stamp/engine"
)

// Entry is a single journaled update.
type Entry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Root      string          `json:"root"`
	Manifest  string          `json:"manifest"`
	Mode      string          `json:"mode"`
	Changes   []engine.Change `json:"changes"`
	Summary   Summary         `json:"summary"`
}

// Summary contains run totals.
type Summary struct {
	Components int   `json:"components"`
	Files      int   `json:"files"`
	Bytes      int64 `json:"bytes"`
	Changed    int   `json:"changed"`
}

// Record is the input to Log.
type Record struct {
	Root     string
	Manifest string
	Mode     string
	Result   *engine.Result
}
