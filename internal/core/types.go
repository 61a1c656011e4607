package core

import (
	"time"

	"github.com/JonMunkholm/dataprep/internal/loader"
)

// Options configures a Service.
type Options struct {
	// Load holds the base loader settings: default delimiter, NA tokens,
	// size limit and whether to sniff the encoding.
	Load loader.Options

	SessionTTL         time.Duration // idle time before the sweeper drops a table
	MaxSessions        int
	MaxConcurrentLoads int
	MaxLoadWait        time.Duration
}

// LoadRequest carries per-upload settings that override Options.Load.
type LoadRequest struct {
	Name           string // display name, usually the uploaded file name
	Delimiter      rune
	Encoding       string
	DetectEncoding bool
	Lenient        bool
}

// SessionInfo describes a held table.
type SessionInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Rows      int       `json:"rows"`
	Columns   []string  `json:"columns"`
	CreatedAt time.Time `json:"createdAt"`
	LastUsed  time.Time `json:"lastUsed"`
}

// SpecialCharacterReport combines the per-column summary with the distinct
// characters found.
type SpecialCharacterReport struct {
	Summary  map[string]int      `json:"summary"`
	ByColumn map[string][]string `json:"byColumn"`
}
