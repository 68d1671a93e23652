package database

import (
	"net/url"
	"strconv"
	"strings"
)

// SynchronousMode represents the available synchronous settings for SQLite
type SynchronousMode string

const (
	SynchronousOff    SynchronousMode = "OFF"
	SynchronousNormal SynchronousMode = "NORMAL"
	SynchronousFull   SynchronousMode = "FULL"
)

// JournalMode represents the available journal modes for SQLite
type JournalMode string

const (
	JournalDelete JournalMode = "DELETE"
	JournalMemory JournalMode = "MEMORY"
	JournalWAL    JournalMode = "WAL"
)

// CacheMode represents the available cache modes for SQLite
type CacheMode string

const (
	CacheShared  CacheMode = "shared"
	CachePrivate CacheMode = "private"
)

// SQLiteOptions contains the connection options the engine actually uses.
// Mode, Cache and Immutable travel in the DSN; the rest are applied as
// PRAGMA statements once the connection is open.
type SQLiteOptions struct {
	// Path to the SQLite database file
	Path string

	Mode        string // ro, rw, rwc, memory
	Cache       CacheMode
	Immutable   bool
	Journal     JournalMode
	ForeignKeys bool
	BusyTimeout int // milliseconds
	CacheSize   int // KB, negative for number of pages
	Synchronous SynchronousMode
}

// NewDefaultOptions creates SQLiteOptions with the settings the service
// runs with in production.
func NewDefaultOptions(path string) SQLiteOptions {
	return SQLiteOptions{
		Path:        path,
		Mode:        "rwc",
		Cache:       CacheShared,
		Journal:     JournalWAL,
		ForeignKeys: true,
		BusyTimeout: 5000,
		Synchronous: SynchronousNormal,
	}
}

// buildConnectionString generates the SQLite URI for the DSN-level options
func (opts *SQLiteOptions) buildConnectionString() string {
	params := url.Values{}

	if opts.Mode != "" {
		params.Set("mode", opts.Mode)
	}
	if opts.Cache != "" {
		params.Set("cache", string(opts.Cache))
	}
	if opts.Immutable {
		params.Set("immutable", "true")
	}

	var sb strings.Builder
	sb.WriteString("file:")
	sb.WriteString(opts.Path)
	if encoded := params.Encode(); encoded != "" {
		sb.WriteString("?")
		sb.WriteString(encoded)
	}
	return sb.String()
}

// pragmas returns the PRAGMA statements for the post-open options, in a
// stable order.
func (opts *SQLiteOptions) pragmas() []string {
	var out []string

	if opts.Journal != "" {
		out = append(out, "PRAGMA journal_mode = "+string(opts.Journal))
	}
	// busy_timeout and foreign_keys are always set so the zero value is
	// explicit rather than driver-dependent.
	out = append(out, "PRAGMA busy_timeout = "+strconv.Itoa(opts.BusyTimeout))
	if opts.ForeignKeys {
		out = append(out, "PRAGMA foreign_keys = 1")
	} else {
		out = append(out, "PRAGMA foreign_keys = 0")
	}
	if opts.Synchronous != "" {
		out = append(out, "PRAGMA synchronous = "+string(opts.Synchronous))
	}
	if opts.CacheSize != 0 {
		out = append(out, "PRAGMA cache_size = "+strconv.Itoa(opts.CacheSize))
	}

	return out
}
