// Package snapshot packs and restores the .astdb workspace directory as
// a single portable tar+gzip archive, for backup and for moving an
// index between machines.
package snapshot

import "time"

// Phase identifies which part of a pack/restore operation is running.
type Phase string

const (
	PhaseScanning    Phase = "scanning"
	PhaseCompressing Phase = "compressing"
	PhaseFinalizing  Phase = "finalizing"
	PhaseExtracting  Phase = "extracting"
	PhaseVerifying   Phase = "verifying"
)

// ProgressEvent reports pack/restore progress; Percentage is
// non-decreasing within a single phase and starts again when the
// phase changes.
type ProgressEvent struct {
	Phase      Phase
	Percentage float64
	Detail     string
}

// ProgressFunc receives ProgressEvents during a pack or restore.
type ProgressFunc func(ProgressEvent)

// Metadata is embedded as the archive's first entry (SNAPSHOT_META.json)
// so a restore can validate and describe the snapshot before extracting
// the rest of it.
type Metadata struct {
	Version     string    `json:"version,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	FileCount   int       `json:"fileCount"`
	SizeBytes   int64     `json:"sizeBytes"`
	Checksum    string    `json:"checksum"` // sha256 of every regular file's content, in sorted path order; not a hash of the archive bytes
}

// PackOptions configures CreateSnapshot.
type PackOptions struct {
	AstdbPath        string
	OutputPath       string
	Version          string
	Description      string
	Tags             []string
	CompressionLevel int // 0-9, gzip.NoCompression..gzip.BestCompression
	IncludeModels    bool
	IncludeCache     bool
	IncludeLogs      bool
	OnProgress       ProgressFunc
}

// PackResult is returned by CreateSnapshot.
type PackResult struct {
	OutputPath string
	Metadata   Metadata
	DurationMs int64
}

// RestoreOptions configures RestoreSnapshot.
type RestoreOptions struct {
	SnapshotPath     string
	TargetPath       string
	CreateBackup     bool
	ValidateChecksum bool
	SkipModels       bool
	Overwrite        bool
	OnProgress       ProgressFunc
}

// RestoreResult is returned by RestoreSnapshot.
type RestoreResult struct {
	TargetPath    string
	FilesRestored int
	BackupPath    string
	DurationMs    int64
	Metadata      Metadata
}
