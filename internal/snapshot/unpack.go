package snapshot

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/weftcode/astindex/internal/asterrors"
)

// RestoreSnapshot extracts a snapshot archive into opts.TargetPath.
// If opts.CreateBackup, any existing TargetPath is renamed to
// "<TargetPath>.bak.<epochMs>" before extraction begins — grounded on
// the teacher's timestamped-backup-before-overwrite idiom.
func RestoreSnapshot(opts RestoreOptions) (RestoreResult, error) {
	start := time.Now()

	report := opts.OnProgress
	if report == nil {
		report = func(ProgressEvent) {}
	}

	meta, err := ReadMetadata(opts.SnapshotPath)
	if err != nil {
		return RestoreResult{}, err
	}

	if opts.ValidateChecksum {
		report(ProgressEvent{Phase: PhaseVerifying, Percentage: 0})
		if err := verifyChecksum(opts.SnapshotPath, meta.Checksum); err != nil {
			return RestoreResult{}, err
		}
		report(ProgressEvent{Phase: PhaseVerifying, Percentage: 100})
	}

	var backupPath string
	if _, statErr := os.Stat(opts.TargetPath); statErr == nil {
		if !opts.Overwrite && !opts.CreateBackup {
			return RestoreResult{}, asterrors.New(asterrors.KindValidation,
				fmt.Sprintf("target path %q already exists", opts.TargetPath)).
				WithSuggestion("pass createBackup or overwrite to proceed")
		}
		if opts.CreateBackup {
			backupPath = fmt.Sprintf("%s.bak.%d", opts.TargetPath, time.Now().UnixMilli())
			if err := os.Rename(opts.TargetPath, backupPath); err != nil {
				return RestoreResult{}, asterrors.Wrap(asterrors.KindFilesystem, "back up existing target before restore", err)
			}
		} else if opts.Overwrite {
			if err := os.RemoveAll(opts.TargetPath); err != nil {
				return RestoreResult{}, asterrors.Wrap(asterrors.KindFilesystem, "remove existing target before restore", err)
			}
		}
	}

	if err := os.MkdirAll(opts.TargetPath, 0o755); err != nil {
		return RestoreResult{}, asterrors.Wrap(asterrors.KindFilesystem, "create restore target directory", err)
	}

	filesRestored, err := extractArchive(opts, report)
	if err != nil {
		return RestoreResult{}, err
	}

	report(ProgressEvent{Phase: PhaseFinalizing, Percentage: 100})

	return RestoreResult{
		TargetPath:    opts.TargetPath,
		FilesRestored: filesRestored,
		BackupPath:    backupPath,
		DurationMs:    time.Since(start).Milliseconds(),
		Metadata:      meta,
	}, nil
}

// ReadMetadata opens snapshotPath and decodes its leading
// SNAPSHOT_META.json tar entry without extracting the rest of the
// archive.
func ReadMetadata(snapshotPath string) (Metadata, error) {
	f, err := os.Open(snapshotPath)
	if err != nil {
		return Metadata{}, asterrors.Wrap(asterrors.KindFilesystem, "open snapshot archive", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return Metadata{}, asterrors.Wrap(asterrors.KindValidation, "open snapshot gzip stream", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	hdr, err := tr.Next()
	if err != nil {
		return Metadata{}, asterrors.Wrap(asterrors.KindValidation, "read snapshot first entry", err)
	}
	if hdr.Name != MetaEntryName {
		return Metadata{}, asterrors.New(asterrors.KindValidation,
			fmt.Sprintf("snapshot missing %s as its first entry", MetaEntryName))
	}

	var meta Metadata
	if err := json.NewDecoder(tr).Decode(&meta); err != nil {
		return Metadata{}, asterrors.Wrap(asterrors.KindValidation, "decode snapshot metadata", err)
	}
	return meta, nil
}

// verifyChecksum recomputes the sha256 over every non-metadata entry's
// content and compares it against want.
func verifyChecksum(snapshotPath, want string) error {
	f, err := os.Open(snapshotPath)
	if err != nil {
		return asterrors.Wrap(asterrors.KindFilesystem, "open snapshot archive", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return asterrors.Wrap(asterrors.KindValidation, "open snapshot gzip stream", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	h := sha256.New()

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return asterrors.Wrap(asterrors.KindValidation, "read snapshot entry", err)
		}
		if hdr.Name == MetaEntryName || hdr.Typeflag == tar.TypeDir {
			continue
		}
		if _, err := io.Copy(h, tr); err != nil {
			return asterrors.Wrap(asterrors.KindValidation, "hash snapshot entry", err).WithDetail("path", hdr.Name)
		}
	}

	got := hex.EncodeToString(h.Sum(nil))
	if got != want {
		return asterrors.New(asterrors.KindValidation, "snapshot checksum mismatch").
			WithDetail("expected", want).
			WithDetail("got", got)
	}
	return nil
}

func extractArchive(opts RestoreOptions, report ProgressFunc) (int, error) {
	f, err := os.Open(opts.SnapshotPath)
	if err != nil {
		return 0, asterrors.Wrap(asterrors.KindFilesystem, "open snapshot archive", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, asterrors.Wrap(asterrors.KindValidation, "open snapshot gzip stream", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	count := 0

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, asterrors.Wrap(asterrors.KindValidation, "read snapshot entry", err)
		}
		if hdr.Name == MetaEntryName {
			continue
		}
		if opts.SkipModels && firstSegment(hdr.Name) == "models" {
			continue
		}

		destPath, err := safeJoin(opts.TargetPath, hdr.Name)
		if err != nil {
			return count, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return count, asterrors.Wrap(asterrors.KindFilesystem, "create directory from snapshot", err).WithDetail("path", hdr.Name)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
				return count, asterrors.Wrap(asterrors.KindFilesystem, "create parent directory from snapshot", err).WithDetail("path", hdr.Name)
			}
			out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return count, asterrors.Wrap(asterrors.KindFilesystem, "create file from snapshot", err).WithDetail("path", hdr.Name)
			}
			_, copyErr := io.Copy(out, tr)
			closeErr := out.Close()
			if copyErr != nil {
				return count, asterrors.Wrap(asterrors.KindFilesystem, "write file from snapshot", copyErr).WithDetail("path", hdr.Name)
			}
			if closeErr != nil {
				return count, asterrors.Wrap(asterrors.KindFilesystem, "close restored file", closeErr).WithDetail("path", hdr.Name)
			}
			count++
		default:
			// Skip symlinks and other special entry types; the pipeline
			// never writes anything but regular files and directories
			// under .astdb.
			continue
		}

		report(ProgressEvent{Phase: PhaseExtracting, Detail: hdr.Name})
	}

	return count, nil
}

// safeJoin joins root and name, rejecting any path that would escape
// root via ".." traversal in a maliciously or corruptly crafted
// archive.
func safeJoin(root, name string) (string, error) {
	cleaned := filepath.Clean("/" + filepath.FromSlash(name))
	joined := filepath.Join(root, cleaned)
	if joined != root && !isWithin(root, joined) {
		return "", asterrors.New(asterrors.KindValidation, "snapshot entry escapes target directory").
			WithDetail("entry", name)
	}
	return joined, nil
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !hasParentPrefix(rel)
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
