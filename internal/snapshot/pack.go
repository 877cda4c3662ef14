package snapshot

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/weftcode/astindex/internal/asterrors"
)

// MetaEntryName is the well-known first tar entry of every snapshot
// archive, holding the JSON-encoded Metadata for that snapshot.
const MetaEntryName = "SNAPSHOT_META.json"

// CreateSnapshot packs opts.AstdbPath into a tar+gzip archive at
// opts.OutputPath, reporting scanning/compressing/finalizing progress.
// The archive is built in a temp file beside OutputPath and renamed
// into place once complete, so a crash mid-pack never leaves a
// partial snapshot at the final path.
//
// The checksum embedded in the metadata entry covers the concatenated
// content of every file in the snapshot (in sorted path order), so a
// restore can validate it without having to reconstruct tar framing.
func CreateSnapshot(opts PackOptions) (PackResult, error) {
	start := time.Now()

	report := opts.OnProgress
	if report == nil {
		report = func(ProgressEvent) {}
	}

	report(ProgressEvent{Phase: PhaseScanning, Percentage: 0})
	files, err := resolveFileSet(opts)
	if err != nil {
		return PackResult{}, err
	}
	sort.Strings(files)
	report(ProgressEvent{Phase: PhaseScanning, Percentage: 100, Detail: fmt.Sprintf("%d files", len(files))})

	checksum, totalSize, err := hashFileSet(opts.AstdbPath, files)
	if err != nil {
		return PackResult{}, err
	}

	fileCount := 0
	for _, rel := range files {
		if info, statErr := os.Stat(filepath.Join(opts.AstdbPath, rel)); statErr == nil && !info.IsDir() {
			fileCount++
		}
	}

	meta := Metadata{
		Version:     opts.Version,
		Description: opts.Description,
		Tags:        opts.Tags,
		CreatedAt:   time.Now(),
		FileCount:   fileCount,
		SizeBytes:   totalSize,
		Checksum:    checksum,
	}

	tmpPath := opts.OutputPath + ".tmp"
	if err := writeArchive(tmpPath, opts, meta, files, report); err != nil {
		os.Remove(tmpPath)
		return PackResult{}, err
	}

	report(ProgressEvent{Phase: PhaseFinalizing, Percentage: 50})

	if err := os.Rename(tmpPath, opts.OutputPath); err != nil {
		return PackResult{}, asterrors.Wrap(asterrors.KindFilesystem, "finalize snapshot file", err)
	}

	report(ProgressEvent{Phase: PhaseFinalizing, Percentage: 100})

	return PackResult{
		OutputPath: opts.OutputPath,
		Metadata:   meta,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func hashFileSet(root string, files []string) (checksum string, totalSize int64, err error) {
	h := sha256.New()
	for _, rel := range files {
		full := filepath.Join(root, rel)
		info, statErr := os.Stat(full)
		if statErr != nil || info.IsDir() {
			continue
		}
		f, openErr := os.Open(full)
		if openErr != nil {
			return "", 0, asterrors.Wrap(asterrors.KindFilesystem, "open file for checksum", openErr).WithDetail("path", rel)
		}
		n, copyErr := io.Copy(h, f)
		f.Close()
		if copyErr != nil {
			return "", 0, asterrors.Wrap(asterrors.KindFilesystem, "hash file contents", copyErr).WithDetail("path", rel)
		}
		totalSize += n
	}
	return hex.EncodeToString(h.Sum(nil)), totalSize, nil
}

func writeArchive(tmpPath string, opts PackOptions, meta Metadata, files []string, report ProgressFunc) error {
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return asterrors.Wrap(asterrors.KindFilesystem, "create snapshot temp file", err)
	}
	defer tmpFile.Close()

	gz, err := gzip.NewWriterLevel(tmpFile, clampLevel(opts.CompressionLevel))
	if err != nil {
		return asterrors.Wrap(asterrors.KindValidation, "create gzip writer", err)
	}
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return asterrors.Wrap(asterrors.KindValidation, "marshal snapshot metadata", err)
	}
	if err := tw.WriteHeader(&tar.Header{
		Name: MetaEntryName,
		Mode: 0o644,
		Size: int64(len(metaJSON)),
	}); err != nil {
		return asterrors.Wrap(asterrors.KindFilesystem, "write metadata tar header", err)
	}
	if _, err := tw.Write(metaJSON); err != nil {
		return asterrors.Wrap(asterrors.KindFilesystem, "write metadata entry", err)
	}

	for i, rel := range files {
		full := filepath.Join(opts.AstdbPath, rel)
		info, statErr := os.Stat(full)
		if statErr != nil {
			continue
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return asterrors.Wrap(asterrors.KindFilesystem, "build tar header", err).WithDetail("path", rel)
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return asterrors.Wrap(asterrors.KindFilesystem, "write tar header", err).WithDetail("path", rel)
		}
		if !info.IsDir() {
			if err := copyFileInto(tw, full); err != nil {
				return asterrors.Wrap(asterrors.KindFilesystem, "copy file into archive", err).WithDetail("path", rel)
			}
		}

		if report != nil && len(files) > 0 {
			pct := float64(i+1) / float64(len(files)) * 100.0
			report(ProgressEvent{Phase: PhaseCompressing, Percentage: pct, Detail: rel})
		}
	}

	return nil
}

func clampLevel(level int) int {
	if level < gzip.NoCompression {
		return gzip.DefaultCompression
	}
	if level > gzip.BestCompression {
		return gzip.BestCompression
	}
	return level
}

func resolveFileSet(opts PackOptions) ([]string, error) {
	var files []string

	err := filepath.WalkDir(opts.AstdbPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(opts.AstdbPath, path)
		if relErr != nil || rel == "." {
			return nil
		}

		switch firstSegment(rel) {
		case "models":
			if !opts.IncludeModels {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		case "cache":
			if !opts.IncludeCache {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		case "logs":
			if !opts.IncludeLogs {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, asterrors.Wrap(asterrors.KindFilesystem, "walk astdb directory", err)
	}
	return files, nil
}

func firstSegment(rel string) string {
	rel = filepath.ToSlash(rel)
	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' {
			return rel[:i]
		}
	}
	return rel
}

func copyFileInto(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
