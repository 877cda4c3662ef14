package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/weftcode/astindex/internal/asterrors"
)

// RemoteEntry describes a published snapshot as returned by List.
type RemoteEntry struct {
	ID        string
	URL       string
	Metadata  Metadata
	CreatedAt time.Time
	Size      int64
}

// SortKey selects the field List results are ordered by.
type SortKey string

const (
	SortCreatedAt SortKey = "createdAt"
	SortVersion   SortKey = "version"
	SortSize      SortKey = "size"
)

// SortOrder selects ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListOptions filters and orders RemoteStore.List results.
type ListOptions struct {
	SortBy SortKey
	Order  SortOrder
	Tag    string // empty means no filter
}

// RemoteStore publishes, retrieves, and manages snapshot archives in
// some external location (object storage, a GitHub release, etc).
// Out-of-scope backends beyond the local-filesystem adapter are left
// as implementations of this interface rather than built here.
type RemoteStore interface {
	Publish(localPath string) (RemoteEntry, error)
	Download(id string, localPath string) (string, error)
	List(opts ListOptions) ([]RemoteEntry, error)
	Delete(id string) error
}

// LocalStore implements RemoteStore against a plain directory on the
// same filesystem, useful for testing and for single-machine backup
// rotation without any network dependency.
type LocalStore struct {
	dir string
}

// NewLocalStore returns a RemoteStore backed by dir, creating it if
// necessary.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, asterrors.Wrap(asterrors.KindFilesystem, "create local snapshot store directory", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Publish(localPath string) (RemoteEntry, error) {
	meta, err := ReadMetadata(localPath)
	if err != nil {
		return RemoteEntry{}, err
	}

	id := fmt.Sprintf("%d-%s", meta.CreatedAt.UnixMilli(), filepath.Base(localPath))
	dest := filepath.Join(s.dir, id)

	data, err := os.ReadFile(localPath)
	if err != nil {
		return RemoteEntry{}, asterrors.Wrap(asterrors.KindFilesystem, "read snapshot for publish", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return RemoteEntry{}, asterrors.Wrap(asterrors.KindFilesystem, "write published snapshot", err)
	}

	return RemoteEntry{
		ID:        id,
		URL:       "file://" + dest,
		Metadata:  meta,
		CreatedAt: meta.CreatedAt,
		Size:      meta.SizeBytes,
	}, nil
}

func (s *LocalStore) Download(id string, localPath string) (string, error) {
	src := filepath.Join(s.dir, id)
	data, err := os.ReadFile(src)
	if err != nil {
		return "", asterrors.Wrap(asterrors.KindFilesystem, "read published snapshot", err).WithDetail("id", id)
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", asterrors.Wrap(asterrors.KindFilesystem, "write downloaded snapshot", err)
	}
	return localPath, nil
}

func (s *LocalStore) List(opts ListOptions) ([]RemoteEntry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, asterrors.Wrap(asterrors.KindFilesystem, "list local snapshot store", err)
	}

	var results []RemoteEntry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		full := filepath.Join(s.dir, e.Name())
		meta, err := ReadMetadata(full)
		if err != nil {
			continue
		}
		if opts.Tag != "" && !hasTag(meta.Tags, opts.Tag) {
			continue
		}
		results = append(results, RemoteEntry{
			ID:        e.Name(),
			URL:       "file://" + full,
			Metadata:  meta,
			CreatedAt: meta.CreatedAt,
			Size:      meta.SizeBytes,
		})
	}

	sortEntries(results, opts.SortBy, opts.Order)
	return results, nil
}

func (s *LocalStore) Delete(id string) error {
	path := filepath.Join(s.dir, id)
	if err := os.Remove(path); err != nil {
		return asterrors.Wrap(asterrors.KindFilesystem, "delete published snapshot", err).WithDetail("id", id)
	}
	return nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

// ListLocalSnapshots scans dir for snapshot archives (files matching
// *.astsnap) and returns them in the same RemoteEntry shape as
// RemoteStore.List, so callers can merge local and remote listings
// under one sort.
func ListLocalSnapshots(dir string) ([]RemoteEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, asterrors.Wrap(asterrors.KindFilesystem, "list local snapshot directory", err)
	}

	var results []RemoteEntry
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".astsnap") {
			continue
		}
		full := filepath.Join(dir, e.Name())
		meta, err := ReadMetadata(full)
		if err != nil {
			continue
		}
		results = append(results, RemoteEntry{
			ID:        e.Name(),
			URL:       "file://" + full,
			Metadata:  meta,
			CreatedAt: meta.CreatedAt,
			Size:      meta.SizeBytes,
		})
	}
	return results, nil
}

// MergeAndSort combines local and remote listings (deduplicating by
// ID, local taking precedence) and applies the requested sort/filter.
func MergeAndSort(local, remote []RemoteEntry, opts ListOptions) []RemoteEntry {
	seen := make(map[string]struct{}, len(local))
	merged := make([]RemoteEntry, 0, len(local)+len(remote))

	for _, e := range local {
		if opts.Tag != "" && !hasTag(e.Metadata.Tags, opts.Tag) {
			continue
		}
		merged = append(merged, e)
		seen[e.ID] = struct{}{}
	}
	for _, e := range remote {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		if opts.Tag != "" && !hasTag(e.Metadata.Tags, opts.Tag) {
			continue
		}
		merged = append(merged, e)
	}

	sortEntries(merged, opts.SortBy, opts.Order)
	return merged
}

func sortEntries(entries []RemoteEntry, key SortKey, order SortOrder) {
	if key == "" {
		key = SortCreatedAt
	}
	desc := order == SortDesc

	less := func(i, j int) bool {
		switch key {
		case SortVersion:
			return entries[i].Metadata.Version < entries[j].Metadata.Version
		case SortSize:
			return entries[i].Size < entries[j].Size
		default:
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if desc {
			return less(j, i)
		}
		return less(i, j)
	})
}
