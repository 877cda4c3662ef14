package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAstdb(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "asts"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "models"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cache"), 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(root, "asts", "a.json"), []byte(`{"ok":true}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vectors.db"), []byte("sqlite-bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "models", "embed.gguf"), []byte("model-bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cache", "tmp.bin"), []byte("cache-bytes"), 0o644))

	return root
}

func TestCreateSnapshot_ExcludesModelsAndCacheByDefault(t *testing.T) {
	root := seedAstdb(t)
	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "snap.astsnap")

	var events []ProgressEvent
	result, err := CreateSnapshot(PackOptions{
		AstdbPath:  root,
		OutputPath: outPath,
		OnProgress: func(e ProgressEvent) { events = append(events, e) },
	})
	require.NoError(t, err)

	assert.FileExists(t, outPath)
	assert.Equal(t, 2, result.Metadata.FileCount) // asts/a.json + vectors.db
	assert.NotEmpty(t, result.Metadata.Checksum)
	assert.NotEmpty(t, events)

	meta, err := ReadMetadata(outPath)
	require.NoError(t, err)
	assert.Equal(t, result.Metadata.Checksum, meta.Checksum)
}

func TestCreateSnapshot_IncludeModelsAddsFiles(t *testing.T) {
	root := seedAstdb(t)
	outPath := filepath.Join(t.TempDir(), "snap.astsnap")

	result, err := CreateSnapshot(PackOptions{
		AstdbPath:     root,
		OutputPath:    outPath,
		IncludeModels: true,
		IncludeCache:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Metadata.FileCount)
}

func TestRestoreSnapshot_RoundTripsContent(t *testing.T) {
	root := seedAstdb(t)
	outPath := filepath.Join(t.TempDir(), "snap.astsnap")

	_, err := CreateSnapshot(PackOptions{AstdbPath: root, OutputPath: outPath})
	require.NoError(t, err)

	targetPath := filepath.Join(t.TempDir(), "restored")
	result, err := RestoreSnapshot(RestoreOptions{
		SnapshotPath:     outPath,
		TargetPath:       targetPath,
		ValidateChecksum: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesRestored)

	data, err := os.ReadFile(filepath.Join(targetPath, "asts", "a.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))
}

func TestRestoreSnapshot_CreatesBackupBeforeOverwrite(t *testing.T) {
	root := seedAstdb(t)
	outPath := filepath.Join(t.TempDir(), "snap.astsnap")
	_, err := CreateSnapshot(PackOptions{AstdbPath: root, OutputPath: outPath})
	require.NoError(t, err)

	targetPath := filepath.Join(t.TempDir(), "restored")
	require.NoError(t, os.MkdirAll(targetPath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(targetPath, "stale.txt"), []byte("old"), 0o644))

	result, err := RestoreSnapshot(RestoreOptions{
		SnapshotPath: outPath,
		TargetPath:   targetPath,
		CreateBackup: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.BackupPath)

	_, err = os.Stat(filepath.Join(result.BackupPath, "stale.txt"))
	assert.NoError(t, err)
}

func TestRestoreSnapshot_RejectsCorruptedChecksum(t *testing.T) {
	root := seedAstdb(t)
	outPath := filepath.Join(t.TempDir(), "snap.astsnap")
	_, err := CreateSnapshot(PackOptions{AstdbPath: root, OutputPath: outPath})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	corrupted := append([]byte(nil), data...)
	corrupted[len(corrupted)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(outPath, corrupted, 0o644))

	_, err = RestoreSnapshot(RestoreOptions{
		SnapshotPath:     outPath,
		TargetPath:       filepath.Join(t.TempDir(), "restored"),
		ValidateChecksum: true,
	})
	assert.Error(t, err)
}

func TestLocalStore_PublishListDownloadDelete(t *testing.T) {
	root := seedAstdb(t)
	outPath := filepath.Join(t.TempDir(), "snap.astsnap")
	_, err := CreateSnapshot(PackOptions{AstdbPath: root, OutputPath: outPath, Version: "v1", Tags: []string{"nightly"}})
	require.NoError(t, err)

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	entry, err := store.Publish(outPath)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)

	list, err := store.List(ListOptions{Tag: "nightly"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	downloadPath := filepath.Join(t.TempDir(), "downloaded.astsnap")
	_, err = store.Download(entry.ID, downloadPath)
	require.NoError(t, err)
	assert.FileExists(t, downloadPath)

	require.NoError(t, store.Delete(entry.ID))
	list, err = store.List(ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMergeAndSort_DeduplicatesByIDLocalWins(t *testing.T) {
	local := []RemoteEntry{{ID: "a", Size: 10}}
	remote := []RemoteEntry{{ID: "a", Size: 999}, {ID: "b", Size: 20}}

	merged := MergeAndSort(local, remote, ListOptions{SortBy: SortSize, Order: SortDesc})
	require.Len(t, merged, 2)
	assert.Equal(t, "b", merged[0].ID)
	assert.Equal(t, "a", merged[1].ID)
	assert.Equal(t, int64(10), merged[1].Size)
}
