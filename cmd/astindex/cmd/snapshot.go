package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/weftcode/astindex/internal/asterrors"
	"github.com/weftcode/astindex/internal/astconfig"
	"github.com/weftcode/astindex/internal/indexstore"
	"github.com/weftcode/astindex/internal/snapshot"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Pack, restore, and publish .astdb archives",
	}

	cmd.AddCommand(newSnapshotCreateCmd())
	cmd.AddCommand(newSnapshotRestoreCmd())
	cmd.AddCommand(newSnapshotListCmd())
	cmd.AddCommand(newSnapshotPublishCmd())
	cmd.AddCommand(newSnapshotDownloadCmd())
	cmd.AddCommand(newSnapshotDeleteCmd())

	return cmd
}

func snapshotsDir(root string) string {
	return indexstore.DefaultLayout(root).SnapshotsDir()
}

func workspaceRootOrCwd() (string, error) {
	return astconfig.FindProjectRoot(".")
}

func newSnapshotCreateCmd() *cobra.Command {
	var (
		output      string
		description string
		tags        []string
		level       int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Pack the workspace's .astdb directory into a snapshot archive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := workspaceRootOrCwd()
			if err != nil {
				return err
			}
			layout := indexstore.DefaultLayout(root)

			out := output
			if out == "" {
				out = filepath.Join(layout.SnapshotsDir(), fmt.Sprintf("snapshot-%d.astsnap", time.Now().UnixMilli()))
			}

			result, err := snapshot.CreateSnapshot(snapshot.PackOptions{
				AstdbPath:        layout.Root,
				OutputPath:       out,
				Description:      description,
				Tags:             tags,
				CompressionLevel: level,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%d files, %d bytes)\n",
				result.OutputPath, result.Metadata.FileCount, result.Metadata.SizeBytes)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "archive path (default: .astdb/snapshots/snapshot-<ts>.astsnap)")
	cmd.Flags().StringVar(&description, "description", "", "free-text description embedded in the archive")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tags embedded in the archive metadata")
	cmd.Flags().IntVar(&level, "compression-level", 6, "gzip compression level 0-9")

	return cmd
}

func newSnapshotRestoreCmd() *cobra.Command {
	var (
		target           string
		overwrite        bool
		createBackup     bool
		validateChecksum bool
	)

	cmd := &cobra.Command{
		Use:   "restore <archive>",
		Short: "Restore a .astdb directory from a snapshot archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := workspaceRootOrCwd()
			if err != nil {
				return err
			}

			dest := target
			if dest == "" {
				dest = indexstore.DefaultLayout(root).Root
			}

			result, err := snapshot.RestoreSnapshot(snapshot.RestoreOptions{
				SnapshotPath:     args[0],
				TargetPath:       dest,
				CreateBackup:     createBackup,
				ValidateChecksum: validateChecksum,
				Overwrite:        overwrite,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "restored %d files into %s\n", result.FilesRestored, result.TargetPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "restore destination (default: .astdb)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite an existing .astdb directory")
	cmd.Flags().BoolVar(&createBackup, "backup", true, "back up the existing directory before overwriting")
	cmd.Flags().BoolVar(&validateChecksum, "validate-checksum", true, "verify the archive's checksum before extracting")

	return cmd
}

func newSnapshotListCmd() *cobra.Command {
	var (
		remoteDir string
		tag       string
		sortBy    string
		order     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List local and published snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := workspaceRootOrCwd()
			if err != nil {
				return err
			}

			local, err := snapshot.ListLocalSnapshots(snapshotsDir(root))
			if err != nil {
				return err
			}

			var remote []snapshot.RemoteEntry
			if remoteDir != "" {
				store, err := snapshot.NewLocalStore(remoteDir)
				if err != nil {
					return err
				}
				remote, err = store.List(snapshot.ListOptions{Tag: tag, SortBy: snapshot.SortKey(sortBy), Order: snapshot.SortOrder(order)})
				if err != nil {
					return err
				}
			}

			merged := snapshot.MergeAndSort(local, remote, snapshot.ListOptions{
				Tag: tag, SortBy: snapshot.SortKey(sortBy), Order: snapshot.SortOrder(order),
			})

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(merged)
		},
	}

	cmd.Flags().StringVar(&remoteDir, "remote-dir", "", "also list snapshots published to this directory")
	cmd.Flags().StringVar(&tag, "tag", "", "filter by tag")
	cmd.Flags().StringVar(&sortBy, "sort", "createdAt", "sort key: createdAt, version, or size")
	cmd.Flags().StringVar(&order, "order", "desc", "sort order: asc or desc")

	return cmd
}

func newSnapshotPublishCmd() *cobra.Command {
	var remoteDir string

	cmd := &cobra.Command{
		Use:   "publish <archive>",
		Short: "Publish a local snapshot archive to a remote store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remoteDir == "" {
				return asterrors.New(asterrors.KindValidation, "--remote-dir is required")
			}
			store, err := snapshot.NewLocalStore(remoteDir)
			if err != nil {
				return err
			}
			entry, err := store.Publish(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s as %s\n", args[0], entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&remoteDir, "remote-dir", "", "remote store directory")
	return cmd
}

func newSnapshotDownloadCmd() *cobra.Command {
	var (
		remoteDir string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download a published snapshot archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remoteDir == "" {
				return asterrors.New(asterrors.KindValidation, "--remote-dir is required")
			}
			store, err := snapshot.NewLocalStore(remoteDir)
			if err != nil {
				return err
			}

			dest := output
			if dest == "" {
				dest = args[0]
			}
			path, err := store.Download(args[0], dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "downloaded to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&remoteDir, "remote-dir", "", "remote store directory")
	cmd.Flags().StringVar(&output, "output", "", "local destination path (default: <id>)")
	return cmd
}

func newSnapshotDeleteCmd() *cobra.Command {
	var remoteDir string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a published snapshot archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remoteDir == "" {
				return asterrors.New(asterrors.KindValidation, "--remote-dir is required")
			}
			store, err := snapshot.NewLocalStore(remoteDir)
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&remoteDir, "remote-dir", "", "remote store directory")
	return cmd
}
