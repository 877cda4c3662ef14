package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/weftcode/astindex/internal/asterrors"
	"github.com/weftcode/astindex/internal/astconfig"
	"github.com/weftcode/astindex/internal/indexstore"
)

func newInitCmd() *cobra.Command {
	var (
		workspace   string
		force       bool
		dryRun      bool
		noGitignore bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the .astdb/ index directory for a workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			root := workspace
			if root == "" {
				var err error
				root, err = os.Getwd()
				if err != nil {
					return asterrors.Wrap(asterrors.KindPath, "resolve working directory", err)
				}
			}
			root, err := filepath.Abs(root)
			if err != nil {
				return asterrors.Wrap(asterrors.KindPath, "resolve workspace path", err)
			}

			layout := indexstore.DefaultLayout(root)
			if layout.Exists() && !force {
				return asterrors.New(asterrors.KindConfiguration, "workspace already initialized").
					WithDetail("root", root).
					WithSuggestion("pass --force to reinitialize")
			}

			configPath := filepath.Join(root, ".astindex.yaml")
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "would create %s\n", layout.Root)
				fmt.Fprintf(cmd.OutOrStdout(), "would write %s\n", configPath)
				if !noGitignore {
					fmt.Fprintf(cmd.OutOrStdout(), "would update %s\n", filepath.Join(root, ".gitignore"))
				}
				return nil
			}

			if err := layout.EnsureDirs(); err != nil {
				return err
			}

			if _, err := os.Stat(configPath); os.IsNotExist(err) || force {
				data, merr := yaml.Marshal(astconfig.New())
				if merr != nil {
					return asterrors.Wrap(asterrors.KindConfiguration, "marshal default config", merr)
				}
				if werr := indexstore.AtomicWriteFile(configPath, data, 0o644); werr != nil {
					return asterrors.Wrap(asterrors.KindConfiguration, "write .astindex.yaml", werr)
				}
			}

			if !noGitignore {
				if _, err := indexstore.EnsureIgnored(root, "astindex", []string{indexstore.DataDirName + "/"}); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized astindex workspace at %s\n", layout.Root)
			return nil
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace root (default: current directory)")
	cmd.Flags().BoolVar(&force, "force", false, "reinitialize an existing workspace")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be created without writing anything")
	cmd.Flags().BoolVar(&noGitignore, "no-gitignore", false, "don't add .astdb/ to .gitignore")

	return cmd
}
