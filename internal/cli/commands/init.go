package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/plmap/internal/config"
)

const configTemplate = `# plmap configuration
root: .
sources:
  - "**/*.sql"
  - "**/*.pks"
  - "**/*.pkb"
  - "**/*.prc"
  - "**/*.fnc"
  - "**/*.trg"
dialect: plsql
workers: 0
state_path: .plmap/state.db
output: text
log_level: info
graph:
  max_depth: 0
chunks:
  max_batch_tokens: 5000
  chars_per_token: 4
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a plmap.yaml in a project",
		Long: `Write a plmap.yaml with the default settings to the given directory, or
the current directory.`,
		Example: `  # Initialize in current directory
  plmap init

  # Overwrite an existing config
  plmap init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path, err := writeConfig(dir, force)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func writeConfig(dir string, force bool) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
