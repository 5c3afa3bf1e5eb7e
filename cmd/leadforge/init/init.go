// Package initcmder provides the init command for initializing a local
// .leadforge directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leadforgeco/leadforge/pkg/config"
)

const (
	dirName = ".leadforge"
)

const initLongDesc string = `Initialize a new .leadforge/ directory in the current working directory.

Creates a local .leadforge/ directory that takes precedence over the default
~/.leadforge/ directory for the vector store, configuration, and other
leadforge operations, and seeds it with a default config.toml.

This is useful for maintaining a separate index per project or directory.

Examples:
  leadforge init`

const initShortDesc string = "Initialize a local .leadforge/ directory"

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit()
		},
	}

	return cmd
}

func runInit() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .leadforge directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("resolving config: %w", err)
	}
	if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	fmt.Printf("Initialized .leadforge directory: %s\n", dir)
	return nil
}
