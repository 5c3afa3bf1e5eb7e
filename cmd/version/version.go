// Package versioncmder
package versioncmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadforgeco/leadforge/pkg/cliui"
	"github.com/leadforgeco/leadforge/pkg/utils"
)

type VersionCommander struct{}

func NewVersionCmd() *cobra.Command {
	cmder := &VersionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of the leadforge CLI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	return cmd
}

func (c *VersionCommander) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("version:"), cliui.ValueStyle.Render(utils.Version))
	fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("sha:"), cliui.ValueStyle.Render(utils.Sha))
	fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("built:"), cliui.ValueStyle.Render(utils.Buildtime))
	return nil
}
