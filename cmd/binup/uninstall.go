package main

import (
	"github.com/spf13/cobra"
)

func newUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall [name...]",
		Short: "Remove installed binaries",
		Long: `Remove the named binaries, or every configured binary when no names are
given. Removal is best-effort: the symlink, extracted tree, download cache,
and history rows are each removed independently, so a partially installed
binary is cleaned up rather than refused.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.close()
			return a.manager.UninstallAll(cmd.Context(), args)
		},
	}
}
