package main

import (
	"github.com/spf13/cobra"
)

func newUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update [name...]",
		Short: "Update installed binaries to their latest release",
		Long: `Update the named binaries, or every configured binary when no names are
given. Pinned and not-installed binaries are left alone. An update is an
uninstall followed by an install of the latest version; the two halves are
not atomic, so an interrupted update leaves the binary uninstalled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.close()
			return a.manager.UpdateAll(cmd.Context(), args)
		},
	}
}
