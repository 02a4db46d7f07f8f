package main

import (
	"github.com/spf13/cobra"
)

func newInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install [name...]",
		Short: "Install configured binaries",
		Long: `Install the named binaries, or every configured binary when no names are
given. Already installed binaries are skipped. All binaries are attempted
even when some fail; the command exits non-zero if any did.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.close()
			return a.manager.InstallAll(cmd.Context(), args)
		},
	}
}
