package main

import (
	"github.com/spf13/cobra"
)

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [name...]",
		Short: "Delete download caches",
		Long: `Delete the download cache of the named binaries, or all of them. Installed
binaries keep working; the next install or update re-downloads the archive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.close()
			return a.manager.CleanAll(args)
		},
	}
}
