package main

import (
	"github.com/spf13/cobra"
	"github.com/trezcool/goose"

	appfs "github.com/trezcool/lms/fs"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run database migrations (up, up-by-one, up-to, down, down-to, redo, reset, status, version)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cli.db == nil {
				return errNoDatabase
			}
			return gooseRunFunc(args[0], cli.db.DB, appfs.FS, "migrations", args[1:]...)
		},
	}
}
