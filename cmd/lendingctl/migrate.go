package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := a.openSQL(ctx, true)
			if err != nil {
				return err
			}
			defer db.Close()

			if reset {
				if err := db.Reset(ctx); err != nil {
					return err
				}
				a.log.WarnContext(ctx, "all rows deleted")
			}
			a.log.InfoContext(ctx, "schema up to date", "driver", a.cfg.Database.Driver)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete every row after migrating")
	return cmd
}
