package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"doccenter/internal/admin"
	"doccenter/internal/lending/sweeper"
	"doccenter/internal/notification"
	id "doccenter/pkg/domain"
	"doccenter/pkg/email"
)

func newSweepCmd(a *app) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one overdue sweep and print its summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			now := time.Now()
			if asOf != "" {
				d, err := id.ParseDate(asOf)
				if err != nil {
					return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
				}
				now = d
			}

			db, err := a.openSQL(ctx, false)
			if err != nil {
				return err
			}
			defer db.Close()

			var mailer notification.Mailer = notification.NopMailer{}
			if m := a.cfg.Mail; m.SMTPHost != "" {
				mailer = email.NewSMTPSender(email.Config{
					Host:     m.SMTPHost,
					Port:     m.SMTPPort,
					Username: m.Username,
					Password: m.Password,
					From:     m.From,
				})
			}
			dispatcher := notification.NewDispatcher(notification.Config{
				DueSoonWindow: a.cfg.Lending.DueSoonWindow,
				OverdueWindow: a.cfg.Lending.OverdueWindow,
				CenterEmail:   a.cfg.Mail.CenterEmail,
			}, notification.WithLogger(a.log), notification.WithMailer(mailer))

			sw := sweeper.New(db, dispatcher,
				sweeper.WithLogger(a.log),
				sweeper.WithDueSoonDays(a.cfg.Lending.DueSoonDays),
			)
			res, err := sw.RunOverdueSweep(ctx, now)
			if err != nil {
				return err
			}
			return writeJSON(cmd, admin.FromResult(now, res))
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "sweep as of this date (YYYY-MM-DD) instead of now")
	return cmd
}
