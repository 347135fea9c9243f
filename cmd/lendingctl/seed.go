package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"doccenter/internal/catalog"
	"doccenter/internal/membership"
)

// seedFile is the fixture format read by the seed command. Titles are
// written before volumes so volume foreign keys resolve.
type seedFile struct {
	Titles  []catalog.Title     `json:"titles"`
	Volumes []catalog.Volume    `json:"volumes"`
	Members []membership.Member `json:"members"`
}

type seedSummary struct {
	Titles  int `json:"titles"`
	Volumes int `json:"volumes"`
	Members int `json:"members"`
}

func newSeedCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert titles, volumes and members from a JSON fixture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read fixture: %w", err)
			}
			var fixture seedFile
			if err := json.Unmarshal(raw, &fixture); err != nil {
				return fmt.Errorf("decode fixture %s: %w", path, err)
			}

			db, err := a.openSQL(ctx, true)
			if err != nil {
				return err
			}
			defer db.Close()

			for _, t := range fixture.Titles {
				if err := db.PutTitle(ctx, t); err != nil {
					return fmt.Errorf("title %s: %w", t.ID, err)
				}
			}
			for _, v := range fixture.Volumes {
				if err := db.PutVolume(ctx, v); err != nil {
					return fmt.Errorf("volume %s: %w", v.ID, err)
				}
			}
			for _, m := range fixture.Members {
				if err := db.PutMember(ctx, m); err != nil {
					return fmt.Errorf("member %s: %w", m.ID, err)
				}
			}
			return writeJSON(cmd, seedSummary{
				Titles:  len(fixture.Titles),
				Volumes: len(fixture.Volumes),
				Members: len(fixture.Members),
			})
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "fixture file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
