package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "doccenter/internal/jwt_token"
	id "doccenter/pkg/domain"
	pkgstrings "doccenter/pkg/platform/strings"
)

func newTokenCmd(a *app) *cobra.Command {
	var (
		userID   string
		tenantID string
		groups   []string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token signed with the server key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid, err := id.ParseUserID(userID)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			tid, err := id.ParseTenantID(tenantID)
			if err != nil {
				return fmt.Errorf("--tenant: %w", err)
			}
			svc := jwttoken.NewJWTService(a.cfg.Server.JWTSigningKey, jwttoken.Issuer, jwttoken.Audience)
			token, err := svc.GenerateAccessToken(uid, tid, pkgstrings.NormalizeGroups(groups), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "actor user id")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	cmd.Flags().StringSliceVar(&groups, "group", nil, "group membership, repeatable")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
