package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicdesk/payverify/internal/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the admin API",
		Args:  cobra.NoArgs,
		RunE:  runToken,
	}
	cmd.Flags().String("role", auth.RoleViewer, "token role: admin or viewer")
	cmd.Flags().String("subject", "operator", "who the token is for")
	cmd.Flags().Duration("ttl", 0, "token lifetime (default auth.jwt_expiry)")
	return cmd
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	role, _ := cmd.Flags().GetString("role")
	subject, _ := cmd.Flags().GetString("subject")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	svc := auth.NewService(cfg.Auth)
	tok, err := svc.IssueToken(subject, role, ttl)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
