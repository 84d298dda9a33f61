package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, configPath, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	masked := *cfg
	masked.Razorpay.KeySecret = maskSecret(cfg.Razorpay.KeySecret)
	masked.Auth.JWTSecret = maskSecret(cfg.Auth.JWTSecret)

	data, err := json.MarshalIndent(masked, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Config: %s\n\n", configPath)
	_, _ = fmt.Fprintln(out, string(data))
	return nil
}

// maskSecret shows only the last four characters.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
