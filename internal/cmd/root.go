// Package cmd implements the payverify command line.
package cmd

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// NewRootCmd creates the root cobra command for payverify.
// When invoked without a subcommand, it delegates to "run".
func NewRootCmd(v string) *cobra.Command {
	version = v

	root := &cobra.Command{
		Use:   "payverify [config-file]",
		Short: "payverify: Razorpay payment callback verification service",
		Long: "payverify checks the HMAC-SHA256 signature Razorpay attaches to a checkout callback " +
			"and activates the clinic subscription when it matches.",
		// Bare invocation (no subcommand) behaves as "run".
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newSignCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringP("config", "c", "", "path to config file (default ./payverify.json)")

	return root
}
