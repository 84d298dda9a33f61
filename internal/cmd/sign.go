package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicdesk/payverify/internal/signature"
)

func newSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Compute the callback signature for an order and payment",
		Long: "Compute the signature Razorpay would send for the given order and payment ids, " +
			"using the configured key secret. Useful for exercising a deployment by hand.",
		Args: cobra.NoArgs,
		RunE: runSign,
	}
	cmd.Flags().String("order", "", "razorpay_order_id")
	cmd.Flags().String("payment", "", "razorpay_payment_id")
	cmd.Flags().String("check", "", "verify this signature instead of printing one")
	cmd.Flags().Bool("body", false, "print a complete JSON callback body")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("payment")
	return cmd
}

func runSign(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	orderID, _ := cmd.Flags().GetString("order")
	paymentID, _ := cmd.Flags().GetString("payment")
	check, _ := cmd.Flags().GetString("check")
	body, _ := cmd.Flags().GetBool("body")

	secret := cfg.SecretSource().KeySecret()
	if secret == "" {
		return fmt.Errorf("%w: set razorpay.key_secret or %s", signature.ErrNotConfigured, cfg.Razorpay.SecretEnv)
	}
	out := cmd.OutOrStdout()

	if check != "" {
		result, err := signature.Verify(orderID, paymentID, check, secret)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, result)
		if result != signature.Valid {
			return errors.New("signature does not match")
		}
		return nil
	}

	if err := signature.RequireFields(orderID, paymentID, "-"); err != nil {
		return err
	}
	sig := signature.Sign(secret, orderID, paymentID)
	if !body {
		_, _ = fmt.Fprintln(out, sig)
		return nil
	}
	data, err := json.MarshalIndent(map[string]string{
		signature.FieldOrderID:   orderID,
		signature.FieldPaymentID: paymentID,
		signature.FieldSignature: sig,
	}, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, string(data))
	return nil
}
