package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clinicdesk/payverify/internal/auth"
	"github.com/clinicdesk/payverify/internal/config"
	"github.com/clinicdesk/payverify/internal/signature"
)

const jwtSecret = "cmd-test-jwt-secret-at-least-32-characters"

func writeConfig(t *testing.T, cfg map[string]any) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "payverify.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("1.2.3")
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "payverify 1.2.3" {
		t.Errorf("version output = %q", out)
	}
}

func TestSign(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"server":   map[string]any{"addr": ":8080"},
		"razorpay": map[string]any{"key_secret": "testsecret"},
	})

	out, err := execute(t, "sign", "-c", path, "--order", "order_ABC123", "--payment", "pay_XYZ789")
	if err != nil {
		t.Fatal(err)
	}
	want := signature.Sign("testsecret", "order_ABC123", "pay_XYZ789")
	if strings.TrimSpace(out) != want {
		t.Errorf("sign output = %q, want %q", out, want)
	}

	out, err = execute(t, "sign", "-c", path, "--order", "order_ABC123", "--payment", "pay_XYZ789", "--body")
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body[signature.FieldSignature] != want || body[signature.FieldOrderID] != "order_ABC123" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestSign_Check(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"server":   map[string]any{"addr": ":8080"},
		"razorpay": map[string]any{"key_secret": "testsecret"},
	})
	good := signature.Sign("testsecret", "order_1", "pay_1")

	out, err := execute(t, "sign", "-c", path, "--order", "order_1", "--payment", "pay_1", "--check", good)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "valid" {
		t.Errorf("check output = %q", out)
	}

	out, err = execute(t, "sign", "-c", path, "--order", "order_1", "--payment", "pay_1", "--check", "deadbeef")
	if err == nil {
		t.Fatal("expected error for mismatched signature")
	}
	if strings.TrimSpace(out) != "invalid" {
		t.Errorf("check output = %q", out)
	}
}

func TestSign_EnvSecret(t *testing.T) {
	t.Setenv("PV_CMD_SECRET", "from-env")
	path := writeConfig(t, map[string]any{
		"server":   map[string]any{"addr": ":8080"},
		"razorpay": map[string]any{"secret_env": "PV_CMD_SECRET"},
	})
	out, err := execute(t, "sign", "-c", path, "--order", "o", "--payment", "p")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != signature.Sign("from-env", "o", "p") {
		t.Errorf("sign output = %q", out)
	}
}

func TestSign_NoSecret(t *testing.T) {
	t.Setenv(signature.DefaultEnvKey, "")
	path := writeConfig(t, map[string]any{"server": map[string]any{"addr": ":8080"}})
	_, err := execute(t, "sign", "-c", path, "--order", "o", "--payment", "p")
	if !errors.Is(err, signature.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestToken(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"server": map[string]any{"addr": ":8080"},
		"auth":   map[string]any{"jwt_secret": jwtSecret},
	})

	out, err := execute(t, "token", "-c", path, "--role", "admin", "--subject", "ops")
	if err != nil {
		t.Fatal(err)
	}

	svc := auth.NewService(config.AuthConfig{JWTSecret: jwtSecret})
	id, err := svc.ValidateToken(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("minted token does not validate: %v", err)
	}
	if id.Role != auth.RoleAdmin || id.Subject != "ops" {
		t.Errorf("unexpected identity %+v", id)
	}
}

func TestToken_Disabled(t *testing.T) {
	path := writeConfig(t, map[string]any{"server": map[string]any{"addr": ":8080"}})
	_, err := execute(t, "token", "-c", path)
	if !errors.Is(err, auth.ErrNotEnabled) {
		t.Fatalf("expected ErrNotEnabled, got %v", err)
	}
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"server":   map[string]any{"addr": ":8080"},
		"razorpay": map[string]any{"key_secret": "rzp_live_abcdefgh1234"},
		"auth":     map[string]any{"jwt_secret": jwtSecret},
	})
	out, err := execute(t, "config", path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "rzp_live_abcdefgh1234") || strings.Contains(out, jwtSecret) {
		t.Errorf("secret leaked in output:\n%s", out)
	}
	if !strings.Contains(out, "****1234") {
		t.Errorf("expected masked key secret in output:\n%s", out)
	}
}

func TestRun_ExplicitConfigMustExist(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestRoot_PositionalConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "my.json")
	_, err := execute(t, missing)
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("bare config path was treated as a subcommand: %v", err)
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("expected config load error, got %v", err)
	}

	if _, err := execute(t, "a.json", "b.json"); err == nil {
		t.Error("expected error for two positional args")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":                "",
		"short":           "****",
		"longer-secret-9": "****et-9",
	}
	for in, want := range tests {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
