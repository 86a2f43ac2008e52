package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"financia/internal/config"
	"financia/internal/log"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	t.Setenv("DATA_BACKEND", backend)
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "app.db"))
	t.Setenv("EMERGENCY_FUND_MONTHS", "4")
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func TestOpenApp_SeedsAndPersists(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendSQLite)

	app, err := OpenApp(ctx, cfg, quietLogger(), "ana")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if app.Found {
		t.Fatal("fresh database should not have state")
	}
	if got := app.Store.State().EmergencyFundMonths; got != 4 {
		t.Fatalf("seed months = %d, want 4", got)
	}
	app.Store.SetSalary(6000)
	if err := app.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	again, err := OpenApp(ctx, cfg, quietLogger(), "ana")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close(ctx)
	if !again.Found || again.Store.State().Salary != 6000 {
		t.Fatalf("state not reloaded: found=%v salary=%v", again.Found, again.Store.State().Salary)
	}
}

func TestOpenApp_DefaultsToConfiguredUser(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.UserID = "local"
	app, err := OpenApp(context.Background(), cfg, quietLogger(), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer app.Close(context.Background())
	if app.UserID != "local" {
		t.Fatalf("user = %q", app.UserID)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FINANCIA_TEST_KEY=hello\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FINANCIA_TEST_KEY", "")
	os.Unsetenv("FINANCIA_TEST_KEY")
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("FINANCIA_TEST_KEY"); got != "hello" {
		t.Fatalf("env not loaded, got %q", got)
	}
}
