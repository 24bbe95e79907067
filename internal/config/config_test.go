package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"frs/profile-service/internal/config"
	"frs/profile-service/internal/importer"
)

var envKeys = []string{
	"ENVIRONMENT", "STORE_DRIVER", "DATABASE_URL", "SQLITE_PATH", "REDIS_URL",
	"PROFILE_PORT", "PROFILE_GRPC_PORT", "BLOB_BACKEND", "BLOB_PATH",
	"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
	"IMAGE_FETCH_TIMEOUT", "IMPORT_DROP_DIR", "IMPORT_INTERVAL_HOURS",
	"IMPORT_MATCH_MODE", "IMPORT_MODE", "FIELD_ALIASES_FILE",
}

// cleanEnv blanks every config variable and moves into an empty directory so
// no stray .env file is picked up.
func cleanEnv(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	chdir(t, dir)
	return dir
}

func TestLoad_SQLiteDefaults(t *testing.T) {
	cleanEnv(t)
	t.Setenv("STORE_DRIVER", "sqlite")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8083" || cfg.GRPCPort != "9093" {
		t.Errorf("ports = %s/%s", cfg.Port, cfg.GRPCPort)
	}
	if cfg.SQLitePath != "profiles.db" || cfg.BlobBackend != "filesystem" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ImageFetchTimeout != 30*time.Second || cfg.ImportIntervalHours != 6 {
		t.Errorf("timeout=%s interval=%d", cfg.ImageFetchTimeout, cfg.ImportIntervalHours)
	}
	if cfg.ImportMatchMode != importer.MatchEmail || cfg.ImportMode != importer.ModeUpdate {
		t.Errorf("modes = %s/%s", cfg.ImportMatchMode, cfg.ImportMode)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without url":   {"STORE_DRIVER": "postgres"},
		"unknown driver":         {"STORE_DRIVER": "mysql"},
		"s3 without bucket":      {"STORE_DRIVER": "sqlite", "BLOB_BACKEND": "s3"},
		"unknown blob backend":   {"STORE_DRIVER": "sqlite", "BLOB_BACKEND": "gcs"},
		"bad fetch timeout":      {"STORE_DRIVER": "sqlite", "IMAGE_FETCH_TIMEOUT": "soon"},
		"zero interval":          {"STORE_DRIVER": "sqlite", "IMPORT_INTERVAL_HOURS": "0"},
		"unknown match mode":     {"STORE_DRIVER": "sqlite", "IMPORT_MATCH_MODE": "phone"},
		"unknown import mode":    {"STORE_DRIVER": "sqlite", "IMPORT_MODE": "upsert"},
		"negative fetch timeout": {"STORE_DRIVER": "sqlite", "IMAGE_FETCH_TIMEOUT": "-1s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			cleanEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := config.Load(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoad_EnvFiles(t *testing.T) {
	dir := cleanEnv(t)
	t.Setenv("PROFILE_GRPC_PORT", "7000")
	t.Setenv("ENVIRONMENT", "staging")

	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(".env", "PROFILE_GRPC_PORT=1\n")
	write(".env.staging", "IMPORT_MODE=create_only\nPROFILE_PORT=8000\n")
	write(".env.local", "STORE_DRIVER=sqlite\nPROFILE_PORT=9999\n")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCPort != "7000" {
		t.Errorf(".env overrode the environment: grpc port = %s", cfg.GRPCPort)
	}
	if cfg.ImportMode != importer.ModeCreateOnly {
		t.Errorf("import mode = %s, want create_only", cfg.ImportMode)
	}
	if cfg.Port != "9999" {
		t.Errorf("port = %s, want .env.local to win", cfg.Port)
	}
}

func TestLoad_WithSQLiteBeatsEnvFiles(t *testing.T) {
	dir := cleanEnv(t)
	body := "STORE_DRIVER=postgres\nSQLITE_PATH=other.db\n"
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(config.WithSQLite("cli.db"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != "sqlite" || cfg.SQLitePath != "cli.db" {
		t.Errorf("driver=%s path=%s, want sqlite/cli.db", cfg.StoreDriver, cfg.SQLitePath)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
