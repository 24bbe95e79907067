package app_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"frs/profile-service/internal/app"
	"frs/profile-service/internal/config"
	"frs/profile-service/internal/importer"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		StoreDriver:       "sqlite",
		SQLitePath:        filepath.Join(dir, "profiles.db"),
		BlobBackend:       "filesystem",
		BlobPath:          filepath.Join(dir, "uploads"),
		ImageFetchTimeout: time.Second,
	}
}

func TestOpen_SQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	a, err := app.Open(ctx, sqliteConfig(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	csv := "first_name,last_name,email\nJane,Doe,jane@x.com\n"
	res, err := a.Importer.Process(ctx, strings.NewReader(csv), importer.Options{Actor: "test"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("created = %d, log %v", res.Created, res.Log)
	}

	list, err := a.Profiles.List(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Email != "jane@x.com" {
		t.Errorf("profiles = %+v", list)
	}

	families, err := a.Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "profile_import_rows_total" {
			found = true
		}
	}
	if !found {
		t.Error("import metrics not registered")
	}
}

func TestOpen_S3Blobs(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.BlobBackend = "s3"
	cfg.S3Bucket = "headshots"
	cfg.S3Region = "us-east-1"
	cfg.S3Endpoint = "http://127.0.0.1:9000"
	cfg.AWSAccessKeyID = "test"
	cfg.AWSSecretKey = "test"

	a, err := app.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	a.Close()
}

func TestOpen_BadAliasesFile(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.FieldAliasesFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := app.Open(context.Background(), cfg); err == nil {
		t.Error("expected an error for a missing aliases file")
	}
}
