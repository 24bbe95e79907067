package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportExportMerge(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	for _, k := range []string{"STORE_DRIVER", "SQLITE_PATH", "ENVIRONMENT", "REDIS_URL", "BLOB_BACKEND", "FIELD_ALIASES_FILE"} {
		t.Setenv(k, "")
	}

	db := filepath.Join(dir, "profiles.db")
	csvPath := filepath.Join(dir, "users.csv")
	data := "First Name,Last Name,Email,NMLS\nJane,Doe,jane@x.com,111\nJanet,Doe,,\n"
	if err := os.WriteFile(csvPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--sqlite", db, "import", "--file", csvPath)
	if err != nil {
		t.Fatalf("preview: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 rows: 2 new") {
		t.Errorf("preview output:\n%s", out)
	}

	out, err = run(t, "--sqlite", db, "import", "--file", csvPath, "--apply")
	if err != nil {
		t.Fatalf("apply: %v\n%s", err, out)
	}
	if !strings.Contains(out, "created=2") {
		t.Errorf("apply output:\n%s", out)
	}

	out, err = run(t, "--sqlite", db, "merge", "1", "2")
	if err != nil {
		t.Fatalf("merge: %v\n%s", err, out)
	}
	if !strings.Contains(out, "merged 2 into 1") {
		t.Errorf("merge output:\n%s", out)
	}

	exportPath := filepath.Join(dir, "out.csv")
	if _, err := run(t, "--sqlite", db, "export", "--out", exportPath); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "jane@x.com") {
		t.Errorf("export:\n%s", b)
	}
}

func TestSQLiteFlagBeatsEnvFiles(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	for _, k := range []string{"STORE_DRIVER", "DATABASE_URL", "SQLITE_PATH", "ENVIRONMENT", "REDIS_URL", "BLOB_BACKEND", "FIELD_ALIASES_FILE"} {
		t.Setenv(k, "")
	}
	local := "STORE_DRIVER=postgres\nDATABASE_URL=postgres://nowhere/db\nSQLITE_PATH=other.db\n"
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte(local), 0o644); err != nil {
		t.Fatal(err)
	}
	csvPath := filepath.Join(dir, "users.csv")
	if err := os.WriteFile(csvPath, []byte("First Name,Email\nJane,jane@x.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	db := filepath.Join(dir, "cli.db")
	out, err := run(t, "--sqlite", db, "import", "--file", csvPath, "--apply")
	if err != nil {
		t.Fatalf("apply: %v\n%s", err, out)
	}
	if !strings.Contains(out, "created=1") {
		t.Errorf("apply output:\n%s", out)
	}
	if _, err := os.Stat(db); err != nil {
		t.Errorf("--sqlite file not used: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "other.db")); !os.IsNotExist(err) {
		t.Errorf("SQLITE_PATH from .env.local was used: %v", err)
	}
}

func TestImportRejectsBadFlags(t *testing.T) {
	if _, err := run(t, "import", "--file", "x.csv", "--match", "phone"); err == nil {
		t.Error("expected an error for an unknown match mode")
	}
	if _, err := run(t, "merge", "one", "2"); err == nil {
		t.Error("expected a usage error for non-numeric ids")
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
