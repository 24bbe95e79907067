package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"frs/profile-service/internal/metrics"
)

func TestImportCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewImport(reg)

	m.Run("process", "update", 1500*time.Millisecond)
	m.Row("new", "created")
	m.Row("new", "created")
	m.Row("update", "errored")
	m.Image("failed")

	const want = `
# HELP profile_import_rows_total Imported rows by decided action and final outcome.
# TYPE profile_import_rows_total counter
profile_import_rows_total{action="new",outcome="created"} 2
profile_import_rows_total{action="update",outcome="errored"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "profile_import_rows_total"); err != nil {
		t.Error(err)
	}
	if n := testutil.CollectAndCount(reg, "profile_import_runs_total"); n != 1 {
		t.Errorf("runs series = %d, want 1", n)
	}
	if n := testutil.CollectAndCount(reg, "profile_image_fetch_total"); n != 1 {
		t.Errorf("image series = %d, want 1", n)
	}
}

func TestNilImportIsNoop(t *testing.T) {
	var m *metrics.Import
	m.Run("preview", "update", time.Second)
	m.Row("skip", "skipped")
	m.Image("ok")
}
