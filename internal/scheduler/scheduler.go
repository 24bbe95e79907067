// Package scheduler wires up the cron job that periodically imports CSV files
// dropped into a watched directory.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"frs/profile-service/internal/importer"
)

// Processor runs one import. *importer.Importer satisfies it.
type Processor interface {
	Process(ctx context.Context, r io.Reader, opts importer.Options) (*importer.Result, error)
}

// Scheduler wraps robfig/cron and manages the drop-directory import loop.
type Scheduler struct {
	cron *cron.Cron
	proc Processor
	dir  string
	opts importer.Options
	spec string // cron spec, e.g. "@every 6h"

	mu    sync.Mutex
	stuck map[string]bool // imported but not archived; guarded by mu
}

// New creates a Scheduler that scans dir every intervalHours hours.
func New(proc Processor, dir string, opts importer.Options, intervalHours int) *Scheduler {
	if opts.Actor == "" {
		opts.Actor = "scheduler"
	}
	return &Scheduler{
		cron:  cron.New(cron.WithLogger(cron.DefaultLogger)),
		proc:  proc,
		dir:   dir,
		opts:  opts,
		spec:  fmt.Sprintf("@every %dh", intervalHours),
		stuck: make(map[string]bool),
	}
}

// Start registers the job and starts the scheduler. Also runs one scan
// immediately so files waiting at boot are not held until the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — spec: %s, dir: %s", s.spec, s.dir)

	// Run immediately on startup (non-blocking)
	go s.RunOnce(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running scan.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] Cron stopped")
}

// RunOnce imports every *.csv in the drop directory, oldest name first, and
// moves each to processed/ or failed/. It returns how many files were
// imported successfully. Overlapping scans are skipped. A file that cannot be
// moved is never imported again by this Scheduler.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	if !s.mu.TryLock() {
		log.Println("[scheduler] Previous scan still running — skipping")
		return 0
	}
	defer s.mu.Unlock()

	files, err := s.pending()
	if err != nil {
		log.Printf("[scheduler] list %s error: %v", s.dir, err)
		return 0
	}
	if len(files) == 0 {
		return 0
	}

	log.Printf("[scheduler] Importing %d file(s)", len(files))
	ok := 0
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		res, err := s.importFile(ctx, path)
		if err != nil {
			log.Printf("[scheduler] %s failed: %v", filepath.Base(path), err)
			s.archiveOrHold(path, "failed")
			continue
		}
		log.Printf("[scheduler] %s: created=%d updated=%d skipped=%d errors=%d",
			filepath.Base(path), res.Created, res.Updated, res.Skipped, res.Errors)
		s.archiveOrHold(path, "processed")
		ok++
	}
	return ok
}

func (s *Scheduler) pending() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if s.stuck[path] {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

func (s *Scheduler) importFile(ctx context.Context, path string) (*importer.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.proc.Process(ctx, f, s.opts)
}

func (s *Scheduler) archiveOrHold(path, sub string) {
	if err := archive(s.dir, path, sub); err != nil {
		log.Printf("[scheduler] %v — %s left in place and will not be re-imported", err, filepath.Base(path))
		s.stuck[path] = true
	}
}

// archive moves path into dir/<sub>/ under a timestamped name.
func archive(dir, path, sub string) error {
	dest := filepath.Join(dir, sub)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dest, err)
	}
	name := time.Now().UTC().Format("20060102T150405") + "-" + filepath.Base(path)
	if err := os.Rename(path, filepath.Join(dest, name)); err != nil {
		return fmt.Errorf("move %s: %w", filepath.Base(path), err)
	}
	return nil
}
