package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"signature-form-api/config"
)

const sweepLockName = "signature_orphan_sweep"

// ErrSweepAlreadyRunning is returned when another process holds the sweep lock.
var ErrSweepAlreadyRunning = errors.New("orphan sweep already running")

// tempSignaturePattern matches files written before their row existed.
var tempSignaturePattern = regexp.MustCompile(`^signature_tmp[0-9a-f]{12}_\d{14}_[0-9a-f]{8}\.(png|webp|svg)$`)

// FileReferenceChecker reports whether a row still points at a file.
type FileReferenceChecker interface {
	IsFileReferenced(ctx context.Context, filename string) (bool, error)
}

// SweepSummary reports one sweep.
type SweepSummary struct {
	Scanned    int      `json:"scanned"`
	Removed    []string `json:"removed"`
	Referenced int      `json:"referenced"`
	TooRecent  int      `json:"too_recent"`
	Failed     int      `json:"failed"`
}

// OrphanSweeper deletes temp-named signature files left behind by requests
// that died between writing files and renaming them.
type OrphanSweeper struct {
	files  *FileStore
	refs   FileReferenceChecker
	maxAge time.Duration
	logs   *config.EventLogs
	lockDB *gorm.DB
	now    func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewOrphanSweeper(files *FileStore, refs FileReferenceChecker, maxAge time.Duration, logs *config.EventLogs) *OrphanSweeper {
	return &OrphanSweeper{
		files:  files,
		refs:   refs,
		maxAge: maxAge,
		logs:   logs,
		now:    time.Now,
	}
}

// WithLock makes every sweep hold a MySQL advisory lock on db, so only one
// process sweeps a shared upload directory at a time.
func (s *OrphanSweeper) WithLock(db *gorm.DB) *OrphanSweeper {
	s.lockDB = db
	return s
}

// Sweep removes every temp-named file older than maxAge that no row references.
func (s *OrphanSweeper) Sweep(ctx context.Context) (*SweepSummary, error) {
	summary := &SweepSummary{Removed: []string{}}
	err := withNamedLock(ctx, s.lockDB, sweepLockName, ErrSweepAlreadyRunning, func(ctx context.Context) error {
		return s.sweep(ctx, summary)
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *OrphanSweeper) sweep(ctx context.Context, summary *SweepSummary) error {
	stored, err := s.files.List(signatureFilePrefix + "tmp")
	if err != nil {
		return err
	}

	cutoff := s.now().Add(-s.maxAge)
	for _, file := range stored {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !tempSignaturePattern.MatchString(file.Name) {
			continue
		}
		summary.Scanned++

		if file.ModTime.After(cutoff) {
			summary.TooRecent++
			continue
		}

		referenced, err := s.refs.IsFileReferenced(ctx, file.Name)
		if err != nil {
			return fmt.Errorf("sweep %s: %w", file.Name, err)
		}
		if referenced {
			summary.Referenced++
			continue
		}

		if err := s.files.Delete(file.Name); err != nil {
			summary.Failed++
			s.logs.Error("Orphan signature file removal failed", map[string]any{
				"file":  file.Name,
				"error": err.Error(),
			})
			continue
		}
		summary.Removed = append(summary.Removed, file.Name)
	}
	return nil
}

// Start runs Sweep on schedule, a robfig/cron spec such as "@every 1h".
func (s *OrphanSweeper) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("orphan sweeper already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, s.runScheduled); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	c.Start()

	s.cron = c
	s.running = true
	log.Printf("Orphan sweeper scheduled (%s, max age %s)", schedule, s.maxAge)
	return nil
}

// Stop waits for a running sweep to finish and stops the schedule.
func (s *OrphanSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
}

func (s *OrphanSweeper) runScheduled() {
	summary, err := s.Sweep(context.Background())
	if errors.Is(err, ErrSweepAlreadyRunning) {
		return
	}
	if err != nil {
		log.Printf("orphan sweep failed: %v", err)
		return
	}
	if len(summary.Removed) > 0 || summary.Failed > 0 {
		log.Printf("orphan sweep removed %d file(s), %d failed", len(summary.Removed), summary.Failed)
	}
}
