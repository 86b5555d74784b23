package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/quantrail/reckon/internal/config"
	"github.com/quantrail/reckon/pkg/ingest"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ReconLoop periodically scans the inbox directory for new CSV feeds and runs
// each unseen file through the reconciliation pipeline. Files are never moved
// or deleted; deduplication is by source file name.
type ReconLoop struct {
	conf         config.InboxConf
	reconService *ReconService
	logger       *zap.Logger

	mu        sync.Mutex
	startTime time.Time
	isRunning bool
	stopChan  chan struct{}
	cron      *cron.Cron
	cancel    context.CancelFunc
}

func NewReconLoop(conf *config.Config, reconService *ReconService, logger *zap.Logger) *ReconLoop {
	return &ReconLoop{
		conf:         conf.Inbox,
		reconService: reconService,
		logger:       logger,
	}
}

// Start schedules inbox scans and blocks until Stop is called or the context
// is cancelled. The first scan runs immediately. The loop can be started
// again after a Stop.
func (t *ReconLoop) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return fmt.Errorf("recon loop is already running")
	}

	interval := t.conf.IntervalMinutes
	if interval <= 0 {
		interval = 10
	}
	cronExpr := fmt.Sprintf("*/%d * * * *", interval)

	c := cron.New()
	_, err := c.AddFunc(cronExpr, func() {
		if err := t.ScanInbox(context.Background()); err != nil {
			t.logger.Error("inbox scan failed", zap.Error(err))
		}
	})
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	stopChan := make(chan struct{})

	t.isRunning = true
	t.startTime = time.Now()
	t.stopChan = stopChan
	t.cron = c
	t.cancel = cancel
	t.mu.Unlock()

	t.logger.Info("recon loop started",
		zap.String("inbox", t.conf.Dir),
		zap.Int("interval_minutes", interval),
		zap.String("cron_expression", cronExpr))

	c.Start()

	go func() {
		if err := t.ScanInbox(context.Background()); err != nil {
			t.logger.Error("first inbox scan failed", zap.Error(err))
		}
	}()

	select {
	case <-stopChan:
		t.logger.Info("recon loop stopped by user")
		return nil
	case <-ctx.Done():
		t.Stop()
		t.logger.Info("recon loop stopped by context")
		return ctx.Err()
	}
}

// Stop halts the scheduler and waits for a running scan to finish. Stopping
// a loop that is not running is a no-op.
func (t *ReconLoop) Stop() {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = false
	c := t.cron
	cancel := t.cancel
	stopChan := t.stopChan
	t.cron = nil
	t.cancel = nil
	t.stopChan = nil
	t.mu.Unlock()

	t.logger.Info("stopping recon loop...")

	if c != nil {
		ctx := c.Stop()
		<-ctx.Done()
		t.logger.Info("cron scheduler stopped")
	}

	close(stopChan)
	if cancel != nil {
		cancel()
	}
	t.logger.Info("recon loop stopped")
}

// ScanInbox processes every CSV file in the inbox that has no batch yet.
// One bad file does not stop the scan; its batch row records the failure.
func (t *ReconLoop) ScanInbox(ctx context.Context) error {
	files, err := ingest.ListCSVFiles(t.conf.Dir)
	if err != nil {
		return fmt.Errorf("failed to list inbox %s: %w", t.conf.Dir, err)
	}

	processed := 0
	for _, path := range files {
		source := filepath.Base(path)

		seen, err := t.reconService.AlreadyProcessed(ctx, source)
		if err != nil {
			return err
		}
		if seen {
			continue
		}

		t.logger.Info("processing inbox file", zap.String("file", source))

		raw, err := ingest.ReadCSVFile(path)
		if err != nil {
			t.logger.Error("failed to read inbox file",
				zap.String("file", source),
				zap.Error(err))
			continue
		}

		if _, err := t.reconService.ExecuteBatch(ctx, raw); err != nil {
			t.logger.Error("inbox batch failed",
				zap.String("file", source),
				zap.Error(err))
			continue
		}
		processed++
	}

	if processed > 0 {
		t.logger.Info("inbox scan completed",
			zap.Int("files_processed", processed),
			zap.Int("files_seen", len(files)))
	}
	return nil
}

// IsRunning reports whether the loop is active.
func (t *ReconLoop) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isRunning
}

// GetStatus returns loop state for the console API.
func (t *ReconLoop) GetStatus() map[string]interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return map[string]interface{}{
		"is_running":       t.isRunning,
		"inbox_dir":        t.conf.Dir,
		"interval_minutes": t.conf.IntervalMinutes,
		"start_time":       t.startTime,
		"elapsed_hours":    time.Since(t.startTime).Hours(),
	}
}
