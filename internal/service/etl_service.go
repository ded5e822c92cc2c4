package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"wageflow/internal/domain"
	"wageflow/internal/etl"
	"wageflow/internal/logger"
	"wageflow/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Pipeline Service: runs the wage/inflation pipeline
// ─────────────────────────────────────────────────────────────

// ErrAlreadyRunning is returned when a run is requested while the same
// pipeline is still running.
var ErrAlreadyRunning = errors.New("pipeline is already running")

// Options tune a PipelineService.
type Options struct {
	// Timeout bounds a single run. Zero disables it.
	Timeout time.Duration
	// Schedule is a cron expression re-running the pipeline; empty disables it.
	Schedule string
	// Watch re-runs the pipeline when either input file changes.
	Watch bool
	// Debounce is the quiet period after a file change before running.
	Debounce time.Duration
	// Columns names the merged table columns for typed reads.
	Columns domain.MergedColumns
}

// PipelineService runs one pipeline against an open store, records every
// run and re-runs on schedule or input change.
type PipelineService struct {
	store    *storage.Store
	pipeline *etl.Pipeline
	engine   *etl.Engine
	emitter  EventEmitter
	opts     Options
	running  runGuard

	// watcher / cron lifecycle
	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewPipelineService creates a PipelineService ready for use.
func NewPipelineService(store *storage.Store, pipeline *etl.Pipeline, emitter EventEmitter, opts Options) *PipelineService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	return &PipelineService{
		store:    store,
		pipeline: pipeline,
		engine:   &etl.Engine{Store: store, Exporter: etl.CSVExporter{}},
		emitter:  emitter,
		opts:     opts,
	}
}

// Pipeline returns the pipeline definition the service runs.
func (s *PipelineService) Pipeline() *etl.Pipeline {
	return s.pipeline
}

// ── Run ────────────────────────────────────────────────────

// Run executes the pipeline synchronously and records the outcome in the
// run log, whether it succeeded or not.
func (s *PipelineService) Run(ctx context.Context) (*etl.PipelineResult, error) {
	name := s.pipeline.Name
	if since, ok := s.running.TryLock(name); !ok {
		return nil, fmt.Errorf("%w: %s (started %s ago)", ErrAlreadyRunning, name, time.Since(since).Round(time.Millisecond))
	}
	defer s.running.Unlock(name)

	runID := uuid.New().String()
	log := logger.FromContext(ctx).With("run_id", runID)
	runCtx := logger.ContextWithLogger(ctx, log)
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, runErr := s.engine.RunPipeline(runCtx, s.pipeline)
	result.RunID = runID

	runLog := &etl.RunLog{
		ID:            runID,
		Pipeline:      name,
		StartedAt:     start,
		FinishedAt:    time.Now(),
		Status:        result.Status,
		WageRows:      result.WageRows,
		InflationRows: result.InflationRows,
		MergedRows:    result.MergedRows,
		OutputPath:    result.OutputPath,
	}
	if runErr != nil {
		runLog.Error = runErr.Error()
	}
	// The run log uses the parent context so timed-out runs are still recorded.
	if err := s.store.CreateRunLog(ctx, runLog); err != nil {
		log.Warn("failed to record run", "error", err)
	}

	if runErr != nil {
		log.Error("pipeline failed", "stage", result.Stage, "error", runErr, "duration", result.Duration)
		s.emitter.Emit(ctx, "pipeline:failed", result)
		return result, runErr
	}
	log.Info("pipeline finished",
		"wage_rows", result.WageRows,
		"inflation_rows", result.InflationRows,
		"merged_rows", result.MergedRows,
		"path", result.OutputPath,
		"duration", result.Duration,
	)
	s.emitter.Emit(ctx, "pipeline:completed", result)
	return result, nil
}

// ListSources returns the available ETL source descriptors.
func (s *PipelineService) ListSources() []etl.SourceSpec {
	return etl.ListSources()
}

// ListRuns returns the most recent runs, newest first.
func (s *PipelineService) ListRuns(ctx context.Context, limit int) ([]etl.RunLog, error) {
	return s.store.ListRunLogs(ctx, limit)
}

// ── Preview / Reads ────────────────────────────────────────

// Preview loads and normalizes one input ("wage" or "inflation") without
// touching the store.
func (s *PipelineService) Preview(ctx context.Context, dataset string, rows int) (*etl.Table, error) {
	ds, err := s.pipeline.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	previewCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.engine.Preview(previewCtx, ds, rows)
}

// DescribeSource returns the header of one input ("wage" or "inflation")
// as published, before normalization.
func (s *PipelineService) DescribeSource(ctx context.Context, dataset string) (*etl.Schema, error) {
	ds, err := s.pipeline.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	discoverCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.engine.Discover(discoverCtx, ds)
}

// TableInfo describes one stored table.
type TableInfo struct {
	Name   string      `json:"name"`
	Schema *etl.Schema `json:"schema"`
}

// DescribeTables returns the declared schema of every table in the store.
func (s *PipelineService) DescribeTables(ctx context.Context) ([]TableInfo, error) {
	names, err := s.store.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]TableInfo, 0, len(names))
	for _, n := range names {
		schema, err := s.store.DescribeTable(ctx, n)
		if err != nil {
			return nil, err
		}
		infos = append(infos, TableInfo{Name: n, Schema: schema})
	}
	return infos, nil
}

// MergedRows reads up to limit rows of the merged table as typed records.
func (s *PipelineService) MergedRows(ctx context.Context, limit int) ([]domain.MergedRecord, error) {
	_, records, err := s.store.ReadTable(ctx, s.pipeline.MergedTable, s.pipeline.Join.Key, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MergedRecord, 0, len(records))
	for i, rec := range records {
		m, err := decodeMerged(s.opts.Columns, rec)
		if err != nil {
			return nil, fmt.Errorf("merged row %d: %w", i+1, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func decodeMerged(cols domain.MergedColumns, rec etl.Record) (domain.MergedRecord, error) {
	var m domain.MergedRecord

	raw, _ := rec.Data[cols.Date].(string)
	date, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return m, fmt.Errorf("%w: %s %q", etl.ErrTypeCoercion, cols.Date, raw)
	}
	m.Date = date

	required := func(col string) (float64, error) {
		v, ok := rec.Data[col].(float64)
		if !ok {
			return 0, fmt.Errorf("%w: %s is %v", etl.ErrTypeCoercion, col, rec.Data[col])
		}
		return v, nil
	}
	optional := func(col string) *float64 {
		if col == "" {
			return nil
		}
		if v, ok := rec.Data[col].(float64); ok {
			return &v
		}
		return nil
	}

	if m.WageIndex, err = required(cols.WageIndex); err != nil {
		return m, err
	}
	if m.CPIIndex, err = required(cols.CPIIndex); err != nil {
		return m, err
	}
	if m.InflationTarget, err = required(cols.Target); err != nil {
		return m, err
	}
	m.MonthlyChangePct = optional(cols.MonthlyChange)
	m.YearlyChangePct = optional(cols.YearlyChange)
	return m, nil
}

// ── Triggers (cron + file watch) ──────────────────────────

// StartTriggers tears down any running triggers and starts the configured
// cron schedule and input file watcher. Runs fired by a trigger use ctx.
func (s *PipelineService) StartTriggers(ctx context.Context) error {
	s.stopWatchers()
	log := logger.FromContext(ctx).With("pipeline", s.pipeline.Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Schedule != "" {
		c := cron.New()
		_, err := c.AddFunc(s.opts.Schedule, func() {
			log.Info("etl cron: running pipeline")
			s.runTriggered(ctx, "etl cron:")
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", s.opts.Schedule, err)
		}
		c.Start()
		s.cronSched = c
		log.Info("etl cron: scheduled", "schedule", s.opts.Schedule)
	}

	if !s.opts.Watch {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	watched := make(map[string]bool)
	watchedDirs := make(map[string]bool)
	for _, ds := range []etl.DatasetConfig{s.pipeline.Wage, s.pipeline.Inflation} {
		path := ds.SourceCfg.String("filePath", "")
		if path == "" {
			continue
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			log.Warn("etl watcher: bad path", "path", path, "error", err)
			continue
		}
		watched[absPath] = true

		// Editors replace files, so watch the directory rather than the file.
		dir := filepath.Dir(absPath)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				watcher.Close()
				return fmt.Errorf("watch dir %q: %w", dir, err)
			}
			watchedDirs[dir] = true
		}
	}
	s.watcher = watcher

	watchCtx, cancel := context.WithCancel(ctx)
	s.watchCancel = cancel

	go func() {
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				absPath, _ := filepath.Abs(event.Name)
				if !watched[absPath] {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(s.opts.Debounce, func() {
					if watchCtx.Err() != nil {
						return
					}
					log.Info("etl watcher: file changed, running pipeline", "path", absPath)
					s.runTriggered(watchCtx, "etl watcher:")
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("etl watcher: error", "error", err)
			}
		}
	}()

	log.Info("etl watcher: watching inputs", "files", len(watched))
	return nil
}

func (s *PipelineService) runTriggered(ctx context.Context, prefix string) {
	log := logger.FromContext(ctx)
	if _, err := s.Run(ctx); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			log.Warn(prefix+" run skipped, previous run still active", "pipeline", s.pipeline.Name)
			return
		}
		log.Error(prefix+" run failed", "pipeline", s.pipeline.Name, "error", err)
	}
}

// WaitRunning blocks until the running pipeline finishes or ctx is cancelled.
// Used for graceful shutdown.
func (s *PipelineService) WaitRunning(ctx context.Context) {
	s.running.WaitAll(ctx)
}

// Running reports whether the pipeline is currently running.
func (s *PipelineService) Running() bool {
	return len(s.running.Active()) > 0
}

// Stop tears down all watchers and schedulers.
func (s *PipelineService) Stop() {
	s.stopWatchers()
}

func (s *PipelineService) stopWatchers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
