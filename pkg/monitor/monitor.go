// Package monitor periodically analyzes usage data and reports aggregate
// savings estimates.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/pario-ai/tokopt/pkg/metrics"
	"github.com/pario-ai/tokopt/pkg/models"
	"github.com/pario-ai/tokopt/pkg/optimizer"
)

// HistoryStore persists analyses and applies retention.
type HistoryStore interface {
	Record(ctx context.Context, rec models.AnalysisRecord) (string, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Config wires a Monitor. Optimizer and Source are required.
type Config struct {
	Optimizer *optimizer.Optimizer
	Source    UsageSource
	History   HistoryStore
	Metrics   *metrics.Collector
	Logger    *slog.Logger

	CheckSchedule   string
	ReportSchedule  string
	PruneSchedule   string
	RetentionDays   int
	WatchFile       bool
	AvgPromptLength int

	// Now defaults to time.Now.
	Now func() time.Time
}

// Monitor runs usage checks on a schedule. Each check is independent; the
// monitor only keeps its own counters between checks.
type Monitor struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
	runID  string

	mu                 sync.Mutex
	startedAt          time.Time
	checks             int
	failed             int
	checksAtLastReport int
	estimatedSavings   float64
	lastCost           float64
}

// New validates cfg and returns a Monitor.
func New(cfg Config) (*Monitor, error) {
	if cfg.Optimizer == nil {
		return nil, errors.New("monitor: optimizer is required")
	}
	if cfg.Source == nil {
		return nil, errors.New("monitor: usage source is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	runID := uuid.NewString()
	return &Monitor{
		cfg:       cfg,
		logger:    logger.With("component", "monitor", "run_id", runID),
		now:       now,
		runID:     runID,
		startedAt: now(),
	}, nil
}

// RunID identifies this monitor instance in stored history.
func (m *Monitor) RunID() string {
	return m.runID
}

// Check loads usage from the source and analyzes it. A check started after
// ctx is cancelled is skipped and not counted as a failure.
func (m *Monitor) Check(ctx context.Context) (models.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return models.Analysis{}, err
	}
	usage, err := m.cfg.Source.Load(ctx)
	if err != nil {
		return models.Analysis{}, m.fail(fmt.Errorf("load usage: %w", err))
	}

	a, err := m.cfg.Optimizer.Analyze(usage, optimizer.AnalyzeOptions{AvgPromptLength: m.cfg.AvgPromptLength})
	if err != nil {
		return models.Analysis{}, m.fail(fmt.Errorf("analyze usage: %w", err))
	}

	m.mu.Lock()
	m.checks++
	m.estimatedSavings += a.PotentialSavings
	m.lastCost = a.Cost.CurrentCost
	m.mu.Unlock()

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ObserveAnalysis(a)
	}

	if m.cfg.History != nil {
		rec := models.NewAnalysisRecord(a, m.runID, m.cfg.Source.Name(), m.now())
		if _, err := m.cfg.History.Record(ctx, rec); err != nil {
			m.logger.Warn("record analysis failed", "error", err)
		}
	}

	m.logger.Info("usage check complete",
		"current_cost", a.Cost.CurrentCost,
		"potential_savings", a.PotentialSavings,
		"recommendations", len(a.Recommendations),
	)
	return a, nil
}

func (m *Monitor) fail(err error) error {
	m.mu.Lock()
	m.failed++
	m.mu.Unlock()
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ObserveFailure()
	}
	m.logger.Error("usage check failed", "error", err)
	return err
}

// Report summarizes activity since start and marks the start of a new
// reporting period.
func (m *Monitor) Report() models.MonitorReport {
	now := m.now()

	m.mu.Lock()
	r := models.MonitorReport{
		Timestamp:        now,
		RunID:            m.runID,
		Uptime:           now.Sub(m.startedAt),
		Checks:           m.checks,
		FailedChecks:     m.failed,
		ChecksSinceLast:  m.checks - m.checksAtLastReport,
		EstimatedSavings: m.estimatedSavings,
		LastCost:         m.lastCost,
	}
	if m.checks > 0 {
		r.AvgSavingsPerCheck = m.estimatedSavings / float64(m.checks)
	}
	m.checksAtLastReport = m.checks
	m.mu.Unlock()

	m.logger.Info("monitor report",
		"uptime", r.Uptime.Round(time.Second).String(),
		"checks", r.Checks,
		"failed_checks", r.FailedChecks,
		"checks_since_last", r.ChecksSinceLast,
		"estimated_savings", r.EstimatedSavings,
		"avg_savings_per_check", r.AvgSavingsPerCheck,
	)
	return r
}

// Prune removes history older than the retention window.
func (m *Monitor) Prune(ctx context.Context) (int64, error) {
	if m.cfg.History == nil || m.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := m.now().AddDate(0, 0, -m.cfg.RetentionDays)
	n, err := m.cfg.History.Prune(ctx, cutoff)
	if err != nil {
		m.logger.Error("history prune failed", "error", err)
		return 0, err
	}
	m.logger.Info("history pruned", "removed", n, "before", cutoff.Format(time.RFC3339))
	return n, nil
}

// Run performs an initial check, then schedules checks, reports and
// retention pruning until ctx is cancelled. With WatchFile set and a
// FileSource, changes to the usage file trigger an extra check.
func (m *Monitor) Run(ctx context.Context) error {
	cronLog := cron.PrintfLogger(slog.NewLogLogger(m.logger.Handler(), slog.LevelError))
	c := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(
			cron.Recover(cronLog),
			cron.SkipIfStillRunning(cronLog),
		),
	)

	type job struct {
		name string
		spec string
		fn   func()
	}
	jobs := []job{
		{"check", m.cfg.CheckSchedule, func() { _, _ = m.Check(ctx) }},
		{"report", m.cfg.ReportSchedule, func() { m.Report() }},
	}
	if m.cfg.History != nil && m.cfg.RetentionDays > 0 {
		jobs = append(jobs, job{"prune", m.cfg.PruneSchedule, func() { _, _ = m.Prune(ctx) }})
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		if _, err := c.AddFunc(j.spec, j.fn); err != nil {
			return fmt.Errorf("schedule %s %q: %w", j.name, j.spec, err)
		}
	}

	var w *fileWatcher
	if fs, ok := m.cfg.Source.(*FileSource); ok && m.cfg.WatchFile {
		var err error
		w, err = newFileWatcher(fs.Path, m.logger)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	m.logger.Info("monitor started",
		"source", m.cfg.Source.Name(),
		"check_schedule", m.cfg.CheckSchedule,
		"report_schedule", m.cfg.ReportSchedule,
		"watch_file", w != nil,
	)

	_, _ = m.Check(ctx)
	c.Start()

	watchDone := make(chan struct{})
	if w != nil {
		go func() {
			defer close(watchDone)
			w.Run(ctx, func() { _, _ = m.Check(ctx) })
		}()
	} else {
		close(watchDone)
	}

	<-ctx.Done()
	<-c.Stop().Done()
	<-watchDone
	m.Report()
	m.logger.Info("monitor stopped")
	return nil
}
