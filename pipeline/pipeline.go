// Package pipeline runs hsisomap tasks end to end.
//
// A task flows through these stages:
//
//	load → backbone → knngraph → landmark → dijkstra → cmds → manifold → reconstruct
//
// The kNN graph, landmarks, geodesic distances and manifold live on the
// backbone rows; reconstruction maps the manifold coordinates back to every
// row of the input. Every stage is timed into Metrics and logged. Run
// executes the tasks of a Config in order and keeps going after a failed
// task.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/hsisomap/hsisomap/logging"
)

// ErrTaskFailed wraps the error of every failed task returned by Run.
var ErrTaskFailed = errors.New("pipeline: task failed")

// Options configures Run and RunTask.
type Options struct {
	Logger  *logging.Logger
	Metrics *Metrics
	RunID   string // empty means a fresh UUID
	Workers int    // default for tasks that leave workers unset
}

// Option represents a functional option for Run and RunTask.
type Option func(*Options)

// WithLogger injects a logger. It takes precedence over Config.Log.
func WithLogger(l *logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics records stage timings into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithRunID fixes the run identifier attached to every log record.
func WithRunID(id string) Option {
	return func(o *Options) { o.RunID = id }
}

// WithWorkers sets the default worker count.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// DefaultOptions returns GOMAXPROCS workers and no logger or metrics.
func DefaultOptions() Options {
	return Options{Workers: runtime.GOMAXPROCS(0)}
}

func resolve(opts []Option) Options {
	cfg := DefaultOptions()
	var opt Option
	for _, opt = range opts {
		opt(&cfg)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}

	return cfg
}

// TaskReport is the outcome of one task of a Run.
type TaskReport struct {
	Index  int
	Name   string
	Result *Result
	Err    error
}

// Report is the outcome of Run.
type Report struct {
	RunID string
	Tasks []TaskReport
}

// Failed returns the number of failed tasks.
func (r *Report) Failed() int {
	n := 0
	var t TaskReport
	for _, t = range r.Tasks {
		if t.Err != nil {
			n++
		}
	}

	return n
}

// Run executes every task of cfg in order. A failing task is logged and
// recorded in the report; the remaining tasks still run. The returned error
// joins the task errors (each matching ErrTaskFailed), or is the context
// error when ctx ends the run early.
func Run(ctx context.Context, cfg *Config, opts ...Option) (*Report, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrBadConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := resolve(opts)

	// 1) Root logger.
	if o.Logger == nil {
		l, closer, err := logging.New(cfg.Log)
		if err != nil {
			return nil, err
		}
		defer closer.Close()
		o.Logger = l
	}
	o.Logger = o.Logger.WithRunID(o.RunID)

	// 2) Tasks.
	report := &Report{RunID: o.RunID}
	var (
		errs []error
		i    int
	)
	for i = range cfg.Tasks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		t := cfg.Tasks[i]
		name := t.Name
		if name == "" {
			name = fmt.Sprintf("task-%d", i+1)
		}
		o.Logger.Info("processing task", "index", i+1, "of", len(cfg.Tasks), "task", name)
		res, err := runTask(ctx, t, name, o)
		report.Tasks = append(report.Tasks, TaskReport{Index: i, Name: name, Result: res, Err: err})
		if err != nil {
			o.Logger.Error("task failed", "task", name, "error", err)
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrTaskFailed, name, err))
			continue
		}
		o.Logger.Info("finished task", "task", name, "output", res.Output)
	}

	// 3) Metrics textfile.
	if cfg.Metrics != "" {
		if err := o.Metrics.WriteToTextfile(cfg.Metrics); err != nil {
			errs = append(errs, fmt.Errorf("pipeline: metrics: %w", err))
		}
	}

	return report, errors.Join(errs...)
}

// RunTask executes one task.
func RunTask(ctx context.Context, t Task, opts ...Option) (*Result, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	o := resolve(opts)
	o.Logger = logging.OrDiscard(o.Logger).WithRunID(o.RunID)
	name := t.Name
	if name == "" {
		name = "task"
	}

	return runTask(ctx, t, name, o)
}

// runTask applies the task's own log section, then runs the stages.
func runTask(ctx context.Context, t Task, name string, o Options) (res *Result, err error) {
	log := o.Logger
	if t.Log != nil {
		var closer io.Closer
		if log, closer, err = logging.New(*t.Log); err != nil {
			return nil, err
		}
		defer closer.Close()
		log = log.WithRunID(o.RunID)
	}
	workers := t.Workers
	if workers == 0 {
		workers = o.Workers
	}

	r := &runner{
		task:    t,
		log:     log.WithTask(name),
		metrics: o.Metrics,
		workers: workers,
		seed:    t.Seed,
	}
	defer func() {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		o.Metrics.Tasks.WithLabelValues(status).Inc()
	}()

	return r.run(ctx)
}

// stage times fn and records it under name.
func (r *runner) stage(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	r.metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	r.log.LogStage(ctx, name, elapsed, err)
	if err != nil {
		return fmt.Errorf("pipeline: %s: %w", name, err)
	}

	return nil
}
