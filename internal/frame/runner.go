package frame

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cellquant/internal/logger"

	"golang.org/x/sync/errgroup"
)

const runnerComponent = "FrameRunner"

// Job names one frame of a batch. Path is opaque to the runner and only
// passed through to the LoadFunc.
type Job struct {
	ID    string
	Depth int
	Path  string
}

// LoadFunc produces the masks of one job. The runner closes them once
// the frame is analyzed.
type LoadFunc func(ctx context.Context, job Job) (Masks, error)

// InspectFunc sees every successful analysis while its masks are still
// open, e.g. to render overlays. Its errors are logged, never fatal.
type InspectFunc func(job Job, m Masks, a *Analysis) error

// Sink receives records in job order from a single goroutine.
type Sink interface {
	Emit(Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Record) error

func (f SinkFunc) Emit(r Record) error { return f(r) }

// MultiSink emits to each sink in turn and stops at the first error.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(r Record) error {
		for _, s := range sinks {
			if err := s.Emit(r); err != nil {
				return err
			}
		}
		return nil
	})
}

// Collector is a Sink that keeps every record in memory.
type Collector struct {
	mu      sync.Mutex
	Records []Record
}

func (c *Collector) Emit(r Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Records = append(c.Records, r)
	return nil
}

// Summary is the outcome of a batch.
type Summary struct {
	Processed int
	Failed    int
	Errors    []*FrameError
	Elapsed   time.Duration
}

// AllFailed reports whether the batch had frames and none succeeded.
func (s Summary) AllFailed() bool {
	return s.Failed > 0 && s.Processed == 0
}

// Runner analyzes frames in parallel, one frame per worker. A failed
// frame is recorded in the Summary and never stops the others.
type Runner struct {
	Pipeline *Pipeline
	Load     LoadFunc
	Sink     Sink
	Inspect  InspectFunc
	Workers  int
	Log      logger.Logger
}

type outcome struct {
	record Record
	err    *FrameError
	// skipped is set for jobs never started because the run was cancelled.
	skipped bool
}

// Run processes jobs and emits their records to the Sink in job order.
// It returns an error only when the context is cancelled or the Sink
// fails; per-frame failures are in the Summary.
func (r *Runner) Run(ctx context.Context, jobs []Job) (Summary, error) {
	if r.Pipeline == nil || r.Load == nil {
		return Summary{}, errors.New("runner needs a pipeline and a loader")
	}
	log := r.Log
	if log == nil {
		log = logger.Nop()
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	start := time.Now()

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := make([]chan outcome, len(jobs))
	for i := range slots {
		slots[i] = make(chan outcome, 1)
	}

	var sum Summary
	drained := make(chan error, 1)
	go func() {
		drained <- r.drain(slots, &sum, cancel, log)
	}()

	log.Info(runnerComponent, "batch started", map[string]interface{}{
		"frames": len(jobs), "workers": workers,
	})

	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range jobs {
		if ctx.Err() != nil {
			slots[i] <- outcome{skipped: true}
			continue
		}
		i, job := i, job
		g.Go(func() error {
			slots[i] <- r.process(ctx, job, log)
			return nil
		})
	}
	_ = g.Wait()
	sinkErr := <-drained

	sum.Elapsed = time.Since(start)
	log.Info(runnerComponent, "batch finished", map[string]interface{}{
		"processed": sum.Processed, "failed": sum.Failed, "elapsed": sum.Elapsed,
	})

	if sinkErr != nil {
		return sum, sinkErr
	}
	if err := parent.Err(); err != nil {
		return sum, fmt.Errorf("batch interrupted: %w", err)
	}
	return sum, nil
}

// drain is the single writer: it waits on each slot in job order.
func (r *Runner) drain(slots []chan outcome, sum *Summary, cancel context.CancelFunc, log logger.Logger) error {
	var sinkErr error
	for _, slot := range slots {
		o := <-slot
		switch {
		case o.skipped:
		case o.err != nil:
			sum.Failed++
			sum.Errors = append(sum.Errors, o.err)
		default:
			sum.Processed++
			if sinkErr != nil || r.Sink == nil {
				continue
			}
			if err := r.Sink.Emit(o.record.Clone()); err != nil {
				sinkErr = fmt.Errorf("emit frame %s: %w", o.record.FrameID, err)
				log.Error(runnerComponent, sinkErr, nil)
				cancel()
			}
		}
	}
	return sinkErr
}

func (r *Runner) process(ctx context.Context, job Job, log logger.Logger) outcome {
	if ctx.Err() != nil {
		return outcome{skipped: true}
	}
	fail := func(err error) outcome {
		fe := &FrameError{FrameID: job.ID, Depth: job.Depth, Err: err}
		log.Error(runnerComponent, fe, map[string]interface{}{"frame": job.ID})
		return outcome{err: fe}
	}

	masks, err := r.Load(ctx, job)
	if err != nil {
		return fail(err)
	}
	defer closeMasks(&masks)
	if masks.ID == "" {
		masks.ID = job.ID
	}
	if masks.Depth == 0 {
		masks.Depth = job.Depth
	}

	a, err := r.Pipeline.Analyze(masks)
	if err != nil {
		return fail(err)
	}

	if r.Inspect != nil {
		if err := r.Inspect(job, masks, a); err != nil {
			log.Warning(runnerComponent, "inspect failed", map[string]interface{}{
				"frame": job.ID, "error": err.Error(),
			})
		}
	}

	log.Debug(runnerComponent, "frame done", map[string]interface{}{
		"frame": job.ID, "neurons": a.Record.NeuronCount, "astrocytes": a.Record.AstrocyteCount,
	})
	return outcome{record: a.Record}
}

func closeMasks(m *Masks) {
	m.Nuclear.Close()
	m.Cross.Close()
	m.SynapseLow.Close()
	m.SynapseHigh.Close()
}
