package frame

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"cellquant/internal/logger"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnreadable = errors.New("unreadable tiff")

func jobs(ids ...string) []Job {
	out := make([]Job, len(ids))
	for i, id := range ids {
		out[i] = Job{ID: id, Depth: i + 1}
	}
	return out
}

// sceneLoader serves scene masks; "bad" fails to load and "slow" takes a
// while so later frames finish first.
func sceneLoader(opened *int64) LoadFunc {
	return func(ctx context.Context, job Job) (Masks, error) {
		switch job.ID {
		case "bad":
			return Masks{}, &InputError{FrameID: job.ID, Reason: "load", Err: errUnreadable}
		case "slow":
			time.Sleep(30 * time.Millisecond)
		}
		if opened != nil {
			atomic.AddInt64(opened, 1)
		}
		return sceneMasks("", 0), nil
	}
}

func newRunner(t *testing.T, sink Sink, workers int) *Runner {
	return &Runner{
		Pipeline: newPipeline(t, testOptions()),
		Load:     sceneLoader(nil),
		Sink:     sink,
		Workers:  workers,
		Log:      logger.Nop(),
	}
}

func TestRunEmitsInJobOrder(t *testing.T) {
	var c Collector
	r := newRunner(t, &c, 4)

	sum, err := r.Run(context.Background(), jobs("slow", "a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Processed)
	assert.Zero(t, sum.Failed)
	require.Len(t, c.Records, 4)

	var got []string
	for _, rec := range c.Records {
		got = append(got, rec.FrameID)
	}
	assert.Equal(t, []string{"slow", "a", "b", "c"}, got)
	assert.Equal(t, 1, c.Records[0].Depth)
	assert.Equal(t, 4, c.Records[3].Depth)
}

func TestRunCollectsFrameErrors(t *testing.T) {
	var c Collector
	r := newRunner(t, &c, 2)

	sum, err := r.Run(context.Background(), jobs("a", "bad", "b"))
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, 1, sum.Failed)
	assert.False(t, sum.AllFailed())
	require.Len(t, sum.Errors, 1)

	fe := sum.Errors[0]
	assert.Equal(t, "bad", fe.FrameID)
	assert.Equal(t, 2, fe.Depth)
	assert.ErrorIs(t, fe, errUnreadable)
	var ie *InputError
	assert.ErrorAs(t, fe, &ie)

	assert.Len(t, c.Records, 2)
}

func TestRunAllFailed(t *testing.T) {
	r := newRunner(t, nil, 2)
	sum, err := r.Run(context.Background(), jobs("bad", "bad"))
	require.NoError(t, err)
	assert.True(t, sum.AllFailed())
}

func TestRunRecordsMatchSequential(t *testing.T) {
	var parallel Collector
	_, err := newRunner(t, &parallel, 3).Run(context.Background(), jobs("a", "b", "c", "d", "e"))
	require.NoError(t, err)

	var serial Collector
	_, err = newRunner(t, &serial, 1).Run(context.Background(), jobs("a", "b", "c", "d", "e"))
	require.NoError(t, err)

	if diff := cmp.Diff(serial.Records, parallel.Records); diff != "" {
		t.Errorf("parallel run differs (-serial +parallel):\n%s", diff)
	}
}

func TestRunStopsOnSinkError(t *testing.T) {
	errFull := errors.New("disk full")
	sink := SinkFunc(func(Record) error { return errFull })

	_, err := newRunner(t, sink, 2).Run(context.Background(), jobs("a", "b", "c"))
	assert.ErrorIs(t, err, errFull)
}

func TestRunCancelled(t *testing.T) {
	var opened int64
	r := newRunner(t, nil, 2)
	r.Load = sceneLoader(&opened)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := r.Run(ctx, jobs("a", "b", "c"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Processed)
	assert.Zero(t, sum.Failed)
	assert.Zero(t, atomic.LoadInt64(&opened))
}

func TestRunInspectSeesAnalysis(t *testing.T) {
	var seen int64
	r := newRunner(t, nil, 2)
	r.Inspect = func(job Job, m Masks, a *Analysis) error {
		atomic.AddInt64(&seen, 1)
		if a.Record.NeuronCount != 1 || m.Nuclear.Empty() {
			return errors.New("unexpected analysis")
		}
		return errors.New("logged, not fatal")
	}

	sum, err := r.Run(context.Background(), jobs("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Processed)
	assert.EqualValues(t, 2, atomic.LoadInt64(&seen))
}

func TestRunNeedsPipelineAndLoader(t *testing.T) {
	_, err := (&Runner{}).Run(context.Background(), jobs("a"))
	assert.Error(t, err)
}

func TestMultiSink(t *testing.T) {
	var a, b Collector
	s := MultiSink(&a, &b)
	require.NoError(t, s.Emit(Record{FrameID: "x"}))
	assert.Len(t, a.Records, 1)
	assert.Len(t, b.Records, 1)
}
