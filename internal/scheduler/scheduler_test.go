package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"price_watcher/internal/domain"
	"price_watcher/internal/service"
)

type fakeRunner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRunner) Run(ctx context.Context) (*domain.RunReport, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		panic("run without deadline")
	}
	return &domain.RunReport{}, f.err
}

func TestScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, 20*time.Millisecond, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	err := s.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, runner.calls.Load(), int32(2))
}

func TestScheduler_ToleratesRunInProgress(t *testing.T) {
	runner := &fakeRunner{err: service.ErrRunInProgress}
	s := NewScheduler(runner, time.Hour, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), runner.calls.Load())
}
