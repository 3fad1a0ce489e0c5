package bridge

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PlainCaller(t *testing.T) {
	t.Parallel()

	got, err := Run(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestRun_MarksContextActive(t *testing.T) {
	t.Parallel()

	assert.False(t, Active(context.Background()))

	_, err := Run(context.Background(), func(ctx context.Context) (struct{}, error) {
		assert.True(t, Active(ctx), "work must observe a bridge-owned context")
		return struct{}{}, nil
	})
	require.NoError(t, err)
}

func TestRun_NestedMatchesPlain(t *testing.T) {
	t.Parallel()

	plain, plainErr := Run(context.Background(), func(ctx context.Context) (string, error) {
		return "result", nil
	})

	nested, nestedErr := Run(context.Background(), func(ctx context.Context) (string, error) {
		// Re-entrant: this inner Run dispatches to a worker goroutine.
		return Run(ctx, func(ctx context.Context) (string, error) {
			assert.True(t, Active(ctx))
			return "result", nil
		})
	})

	assert.Equal(t, plain, nested)
	assert.Equal(t, plainErr, nestedErr)
}

func TestRun_ErrorPropagates(t *testing.T) {
	t.Parallel()

	wantErr := fmt.Errorf("upstream unavailable")

	_, err := Run(context.Background(), func(ctx context.Context) (int, error) {
		return Run(ctx, func(ctx context.Context) (int, error) {
			return 0, wantErr
		})
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestRun_PanicPropagatesUnchanged(t *testing.T) {
	t.Parallel()

	defer func() {
		r := recover()
		require.NotNil(t, r, "worker panic must re-raise on the caller")
		assert.Equal(t, "worker exploded", r)
	}()

	_, _ = Run(context.Background(), func(ctx context.Context) (int, error) {
		_, _ = Run(ctx, func(ctx context.Context) (int, error) {
			panic("worker exploded")
		})
		t.Fatal("unreachable: inner Run must panic")
		return 0, nil
	})
}

func TestRun_ExactlyOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64

	_, err := Run(context.Background(), func(ctx context.Context) (struct{}, error) {
		return Run(ctx, func(ctx context.Context) (struct{}, error) {
			calls.Add(1)
			return struct{}{}, nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestRun_NestedWorkSurvivesCallerCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	got, err := Run(ctx, func(ctx context.Context) (string, error) {
		cancel()
		return Run(ctx, func(ctx context.Context) (string, error) {
			// The worker context is detached from the canceled caller.
			assert.NoError(t, ctx.Err())
			return "done", nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
}
