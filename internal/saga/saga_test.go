package saga

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/portalcadastro/cadastro-api/internal/infra/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSaga() *Saga {
	return New(observability.NewMetrics(), zap.NewNop())
}

func TestExecuteCommitsAllStages(t *testing.T) {
	var order []string

	err := newTestSaga().Execute(context.Background(),
		Single("first", func(ctx context.Context) (CompensateFunc, error) {
			order = append(order, "first")
			return nil, nil
		}),
		Single("second", func(ctx context.Context) (CompensateFunc, error) {
			order = append(order, "second")
			return nil, nil
		}),
	)

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestCompensationRunsInReverseOrder(t *testing.T) {
	var undone []string
	boom := errors.New("boom")

	push := func(name string) func(ctx context.Context) (CompensateFunc, error) {
		return func(ctx context.Context) (CompensateFunc, error) {
			return func(ctx context.Context) error {
				undone = append(undone, name)
				return nil
			}, nil
		}
	}

	err := newTestSaga().Execute(context.Background(),
		Single("a", push("a")),
		Single("b", push("b")),
		Single("c", func(ctx context.Context) (CompensateFunc, error) {
			return nil, boom
		}),
	)

	assert.Equal(t, boom, err)
	assert.Equal(t, []string{"b", "a"}, undone)
}

func TestFirstStepFailureCompensatesNothing(t *testing.T) {
	undone := false
	boom := errors.New("boom")

	err := newTestSaga().Execute(context.Background(),
		Single("a", func(ctx context.Context) (CompensateFunc, error) {
			return func(ctx context.Context) error {
				undone = true
				return nil
			}, boom
		}),
	)

	assert.Equal(t, boom, err)
	assert.False(t, undone, "a failed step must not push its own undo")
}

func TestCompensationErrorNeverMasksStepError(t *testing.T) {
	boom := errors.New("step failed")

	err := newTestSaga().Execute(context.Background(),
		Single("a", func(ctx context.Context) (CompensateFunc, error) {
			return func(ctx context.Context) error {
				return errors.New("undo failed")
			}, nil
		}),
		Single("b", func(ctx context.Context) (CompensateFunc, error) {
			return nil, boom
		}),
	)

	assert.Equal(t, boom, err)
}

func TestParallelSiblingThatCommittedIsCompensated(t *testing.T) {
	var mu sync.Mutex
	var undone []string
	boom := errors.New("sibling failed")

	err := newTestSaga().Execute(context.Background(),
		Parallel("pair",
			Step{Label: "ok", Do: func(ctx context.Context) (CompensateFunc, error) {
				return func(ctx context.Context) error {
					mu.Lock()
					undone = append(undone, "ok")
					mu.Unlock()
					return nil
				}, nil
			}},
			Step{Label: "bad", Do: func(ctx context.Context) (CompensateFunc, error) {
				return nil, boom
			}},
		),
	)

	assert.Equal(t, boom, err)
	assert.Equal(t, []string{"ok"}, undone)
}

func TestCompensateRunsWithCancelledContext(t *testing.T) {
	undone := false
	boom := errors.New("boom")

	ctx, cancel := context.WithCancel(context.Background())

	err := newTestSaga().Execute(ctx,
		Single("a", func(ctx context.Context) (CompensateFunc, error) {
			return func(undoCtx context.Context) error {
				undone = true
				assert.NoError(t, undoCtx.Err(), "undo context must survive parent cancellation")
				return nil
			}, nil
		}),
		Single("b", func(ctx context.Context) (CompensateFunc, error) {
			cancel()
			return nil, boom
		}),
	)

	assert.Equal(t, boom, err)
	assert.True(t, undone)
}

func TestStepWithoutUndoIsSkippedDuringCompensation(t *testing.T) {
	var undone []string
	boom := errors.New("boom")

	err := newTestSaga().Execute(context.Background(),
		Single("stored", func(ctx context.Context) (CompensateFunc, error) {
			return func(ctx context.Context) error {
				undone = append(undone, "stored")
				return nil
			}, nil
		}),
		Single("local", func(ctx context.Context) (CompensateFunc, error) {
			return nil, nil
		}),
		Single("bad", func(ctx context.Context) (CompensateFunc, error) {
			return nil, boom
		}),
	)

	assert.Equal(t, boom, err)
	assert.Equal(t, []string{"stored"}, undone)
}
