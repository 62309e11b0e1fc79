package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voyagekit/tripcache/logger"
	"github.com/voyagekit/tripcache/types"
)

type countingSweeper struct {
	swept chan struct{}
}

func (s *countingSweeper) SweepExpired() int {
	select {
	case s.swept <- struct{}{}:
	default:
	}
	return 1
}

func TestJanitor_Lifecycle(t *testing.T) {
	j := NewJanitor(logger.NewZapWrapper(zap.NewNop()), &countingSweeper{swept: make(chan struct{}, 1)}, "1m")

	require.NoError(t, j.Start())
	assert.ErrorIs(t, j.Start(), types.ErrAlreadyRunning)

	j.Stop()
	j.Stop()

	require.NoError(t, j.Start())
	j.Stop()
}

func TestJanitor_RunsSweeps(t *testing.T) {
	sweeper := &countingSweeper{swept: make(chan struct{}, 1)}
	j := NewJanitor(logger.NewZapWrapper(zap.NewNop()), sweeper, "100ms")

	require.NoError(t, j.Start())
	defer j.Stop()

	select {
	case <-sweeper.swept:
	case <-time.After(2 * time.Second):
		t.Fatal("no sweep within the scheduling window")
	}
}

func TestJanitor_RejectsInvalidInterval(t *testing.T) {
	j := NewJanitor(logger.NewZapWrapper(zap.NewNop()), &countingSweeper{swept: make(chan struct{}, 1)}, "not-a-duration")
	assert.Error(t, j.Start())
}
