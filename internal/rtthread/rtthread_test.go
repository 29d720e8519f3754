package rtthread

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/go-audioclient/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newSpawner() *OSSpawner {
	return NewOSSpawner(WithLogger(logger.NewDiscardLogger()))
}

func TestTruncateName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "timer", TruncateName("timer"))
	assert.Equal(t, "audio_client_ti", TruncateName("audio_client_timer"))
	assert.Len(t, TruncateName("audio_client_timer"), MaxNameLen)
}

func TestSpawnRunsBodyOnce(t *testing.T) {
	t.Parallel()

	s := newSpawner()
	var runs atomic.Int32
	th, err := s.Spawn(Options{Name: "audio_client_timer", Priority: PriorityNormal}, func() {
		runs.Add(1)
	})
	require.NoError(t, err)
	th.Wait()

	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, "audio_client_ti", th.Name())
	assert.Equal(t, PriorityNormal, th.Priority())
	assert.Equal(t, uint64(1), s.Spawned())

	select {
	case <-th.Done():
	default:
		t.Fatal("done not closed after body returned")
	}
}

func TestSpawnFallsBackWithoutRequirement(t *testing.T) {
	t.Parallel()

	// without CAP_SYS_NICE elevation fails; the body must still run
	s := newSpawner()
	ran := make(chan struct{})
	th, err := s.Spawn(Options{Name: "rt", Priority: PriorityRealtime}, func() { close(ran) })
	require.NoError(t, err)
	<-ran
	th.Wait()
	assert.Contains(t, []Priority{PriorityRealtime, PriorityHigh, PriorityNormal}, th.Priority())
}

func TestSpawnRejectsNilBody(t *testing.T) {
	t.Parallel()

	_, err := newSpawner().Spawn(Options{Name: "x"}, nil)
	assert.Error(t, err)
}

func TestRequireRealtimeEitherRunsOrFails(t *testing.T) {
	t.Parallel()

	s := newSpawner()
	var runs atomic.Int32
	th, err := s.Spawn(Options{Name: "rt", Priority: PriorityRealtime, RequireRealtime: true}, func() {
		runs.Add(1)
	})
	if err != nil {
		assert.ErrorIs(t, err, ErrElevation)
		assert.Nil(t, th)
		assert.Zero(t, runs.Load())
		return
	}
	th.Wait()
	assert.Equal(t, PriorityRealtime, th.Priority())
	assert.Equal(t, int32(1), runs.Load())
}
