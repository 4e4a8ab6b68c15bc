package updates

import (
	"context"
	"testing"
	"time"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestDispatcher(store *memoryUpdates, prefs map[string]*bool, queueSize int) (*Dispatcher, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)
	engine := NewEngine(store, memoryPreferences{prefs: prefs}, log, Options{})
	return NewDispatcher(engine, log, queueSize, 2), logs
}

func TestDispatcherQueuesUntilDrained(t *testing.T) {
	store := newMemoryUpdates()
	d, _ := newTestDispatcher(store, optedIn("u", "f1"), 8)

	pin := eventPin()
	pin.Creator.FollowerIDs = []string{"f1"}
	d.PinCreated(pin)
	d.BookmarkCreated(pin, models.User{ID: "f1"})

	assert.Equal(t, 2, d.Len())
	assert.Empty(t, store.all(), "nothing runs before a worker or Drain picks the job up")

	ran := d.Drain(context.Background())

	assert.Equal(t, 2, ran)
	assert.Zero(t, d.Len())
	assert.Len(t, store.all(), 3)
	assert.Equal(t, DispatcherStats{Enqueued: 2, Completed: 2}, d.Stats())
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	store := newMemoryUpdates()
	d, logs := newTestDispatcher(store, optedIn("a"), 1)

	d.System([]string{"a"}, "one", "", "")
	d.System([]string{"a"}, "two", "", "")

	assert.Equal(t, 1, d.Len())
	assert.EqualValues(t, 1, d.Stats().Dropped)

	dropped := logs.FilterMessage("fan-out job dropped").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, zap.WarnLevel, dropped[0].Level)
	assert.Equal(t, ErrQueueFull.Error(), dropped[0].ContextMap()["error"])

	d.Drain(context.Background())
	require.Len(t, store.all(), 1)
	assert.Equal(t, "one", store.all()[0].Payload.Contents().Title)
}

func TestDispatcherWorkersRunJobs(t *testing.T) {
	store := newMemoryUpdates()
	d, _ := newTestDispatcher(store, optedIn("r"), 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	d.FriendRequest(models.FriendRequest{ID: "fr", RequesterID: "q", RecipientID: "r"}, models.User{ID: "q"})

	require.Eventually(t, func() bool {
		return len(store.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"r"}, store.recipients())
}

func TestDispatcherRejectsAfterStop(t *testing.T) {
	store := newMemoryUpdates()
	d, logs := newTestDispatcher(store, optedIn("a"), 8)

	d.Start(context.Background())
	d.Stop()
	d.Stop()

	d.System([]string{"a"}, "late", "", "")

	assert.Zero(t, d.Len())
	assert.EqualValues(t, 1, d.Stats().Dropped)
	assert.Equal(t, 1, logs.FilterField(zap.Error(ErrDispatcherStopped)).Len())
}

func TestDispatcherRecoversPanickingJob(t *testing.T) {
	store := newMemoryUpdates()
	d, logs := newTestDispatcher(store, optedIn("a"), 8)

	require.NoError(t, d.submit(models.UpdateTypeSystem, func(context.Context) Outcome {
		panic("boom")
	}))
	d.System([]string{"a"}, "after", "", "")

	require.NotPanics(t, func() { d.Drain(context.Background()) })
	assert.Equal(t, 1, logs.FilterMessage("fan-out job panicked").Len())
	assert.Len(t, store.all(), 1)
}
