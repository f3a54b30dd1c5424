package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshare/internal/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "bookshare.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestQueuePath(t *testing.T) {
	assert.Equal(t, "data/bookshare-tasks.db", QueuePath("data/bookshare.db"))
	assert.Equal(t, "/var/lib/app-tasks.sqlite", QueuePath("/var/lib/app.sqlite"))
	assert.Equal(t, "bookshare-tasks", QueuePath("bookshare"))
}

func TestNewClient_CreatesQueueDatabase(t *testing.T) {
	dir := t.TempDir()
	client, err := NewClient(filepath.Join(dir, "bookshare.db"), DefaultConfig())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "bookshare-tasks.db"))
	assert.NoError(t, err)
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestClient_StopBeforeStart(t *testing.T) {
	client := newTestClient(t)
	assert.True(t, client.Stop(context.Background()))
}

func TestClient_StartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)
	// second start is ignored
	client.Start(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx))
}

type echoTask struct {
	Value string `json:"value"`
}

func (echoTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "echo",
		MaxAttempts: 1,
		Backoff:     time.Second,
		Timeout:     5 * time.Second,
	}
}

func TestClient_EnqueueRunsTask(t *testing.T) {
	client := newTestClient(t)

	executed := make(chan string, 1)
	client.Register(backlite.NewQueue(func(ctx context.Context, task echoTask) error {
		executed <- task.Value
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)

	ids, err := client.Enqueue(ctx, echoTask{Value: "dune"})
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	select {
	case val := <-executed:
		assert.Equal(t, "dune", val)
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestQueueConfigs(t *testing.T) {
	deliver := DeliverNotificationTask{}.Config()
	assert.Equal(t, "deliver_notification", deliver.Name)
	assert.Equal(t, 5, deliver.MaxAttempts)

	reminders := BorrowRemindersTask{}.Config()
	assert.Equal(t, "borrow_reminders", reminders.Name)
	assert.Equal(t, 10*time.Minute, reminders.Timeout)
	assert.NotNil(t, reminders.Retention)

	cleanup := CleanupTask{}.Config()
	assert.Equal(t, "cleanup", cleanup.Name)
	assert.Equal(t, 3, cleanup.MaxAttempts)
}

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.Tasks{Workers: 4, CleanupInterval: 10 * time.Minute})

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 10*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, DefaultConfig().ReleaseAfter, cfg.ReleaseAfter)

	assert.Equal(t, DefaultConfig(), FromAppConfig(config.Tasks{}))
}
