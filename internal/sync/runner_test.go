package sync

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todo-overs/internal/model"
	"github.com/nhle/todo-overs/internal/source/habitica"
	"github.com/nhle/todo-overs/internal/store"
	"github.com/nhle/todo-overs/tests/testutil"
)

func TestRunOnce_RefreshesTagsOncePerUser(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "u1")
	h.seedUser(t, "u2")
	h.seedUser(t, "idle")
	h.fake.tags = []habitica.Tag{{ID: "t", Name: "tag"}}

	for _, id := range []string{"a", "b", "c"} {
		h.fake.addTask(id, false, time.Time{})
		testutil.SeedTask(t, h.store, model.TrackedTask{RemoteID: id, OwnerID: "u1"})
	}
	h.fake.addTask("d", false, time.Time{})
	testutil.SeedTask(t, h.store, model.TrackedTask{RemoteID: "d", OwnerID: "u2"})

	summary, err := h.runner.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Tasks)
	assert.Equal(t, 2, summary.TagRefreshes)
	assert.Equal(t, 4, summary.Outcomes[OutcomeUnchanged])
	assert.Equal(t, 2, h.fake.count("GET /tags"), "one refresh per owning user")
}

func TestRunOnce_FailureDoesNotStopCycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "u1")

	h.fake.addTask("broken", true, testNow)
	h.fake.failNext("GET /tasks/broken", http.StatusInternalServerError)
	testutil.SeedTask(t, h.store, model.TrackedTask{RemoteID: "broken", OwnerID: "u1", CreatedAt: testNow.Add(-3 * time.Hour)})

	testutil.SeedTask(t, h.store, model.TrackedTask{RemoteID: "vanished", OwnerID: "u1", CreatedAt: testNow.Add(-2 * time.Hour)})

	h.fake.addTask("done", true, testNow.Add(-time.Hour))
	done := testutil.SeedTask(t, h.store, model.TrackedTask{RemoteID: "done", OwnerID: "u1", CreatedAt: testNow.Add(-time.Hour)})

	h.fake.failNext("GET /tags", http.StatusBadGateway)

	summary, err := h.runner.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TagFailures)
	assert.Equal(t, 1, summary.Outcomes[OutcomeFailed])
	assert.Equal(t, 1, summary.Outcomes[OutcomeDeleted])
	assert.Equal(t, 1, summary.Outcomes[OutcomeRecreated])

	remaining, err := h.store.GetTasks(ctx, store.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 2)

	got, err := h.store.GetTaskByID(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-1", got.RemoteID)
}

func TestRunOnce_RemoteTagDeletionReachesRecreation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "u1")
	_, err := h.store.ReconcileTags(ctx, "u1", []model.Tag{{ID: "keep", Name: "kept"}, {ID: "gone", Name: "old"}})
	require.NoError(t, err)

	h.fake.tags = []habitica.Tag{{ID: "keep", Name: "kept"}}
	h.fake.addTask("r1", true, testNow.Add(-time.Minute))
	task := testutil.SeedTask(t, h.store, model.TrackedTask{
		RemoteID: "r1", OwnerID: "u1", TagIDs: []string{"keep", "gone"},
	})

	summary, err := h.runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[OutcomeRecreated])

	require.Len(t, h.fake.created, 1)
	assert.Equal(t, []interface{}{"keep"}, h.fake.created[0]["tags"])

	got, err := h.store.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, got.TagIDs)
}

func TestRunOnce_SecondCycleDoesNotRecreateAgain(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "u1")
	h.fake.addTask("r1", true, testNow.AddDate(0, 0, -2))
	testutil.SeedTask(t, h.store, model.TrackedTask{RemoteID: "r1", OwnerID: "u1", Recurrence: model.WeekRecurrence{Weekday: time.Sunday}})

	first, err := h.runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Outcomes[OutcomeRecreated])

	// The fresh instance is not completed, so nothing happens.
	second, err := h.runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Outcomes[OutcomeUnchanged])
	assert.Len(t, h.fake.created, 1)
	assert.Equal(t, 1, h.fake.count("GET /tasks/r1"))
	assert.Equal(t, 1, h.fake.count("GET /tasks/new-1"))
}

func TestRunOnce_StopsOnCancelledContext(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "u1")
	testutil.SeedTask(t, h.store, model.TrackedTask{RemoteID: "r1", OwnerID: "u1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.runner.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.fake.count("GET /tasks/r1"))
}

func TestRunner_Name(t *testing.T) {
	assert.Equal(t, "sync", (&Runner{}).Name())
}
