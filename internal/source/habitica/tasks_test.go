package habitica

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(t time.Time) int64 { return t.UnixMilli() }

func TestFetchCompletedTodos_FiltersToDay(t *testing.T) {
	day := time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "completedTodos", r.URL.Query().Get("type"))
		writeData(t, w, http.StatusOK, []map[string]interface{}{
			{"id": "a", "type": "todo", "text": "today", "completed": true, "dateCompleted": "2024-03-10T09:00:00.000Z"},
			{"id": "b", "type": "todo", "text": "yesterday", "completed": true, "dateCompleted": "2024-03-09T23:59:59.000Z"},
			{"id": "c", "type": "todo", "text": "no date", "completed": true},
		})
	})

	todos, err := client.FetchCompletedTodos(context.Background(), testCred, day)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "today", todos[0].Text)
}

func TestFetchCompletedTodos_UsesDayLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	// 23:30 UTC on the 9th is 00:30 on the 10th in Berlin.
	day := time.Date(2024, 3, 10, 12, 0, 0, 0, berlin)

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeData(t, w, http.StatusOK, []map[string]interface{}{
			{"id": "a", "type": "todo", "text": "late", "completed": true, "dateCompleted": "2024-03-09T23:30:00.000Z"},
		})
	})

	todos, err := client.FetchCompletedTodos(context.Background(), testCred, day)
	require.NoError(t, err)
	assert.Len(t, todos, 1)
}

func TestFetchHabitsOn(t *testing.T) {
	day := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "habits", r.URL.Query().Get("type"))
		writeData(t, w, http.StatusOK, []map[string]interface{}{
			{
				"id": "h1", "type": "habit", "text": "Stretch", "frequency": "daily",
				"counterUp": 3, "counterDown": 1,
				"history": []map[string]interface{}{
					{"date": ms(day.Add(-2 * time.Hour)), "value": 1},
					{"date": ms(day.Add(-1 * time.Hour)), "value": 2},
					{"date": ms(day.AddDate(0, 0, -1)), "value": 0.5},
				},
			},
			{
				"id": "h2", "type": "habit", "text": "Untouched", "frequency": "weekly",
				"history": []map[string]interface{}{{"date": ms(day.AddDate(0, 0, -3))}},
			},
		})
	})

	habits, err := client.FetchHabitsOn(context.Background(), testCred, day)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, "Stretch", habits[0].Text)
	assert.Len(t, habits[0].History, 2)
	assert.Equal(t, 3, habits[0].CounterUp)
}

func TestFetchDailiesCompletedOn(t *testing.T) {
	day := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dailys", r.URL.Query().Get("type"))
		done := map[string]interface{}{"date": ms(day.Add(-time.Hour)), "isDue": true, "completed": true}
		writeData(t, w, http.StatusOK, []map[string]interface{}{
			{"id": "d1", "type": "daily", "text": "Read", "history": []interface{}{done, done}},
			{"id": "d2", "type": "daily", "text": "Read", "history": []interface{}{done}},
			{"id": "d3", "type": "daily", "text": "Not due", "history": []interface{}{
				map[string]interface{}{"date": ms(day.Add(-time.Hour)), "isDue": false, "completed": true},
			}},
			{"id": "d4", "type": "daily", "text": "Missed", "history": []interface{}{
				map[string]interface{}{"date": ms(day.Add(-time.Hour)), "isDue": true, "completed": false},
			}},
		})
	})

	dailies, err := client.FetchDailiesCompletedOn(context.Background(), testCred, day)
	require.NoError(t, err)
	require.Len(t, dailies, 1)
	assert.Equal(t, "d1", dailies[0].ID)
}

func TestEpochMillis_AcceptsLegacyForms(t *testing.T) {
	want := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	for _, raw := range []string{
		`1710057600000`,
		`"1710057600000"`,
		`"2024-03-10T08:00:00.000Z"`,
	} {
		var e EpochMillis
		require.NoError(t, e.UnmarshalJSON([]byte(raw)), raw)
		assert.True(t, want.Equal(e.Time), raw)
	}

	var e EpochMillis
	assert.Error(t, e.UnmarshalJSON([]byte(`"soon"`)))
}
