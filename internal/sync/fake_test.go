package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/todo-overs/internal/backoff"
	"github.com/nhle/todo-overs/internal/credential"
	"github.com/nhle/todo-overs/internal/model"
	"github.com/nhle/todo-overs/internal/source/habitica"
	"github.com/nhle/todo-overs/internal/store"
	"github.com/nhle/todo-overs/tests/testutil"
)

// fakeHabitica is an in-memory Habitica that can be scripted to fail.
type fakeHabitica struct {
	t  *testing.T
	mu gosync.Mutex

	tasks map[string]map[string]interface{}
	tags  []habitica.Tag

	// fail maps "METHOD /path" to status codes returned before serving.
	fail map[string][]int

	calls   []string
	created []map[string]interface{}
	nextID  int
}

func newFakeHabitica(t *testing.T) *fakeHabitica {
	return &fakeHabitica{
		t:     t,
		tasks: make(map[string]map[string]interface{}),
		fail:  make(map[string][]int),
	}
}

func (f *fakeHabitica) addTask(id string, completed bool, completedAt time.Time) {
	task := map[string]interface{}{"id": id, "type": "todo", "text": id, "completed": completed}
	if !completedAt.IsZero() {
		task["dateCompleted"] = completedAt.UTC().Format(time.RFC3339Nano)
	}
	f.tasks[id] = task
}

func (f *fakeHabitica) failNext(key string, codes ...int) {
	f.fail[key] = append(f.fail[key], codes...)
}

func (f *fakeHabitica) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

func (f *fakeHabitica) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	f.calls = append(f.calls, key)

	if codes := f.fail[key]; len(codes) > 0 {
		f.fail[key] = codes[1:]
		w.WriteHeader(codes[0])
		_, _ = w.Write([]byte(`{"success":false}`))
		return
	}

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/tasks/"):
		task, ok := f.tasks[strings.TrimPrefix(r.URL.Path, "/tasks/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"NotFound"}`))
			return
		}
		f.write(w, http.StatusOK, task)

	case r.Method == http.MethodGet && r.URL.Path == "/tags":
		f.write(w, http.StatusOK, f.tags)

	case r.Method == http.MethodPost && r.URL.Path == "/tasks/user":
		var body map[string]interface{}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.created = append(f.created, body)
		f.nextID++
		id := fmt.Sprintf("new-%d", f.nextID)
		task := map[string]interface{}{"id": id, "type": "todo", "text": body["text"], "completed": false}
		f.tasks[id] = task
		f.write(w, http.StatusCreated, task)

	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeHabitica) write(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(f.t, json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data}))
}

// recordingSleeper returns instantly and remembers the requested delays.
type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

type harness struct {
	store   store.Store
	fake    *fakeHabitica
	sleeper *recordingSleeper
	cipher  *credential.Cipher
	orch    *Orchestrator
	runner  *Runner
}

var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) // a Sunday

func newHarness(t *testing.T) *harness {
	t.Helper()

	fake := newFakeHabitica(t)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cipher, err := credential.NewCipher(make([]byte, 32))
	require.NoError(t, err)

	s := testutil.NewTestStore(t)
	sleeper := &recordingSleeper{}
	clock := func() time.Time { return testNow }

	client := habitica.NewClient(srv.URL, cipher, habitica.WithClock(clock))
	orch := NewOrchestrator(s, client,
		WithPolicy(backoff.DefaultPolicy()),
		WithSleeper(sleeper.sleep),
		WithClock(clock),
		WithLocation(time.UTC),
	)

	return &harness{
		store:   s,
		fake:    fake,
		sleeper: sleeper,
		cipher:  cipher,
		orch:    orch,
		runner:  NewRunner(s, orch, nil),
	}
}

func (h *harness) seedUser(t *testing.T, id string) model.User {
	t.Helper()
	token, err := h.cipher.Encrypt("api-key-" + id)
	require.NoError(t, err)
	return testutil.SeedUser(t, h.store, id, token)
}
