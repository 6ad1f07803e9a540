package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/saulo-duarte/chronos-prep/internal/client"
	"github.com/saulo-duarte/chronos-prep/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const setJSON = `{
	"id": "set-1",
	"kind": "practice",
	"title": "DSA (English)",
	"generating": false,
	"topics": [{
		"id": "topic-1",
		"name": "DSA",
		"completed": false,
		"questions": [{"prompt": "p", "options": ["a","b","c","d"], "answer": "b"}],
		"progress": {"answers": [1], "remaining_sec": 42, "locked": [], "flags": [0]}
	}],
	"results": []
}`

func newServer(t *testing.T) (*httptest.Server, *[]map[string]interface{}) {
	t.Helper()
	var saved []map[string]interface{}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer token-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/assessments/set-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(setJSON))
	})
	r.Get("/assessments/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"assessment set not found"}`, http.StatusNotFound)
	})
	r.Patch("/assessments/set-1/progress", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		saved = append(saved, body)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Patch("/assessments/done/progress", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"topic already completed"}`, http.StatusConflict)
	})
	r.Post("/assessments/set-1/submit", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"score":100,"correct":1,"total":1,"duration_sec":12}`))
	})
	r.Post("/assessments/broken/submit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	r.Post("/assessments/set-1/retake", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &saved
}

func TestHTTPStore(t *testing.T) {
	srv, saved := newServer(t)
	store := client.NewHTTPStore(srv.URL+"/", "token-1")
	ctx := context.Background()

	t.Run("FetchSet", func(t *testing.T) {
		set, err := store.FetchSet(ctx, "set-1")
		require.NoError(t, err)
		require.Len(t, set.Topics, 1)
		assert.Equal(t, "practice", set.Kind)
		assert.Equal(t, []string{"a", "b", "c", "d"}, set.Topics[0].Questions[0].Options)
		assert.Equal(t, session.Snapshot{Answers: []int{1}, RemainingSec: 42, Locked: []int{}, Flags: []int{0}}, set.Topics[0].Progress)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.FetchSet(ctx, "missing")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("SaveProgress", func(t *testing.T) {
		err := store.SaveProgress(ctx, "set-1", "topic-1", session.Snapshot{Answers: []int{2}, RemainingSec: 30, Locked: []int{0}, Flags: []int{}})
		require.NoError(t, err)
		require.Len(t, *saved, 1)
		body := (*saved)[0]
		assert.Equal(t, "topic-1", body["topic_id"])
		assert.Equal(t, float64(30), body["remaining_sec"])
	})

	t.Run("Conflict", func(t *testing.T) {
		err := store.SaveProgress(ctx, "done", "topic-1", session.Snapshot{})
		assert.ErrorIs(t, err, session.ErrAlreadyCompleted)
	})

	t.Run("Submit", func(t *testing.T) {
		res, err := store.Submit(ctx, "set-1", "topic-1", []int{1}, 12)
		require.NoError(t, err)
		assert.Equal(t, &session.Result{Score: 100, Correct: 1, Total: 1, DurationSec: 12}, res)
	})

	t.Run("ServerError", func(t *testing.T) {
		_, err := store.Submit(ctx, "broken", "topic-1", nil, 0)
		assert.ErrorIs(t, err, session.ErrPersistenceUnavailable)
	})

	t.Run("Retake", func(t *testing.T) {
		require.NoError(t, store.Retake(ctx, "set-1", "topic-1"))
	})

	t.Run("Unauthorized", func(t *testing.T) {
		_, err := client.NewHTTPStore(srv.URL, "wrong").FetchSet(ctx, "set-1")
		require.Error(t, err)
		assert.False(t, errors.Is(err, session.ErrPersistenceUnavailable))
	})
}

func TestHTTPStore_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := client.NewHTTPStore(url, "token-1").SaveProgress(context.Background(), "set-1", "topic-1", session.Snapshot{})
	assert.ErrorIs(t, err, session.ErrPersistenceUnavailable)
}

type scriptedLister struct {
	calls   atomic.Int32
	readyAt int32
	failAt  int32
}

func (l *scriptedLister) ListSets(context.Context) ([]session.SetStatus, error) {
	n := l.calls.Add(1)
	if n == l.failAt {
		return nil, session.ErrPersistenceUnavailable
	}
	return []session.SetStatus{
		{ID: "a", Generating: false},
		{ID: "b", Generating: n < l.readyAt},
	}, nil
}

func TestWaitForGeneration(t *testing.T) {
	t.Run("StopsWhenNoneGenerating", func(t *testing.T) {
		l := &scriptedLister{readyAt: 3, failAt: 2}
		sets, err := client.WaitForGeneration(context.Background(), l, time.Millisecond, 10)
		require.NoError(t, err)
		assert.Len(t, sets, 2)
		assert.Equal(t, int32(3), l.calls.Load())
	})

	t.Run("GivesUpAfterMaxPolls", func(t *testing.T) {
		l := &scriptedLister{readyAt: 100}
		_, err := client.WaitForGeneration(context.Background(), l, time.Millisecond, 4)
		assert.ErrorIs(t, err, client.ErrPollTimeout)
		assert.Equal(t, int32(4), l.calls.Load())
	})

	t.Run("HonoursContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		l := &scriptedLister{readyAt: 100}
		_, err := client.WaitForGeneration(ctx, l, time.Hour, 10)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
