package logclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lccweb/agentwave/internal/models"
)

func TestListAndTail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/logs/list":
			fmt.Fprint(w, `{"files":["latest.log","daily-2026-03-14.log"]}`)
		case "/logs/tail":
			assert.Equal(t, "latest.log", r.URL.Query().Get("file"))
			assert.Equal(t, "12", r.URL.Query().Get("offset"))
			fmt.Fprint(w, `{"lines":["a","b"],"size":40}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := New(ts.URL + "/")
	files, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"latest.log", "daily-2026-03-14.log"}, files)

	lines, size, err := c.Tail(context.Background(), "latest.log", 12)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lines)
	assert.Equal(t, int64(40), size)
}

func TestErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := New(ts.URL).List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestStream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: one\n\n: ping\n\ndata: two\n\n")
	}))
	defer ts.Close()

	var got []string
	err := New(ts.URL).Stream(context.Background(), "latest.log", func(line string) error {
		got = append(got, line)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestStreamStopsOnCallbackError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: one\n\ndata: two\n\n")
	}))
	defer ts.Close()

	stop := errors.New("stop")
	calls := 0
	err := New(ts.URL).Stream(context.Background(), "latest.log", func(string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestParse(t *testing.T) {
	line := Parse(`{"timestamp":"2026-03-14T09:26:53.589Z","agent":"coordinator","role":"agent","phase":"DONE","text":"Wave finished."}`)
	assert.Equal(t, "coordinator", line.Agent)
	assert.Equal(t, models.PhaseDone, line.Phase)

	plain := Parse("not json")
	assert.Equal(t, "not json", plain.Text)
	assert.Empty(t, plain.Phase)
}
