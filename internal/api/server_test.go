package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-organ/gesture.host/internal/config"
	"github.com/crowd-organ/gesture.host/internal/db"
	"github.com/crowd-organ/gesture.host/internal/engine"
	"github.com/crowd-organ/gesture.host/internal/gesture"
)

func testServer(t *testing.T, journal *db.DB) *Server {
	t.Helper()
	return NewServer(engine.New(nil), journal, config.EmptyTuningConfig())
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	return rec
}

func TestGetParams(t *testing.T) {
	t.Parallel()
	s := testServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/params", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resolved map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	assert.EqualValues(t, 45, resolved["history_capacity"])
	assert.InDelta(t, 0.18, resolved["raise_delta_y"].(float64), 1e-9)
}

func TestPostParams(t *testing.T) {
	t.Parallel()
	s := testServer(t, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/params", `{"raise_delta_y": 0.3, "history_capacity": 30}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resolved map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	assert.InDelta(t, 0.3, resolved["raise_delta_y"].(float64), 1e-9)
	assert.EqualValues(t, 30, resolved["history_capacity"])

	// The update survives into subsequent reads and the engine.
	rec = doRequest(t, s, http.MethodGet, "/api/params", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	assert.EqualValues(t, 30, resolved["history_capacity"])
	assert.Equal(t, 30, s.engine.Snapshot().HistoryCapacity)
}

func TestPostParamsRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"unknown field", `{"raise_delta": 0.3}`},
		{"out of range", `{"pulse_threshold": 2.0}`},
		{"inverted eruption band", `{"eruption_low": 0.9, "eruption_high": 0.3}`},
		{"malformed json", `{"raise_delta_y":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := testServer(t, nil)
			rec := doRequest(t, s, http.MethodPost, "/api/params", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestParamsMethodNotAllowed(t *testing.T) {
	t.Parallel()
	s := testServer(t, nil)

	rec := doRequest(t, s, http.MethodDelete, "/api/params", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListEvents(t *testing.T) {
	t.Parallel()

	journal, err := db.NewDB(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	require.NoError(t, journal.RecordEvent(gesture.Event{
		ID: "a", Kind: gesture.KindVoice, Subject: 1,
		Type: gesture.TypeRaise, Strength: 0.9, Cell: -1, UnixMillis: 1000,
	}))

	s := testServer(t, journal)
	rec := doRequest(t, s, http.MethodGet, "/api/events?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var events []db.EventRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "raise", events[0].Type)
}

func TestListEventsBadLimit(t *testing.T) {
	t.Parallel()

	journal, err := db.NewDB(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	s := testServer(t, journal)
	rec := doRequest(t, s, http.MethodGet, "/api/events?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEventsWithoutJournal(t *testing.T) {
	t.Parallel()
	s := testServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/events", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestShowStatus(t *testing.T) {
	t.Parallel()
	s := testServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.EqualValues(t, 0, status["voices"])
	assert.EqualValues(t, 45, status["history_capacity"])
	assert.Equal(t, false, status["journal_enabled"])
}
