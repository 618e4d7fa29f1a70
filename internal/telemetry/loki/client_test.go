package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-guard/internal/telemetry"
)

func captureServer(t *testing.T, status int) (*httptest.Server, *PushRequest) {
	t.Helper()
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/loki/api/v1/push", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestPushEventJSON_LabelsAndTimestamp(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	ev := telemetry.NewEvent("acct-1", telemetry.EventDeviceLimitReached, nil)
	ev.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, NewClient(srv.URL+"/").PushEventJSON(context.Background(), raw))

	require.Len(t, got.Streams, 1)
	labels := got.Streams[0].Stream
	require.Equal(t, Job, labels["job"])
	require.Equal(t, telemetry.EventDeviceLimitReached, labels["event_type"])
	require.Equal(t, telemetry.SourceServer, labels["source"])
	require.NotContains(t, labels, "account_id")
	require.Equal(t, strconv.FormatInt(ev.CreatedAt.UnixNano(), 10), got.Streams[0].Values[0][0])
	require.Equal(t, string(raw), got.Streams[0].Values[0][1])
}

func TestPushEventJSON_UnparseableLine(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	require.NoError(t, NewClient(srv.URL).PushEventJSON(context.Background(), []byte("not json")))
	require.Equal(t, map[string]string{"job": Job}, got.Streams[0].Stream)
}

func TestPushEvent_SanitizesLabels(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	err := NewClient(srv.URL).PushEvent(context.Background(), time.Now(), "line", map[string]string{"source": " web app/v2 ", "empty": "  "})
	require.NoError(t, err)
	require.Equal(t, "web_app_v2", got.Streams[0].Stream["source"])
	require.NotContains(t, got.Streams[0].Stream, "empty")
}

func TestPushEvent_Errors(t *testing.T) {
	require.Error(t, NewClient("").PushEvent(context.Background(), time.Now(), "line", nil))

	srv, _ := captureServer(t, http.StatusBadRequest)
	require.Error(t, NewClient(srv.URL).PushEvent(context.Background(), time.Now(), "line", nil))
}
