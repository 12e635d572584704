package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/edgeracer/dqn"
	"github.com/zeu5/edgeracer/geometry"
	"github.com/zeu5/edgeracer/racing"
)

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	h.ServeHTTP(w, req)
	return w
}

func TestMonitor(t *testing.T) {
	m := NewMonitor(2)
	m.ObserveFrame("a", racing.Pose{Position: geometry.Position{X: 1, Y: 2}, Heading: 90})
	for i := 0; i < 3; i++ {
		m.ObserveEpisode("a", 0, dqn.EpisodeSummary{Index: i, Reward: float64(i)})
	}

	rewards, ok := m.Rewards("a")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, rewards)

	pose, ok := m.Pose("a")
	require.True(t, ok)
	assert.Equal(t, 90.0, pose.Heading)

	statuses := m.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, 3, statuses[0].Episodes)
	assert.Equal(t, 2, statuses[0].Last.Index)

	// a new run starts from scratch
	m.ObserveEpisode("a", 1, dqn.EpisodeSummary{Index: 0, Reward: 7})
	rewards, _ = m.Rewards("a")
	assert.Equal(t, []float64{7}, rewards)
	assert.Equal(t, 1, m.Statuses()[0].Episodes)

	_, ok = m.Pose("b")
	assert.False(t, ok)
	_, ok = m.Rewards("b")
	assert.False(t, ok)
}

func TestHandlers(t *testing.T) {
	m := NewMonitor(0)
	r := New(m)

	w := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"ok"}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, get(t, r, "/pose/a").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/rewards/a").Code)

	m.ObserveFrame("a", racing.Pose{Position: geometry.Position{X: 3, Y: 4}, Heading: 10})
	w = get(t, r, "/rewards/a")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rewards":[]}`, w.Body.String())

	m.ObserveEpisode("a", 0, dqn.EpisodeSummary{Index: 0, Reward: -500, OutcomeName: "collision"})

	w = get(t, r, "/pose/a")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"position":{"x":3,"y":4},"heading":10}`, w.Body.String())

	w = get(t, r, "/rewards/a")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rewards":[-500]}`, w.Body.String())

	w = get(t, r, "/status")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Experiments []ExperimentStatus `json:"experiments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Experiments, 1)
	assert.Equal(t, "a", body.Experiments[0].Name)
	assert.Equal(t, "collision", body.Experiments[0].Last.OutcomeName)
}

func TestServe(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, addr, NewMonitor(0), nil)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
