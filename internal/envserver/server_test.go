package envserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/blockfall/internal/agent"
	"github.com/vovakirdan/blockfall/internal/config"
	"github.com/vovakirdan/blockfall/internal/storage"
)

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	s := New(opts)
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createEnv(t *testing.T, ts *httptest.Server, seed int64) envResponse {
	t.Helper()
	var created envResponse
	status := do(t, http.MethodPost, ts.URL+"/v1/envs", map[string]any{"seed": seed}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.ID)
	return created
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	var h healthResponse
	status := do(t, http.MethodGet, ts.URL+"/health", nil, &h)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 0, h.Envs)
}

func TestCreateStepAndGet(t *testing.T) {
	s, ts := newTestServer(t, Options{})

	created := createEnv(t, ts, 7)
	assert.Equal(t, "marathon", created.Variant)
	assert.Equal(t, int64(7), created.Seed)
	assert.Len(t, created.Observation.Board, 10*20)
	assert.NotZero(t, created.Observation.ActiveKind)
	assert.Equal(t, 1, s.Len())

	var step stepResponse
	status := do(t, http.MethodPost, ts.URL+"/v1/envs/"+created.ID+"/step", map[string]any{"action": int(agent.ActionHardDrop)}, &step)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, step.Info.Steps)
	assert.Equal(t, 1, step.Info.Pieces-created.Info.Pieces)
	assert.False(t, step.Done)

	var got envResponse
	status = do(t, http.MethodGet, ts.URL+"/v1/envs/"+created.ID, nil, &got)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, step.Observation, got.Observation)
	assert.NotEmpty(t, got.Board)

	var list map[string][]string
	do(t, http.MethodGet, ts.URL+"/v1/envs", nil, &list)
	assert.Equal(t, []string{created.ID}, list["ids"])
}

func TestSameSeedSameObservations(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	a := createEnv(t, ts, 99)
	b := createEnv(t, ts, 99)
	assert.Equal(t, a.Observation, b.Observation)

	actions := []agent.Action{agent.ActionLeft, agent.ActionRotate, agent.ActionHardDrop, agent.ActionRight, agent.ActionHardDrop}
	for _, act := range actions {
		var ra, rb stepResponse
		do(t, http.MethodPost, ts.URL+"/v1/envs/"+a.ID+"/step", map[string]any{"action": int(act)}, &ra)
		do(t, http.MethodPost, ts.URL+"/v1/envs/"+b.ID+"/step", map[string]any{"action": int(act)}, &rb)
		assert.Equal(t, ra.Observation, rb.Observation)
		assert.Equal(t, ra.Reward, rb.Reward)
	}
}

func TestStepErrors(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	created := createEnv(t, ts, 1)
	url := ts.URL + "/v1/envs/" + created.ID + "/step"

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"out of range", map[string]any{"action": 6}, http.StatusBadRequest},
		{"negative", map[string]any{"action": -1}, http.StatusBadRequest},
		{"missing action", map[string]any{}, http.StatusBadRequest},
		{"wrong type", map[string]any{"action": "left"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e errorResponse
			status := do(t, http.MethodPost, url, tt.body, &e)
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, e.Error)
		})
	}

	// rejected actions leave the env untouched
	var got envResponse
	do(t, http.MethodGet, ts.URL+"/v1/envs/"+created.ID, nil, &got)
	assert.Equal(t, 0, got.Info.Steps)
	assert.Equal(t, created.Observation, got.Observation)
}

func TestUnknownEnv(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/envs/missing"},
		{http.MethodDelete, "/v1/envs/missing"},
		{http.MethodPost, "/v1/envs/missing/reset"},
	} {
		var e errorResponse
		status := do(t, tc.method, ts.URL+tc.path, nil, &e)
		assert.Equal(t, http.StatusNotFound, status, tc.path)
		assert.Contains(t, e.Error, "unknown env")
	}

	var e errorResponse
	status := do(t, http.MethodPost, ts.URL+"/v1/envs/missing/step", map[string]any{"action": 0}, &e)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUnknownVariant(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	var e errorResponse
	status := do(t, http.MethodPost, ts.URL+"/v1/envs", map[string]any{"variant": "nope"}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, e.Error, "nope")
}

func TestDelete(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	created := createEnv(t, ts, 3)

	status := do(t, http.MethodDelete, ts.URL+"/v1/envs/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, 0, s.Len())

	status = do(t, http.MethodGet, ts.URL+"/v1/envs/"+created.ID, nil, &errorResponse{})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestResetSeeds(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	created := createEnv(t, ts, 10)

	do(t, http.MethodPost, ts.URL+"/v1/envs/"+created.ID+"/step", map[string]any{"action": int(agent.ActionHardDrop)}, &stepResponse{})

	var reset envResponse
	status := do(t, http.MethodPost, ts.URL+"/v1/envs/"+created.ID+"/reset", map[string]any{"seed": 10}, &reset)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.Observation, reset.Observation)
	assert.Equal(t, 0, reset.Info.Steps)

	status = do(t, http.MethodPost, ts.URL+"/v1/envs/"+created.ID+"/reset", nil, &reset)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(11), reset.Seed)
}

func smallRules(t *testing.T) RulesFunc {
	t.Helper()
	return func(variant string) (config.Rules, error) {
		if variant != "small" {
			return config.Rules{}, fmt.Errorf("unknown variant %q", variant)
		}
		r := config.DefaultRules()
		r.Board.Width = 6
		r.Board.Height = 6
		return r, nil
	}
}

func TestEpisodeOverAndRecording(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "episodes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, ts := newTestServer(t, Options{Store: store, Rules: smallRules(t), DefaultVariant: "small"})
	created := createEnv(t, ts, 5)
	require.NotEmpty(t, created.EpisodeID)

	url := ts.URL + "/v1/envs/" + created.ID + "/step"
	var last stepResponse
	steps := 0
	for !last.Done {
		require.Less(t, steps, 200, "game should end by stacking hard drops")
		status := do(t, http.MethodPost, url, map[string]any{"action": int(agent.ActionHardDrop)}, &last)
		require.Equal(t, http.StatusOK, status)
		steps++
	}
	assert.True(t, last.Terminated)
	assert.True(t, last.Info.Lost)

	var e errorResponse
	status := do(t, http.MethodPost, url, map[string]any{"action": 0}, &e)
	assert.Equal(t, http.StatusConflict, status)

	ep, err := store.Episode(created.EpisodeID)
	require.NoError(t, err)
	require.NotNil(t, ep)
	assert.Equal(t, "game_over", ep.EndReason)
	assert.Equal(t, "small", ep.Variant)
	assert.Equal(t, int64(5), ep.Seed)
	assert.Equal(t, steps, ep.Steps)
	assert.Equal(t, last.Info.Score, ep.Score)

	trs, err := store.Transitions(created.EpisodeID)
	require.NoError(t, err)
	require.Len(t, trs, steps)
	assert.Equal(t, 1, trs[0].Step)
	assert.True(t, trs[len(trs)-1].Terminated)
}

func TestSpacesAndVariants(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	var sp agent.Spaces
	status := do(t, http.MethodGet, ts.URL+"/v1/spaces", nil, &sp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, agent.NumActions, sp.Actions)
	assert.Equal(t, [2]int{20, 10}, sp.Shape)
	assert.Len(t, sp.ActionNames, agent.NumActions)

	status = do(t, http.MethodGet, ts.URL+"/v1/spaces?variant=nope", nil, &errorResponse{})
	assert.Equal(t, http.StatusBadRequest, status)

	var variants []map[string]any
	status = do(t, http.MethodGet, ts.URL+"/v1/variants", nil, &variants)
	require.Equal(t, http.StatusOK, status)
	assert.GreaterOrEqual(t, len(variants), 2)
}

func TestSweepIdle(t *testing.T) {
	s, ts := newTestServer(t, Options{IdleTimeout: time.Minute})
	createEnv(t, ts, 1)
	createEnv(t, ts, 2)
	require.Equal(t, 2, s.Len())

	assert.Equal(t, 0, s.Sweep())

	s.opts.IdleTimeout = time.Millisecond
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, s.Sweep())
	assert.Equal(t, 0, s.Len())

	createEnv(t, ts, 3)
	s.CloseAll()
	assert.Equal(t, 0, s.Len())
}
