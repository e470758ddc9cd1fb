package ipc

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

func decodeEnvelope(t *testing.T, resp *http.Response) Envelope {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env
}

func TestServer_Healthz(t *testing.T) {
	app := NewServer(newTestService(t), zerolog.Nop())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestServer_Call(t *testing.T) {
	app := NewServer(newTestService(t), zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/ipc/process:create", strings.NewReader(`{"title":"Bridge"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	require.True(t, env.Success, env.Error)
	created, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Bridge", created["title"])

	req = httptest.NewRequest(http.MethodPost, "/ipc/process%3Aget", strings.NewReader(`{"id":"`+created["id"].(string)+`"}`))
	resp, err = app.Test(req)
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	require.True(t, env.Success, env.Error)
}

func TestServer_FailedCallIsStillOK(t *testing.T) {
	app := NewServer(newTestService(t), zerolog.Nop())

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/ipc/process:get", strings.NewReader(`{"id":"missing"}`)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, types.ErrNotFound.Error())
}

func TestServer_UnknownRoute(t *testing.T) {
	app := NewServer(newTestService(t), zerolog.Nop())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}

func TestServer_ListChannels(t *testing.T) {
	svc := newTestService(t)
	app := NewServer(svc, zerolog.Nop())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ipc", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.Equal(t, svc.Channels(), names)
}
