package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/richbridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/richbridge/internal/logging"
)

const wait = 2 * time.Second

func newServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg, WithLogger(logging.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func mount(t *testing.T, srv *Server, body any) string {
	t.Helper()
	w, out := do(t, srv, http.MethodPost, "/editors", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	info := out["editor"].(map[string]any)
	return info["id"].(string)
}

func TestRootAndHealth(t *testing.T) {
	srv := newServer(t, config.Default())

	w, out := do(t, srv, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", out["status"])

	w, out = do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", out["status"])
	assert.Contains(t, out, "editors")
}

func TestEditorLifecycle(t *testing.T) {
	srv := newServer(t, config.Default())
	editorID := mount(t, srv, map[string]any{"initialContent": "<p>Hi</p>"})
	assert.Equal(t, 1, srv.Manager().Count())

	w, out := do(t, srv, http.MethodPost, "/editors/"+editorID+"/call", map[string]any{
		"method":  "toggleHeading",
		"payload": 1,
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, float64(0), out["pending"])

	assert.Eventually(t, func() bool {
		_, out := do(t, srv, http.MethodGet, "/editors/"+editorID+"/content", nil)
		return out["html"] == "<h1>Hi</h1>"
	}, wait, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, out := do(t, srv, http.MethodGet, "/editors/"+editorID+"/state", nil)
		state, _ := out["state"].(map[string]any)
		return state["headingLevel"] == float64(1)
	}, wait, 10*time.Millisecond)

	w, _ = do(t, srv, http.MethodPost, "/editors/"+editorID+"/focus", map[string]any{"position": "start"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Eventually(t, func() bool {
		_, out := do(t, srv, http.MethodGet, "/editors/"+editorID+"/state", nil)
		state, _ := out["state"].(map[string]any)
		return state["isFocused"] == true
	}, wait, 10*time.Millisecond)

	w, out = do(t, srv, http.MethodGet, "/editors", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["editors"], 1)

	w, _ = do(t, srv, http.MethodDelete, "/editors/"+editorID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, srv, http.MethodGet, "/editors/"+editorID+"/state", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, srv.Manager().Count())
}

func TestEditorErrors(t *testing.T) {
	srv := newServer(t, config.Default())
	editorID := mount(t, srv, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown method", http.MethodPost, "/editors/" + editorID + "/call", map[string]any{"method": "explode"}, http.StatusNotFound},
		{"missing method", http.MethodPost, "/editors/" + editorID + "/call", map[string]any{}, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/editors/nope/state", nil, http.StatusBadRequest},
		{"unknown extension", http.MethodPost, "/editors", map[string]any{"extensions": []string{"nope"}}, http.StatusBadRequest},
		{"duplicate extension", http.MethodPost, "/editors", map[string]any{"extensions": []string{"bold", "bold"}}, http.StatusBadRequest},
		{"bad focus position", http.MethodPost, "/editors/" + editorID + "/focus", map[string]any{"position": "middle"}, http.StatusBadRequest},
		{"negative focus position", http.MethodPost, "/editors/" + editorID + "/focus", map[string]any{"position": "-3"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, out := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestFocusDefaultPosition(t *testing.T) {
	srv := newServer(t, config.Default())

	tests := []struct {
		name  string
		mount map[string]any
		body  any
		want  string
	}{
		{"no body", nil, nil, "end"},
		{"empty position", nil, map[string]any{"position": ""}, "end"},
		{"configured position", map[string]any{"focusPosition": "start"}, map[string]any{}, "start"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editorID := mount(t, srv, tt.mount)
			w, out := do(t, srv, http.MethodPost, "/editors/"+editorID+"/focus", tt.body)
			require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
			assert.Equal(t, tt.want, out["position"])
		})
	}
}

func TestEditorPage(t *testing.T) {
	cfg := config.Default()
	cfg.Editor.InitialContent = "<p>Start</p>"
	srv := newServer(t, cfg)

	w, _ := do(t, srv, http.MethodGet, "/editor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()

	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, "window.plugConfig")
	assert.Contains(t, body, "window.whiteListPlugins")
	assert.Contains(t, body, "ReactNativeWebView")
	assert.Contains(t, body, `<script src="/static/editor.js"></script>`)
	assert.Contains(t, body, "is-editor-empty")
	assert.NotContains(t, body, "<p>Start</p>", "initial content is escaped inside the script")
}

func TestExtensionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extensions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("enabled:\n  - core\n  - bold\n"), 0o644))

	cfg := config.Default()
	cfg.Extensions.File = path
	srv := newServer(t, cfg)

	_, out := do(t, srv, http.MethodGet, "/extensions", nil)
	assert.Equal(t, []any{"core", "bold"}, out["enabled"])

	w, out := do(t, srv, http.MethodPost, "/editors", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t,
		[]any{"blur", "requestContent", "setContent", "setEditable", "toggleBold"},
		out["methods"])
}

func TestExtensionsFileUnknownBridge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extensions.toml")
	require.NoError(t, os.WriteFile(path, []byte(`enabled = ["nope"]`+"\n"), 0o644))

	cfg := config.Default()
	cfg.Extensions.File = path
	_, err := NewServer(cfg, WithLogger(logging.Nop()))
	assert.Error(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t, config.Default())
	mount(t, srv, nil)

	w, _ := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "richbridge_editors_active 1")
	assert.Contains(t, body, "richbridge_http_requests_total")
	assert.Contains(t, body, "go_goroutines")
}
