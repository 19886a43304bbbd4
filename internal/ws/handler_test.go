package ws

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/richbridge/internal/bridges"
	"github.com/GriffinCanCode/richbridge/internal/editor"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
	"github.com/GriffinCanCode/richbridge/internal/surface"
)

const wait = 2 * time.Second

type fixture struct {
	manager *surface.Manager
	metrics *monitoring.Metrics
	server  *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	manager := surface.NewManager(nil, metrics)
	spec := func() surface.Spec {
		return surface.Spec{
			Descriptors: func() []*extension.Descriptor { return bridges.StarterKit() },
			Editor:      editor.DefaultConfig(),
		}
	}

	router := gin.New()
	router.GET("/ws", NewHandler(manager, spec, nil, metrics).HandleConnection)
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		manager.Shutdown()
	})
	return &fixture{manager: manager, metrics: metrics, server: server}
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func (f *fixture) surface(t *testing.T) *surface.Surface {
	t.Helper()
	require.Eventually(t, func() bool { return f.manager.Count() == 1 }, wait, 5*time.Millisecond)
	return f.manager.List()[0]
}

func send(t *testing.T, conn *websocket.Conn, typ protocol.Type, payload any) {
	t.Helper()
	msg, err := protocol.New(typ, payload)
	require.NoError(t, err)
	data, err := protocol.Encode(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func readMessage(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)
	msg, err := protocol.ParseScript(string(data))
	require.NoError(t, err)
	return msg
}

func TestConnectionAttachesEditor(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	defer conn.Close()

	s := f.surface(t)
	assert.Equal(t, surface.KindRemote, s.Kind())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.WSConnections))

	// Buffered until the page reports ready.
	require.NoError(t, s.Editor().Call("toggleBold", nil))
	assert.Equal(t, 1, s.Editor().Pending())

	send(t, conn, protocol.TypeReady, nil)
	msg := readMessage(t, conn)
	assert.Equal(t, protocol.Type("toggle-Bold"), msg.Type)

	send(t, conn, protocol.TypeStateUpdate, map[string]any{"isBoldActive": true})
	assert.Eventually(t, func() bool {
		return s.Editor().State()["isBoldActive"] == true
	}, wait, 5*time.Millisecond)
	assert.True(t, s.Editor().IsReady())
}

func TestDisconnectUnmounts(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	s := f.surface(t)
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool { return f.manager.Count() == 0 }, wait, 5*time.Millisecond)
	select {
	case <-s.Editor().Done():
	case <-time.After(wait):
		t.Fatal("editor not closed after disconnect")
	}
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.WSConnections) == 0
	}, wait, 5*time.Millisecond)
}

func TestMalformedFrameIgnored(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	defer conn.Close()

	s := f.surface(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	send(t, conn, protocol.TypeReady, nil)

	require.NoError(t, s.Editor().Call("toggleItalic", nil))
	msg := readMessage(t, conn)
	assert.Equal(t, protocol.Type("toggle-Italic"), msg.Type)
}

func TestLargeBurstDeliveredInOrder(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	defer conn.Close()

	s := f.surface(t)
	send(t, conn, protocol.TypeReady, nil)
	require.Eventually(t, s.Editor().IsReady, wait, 5*time.Millisecond)

	const count = 600
	filler := strings.Repeat("x", 64<<10)
	for i := 0; i < count; i++ {
		require.NoError(t, s.Editor().Call("setContent", fmt.Sprintf("%04d%s", i, filler)))
	}

	for i := 0; i < count; {
		msg := readMessage(t, conn)
		if msg.Type != bridges.TypeSetContent {
			continue
		}
		var content string
		require.NoError(t, msg.Decode(&content))
		require.Equal(t, fmt.Sprintf("%04d", i), content[:4])
		i++
	}
}

func TestInjectAfterClose(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	defer conn.Close()

	s := f.surface(t)
	require.NoError(t, f.manager.Unmount(s.ID()))
	err := s.Editor().Call("toggleBold", nil)
	assert.ErrorIs(t, err, editor.ErrClosed)
}
