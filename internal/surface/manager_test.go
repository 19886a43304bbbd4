package surface

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/richbridge/internal/bridges"
	"github.com/GriffinCanCode/richbridge/internal/channel/channeltest"
	"github.com/GriffinCanCode/richbridge/internal/editor"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/richbridge/internal/sandbox"
)

const wait = 2 * time.Second

func kitSpec(cfg editor.Config, extra ...func() *extension.Descriptor) Spec {
	return Spec{
		Descriptors: func() []*extension.Descriptor {
			descs := bridges.StarterKit()
			for _, build := range extra {
				descs = append(descs, build())
			}
			return descs
		},
		Editor:  cfg,
		Sandbox: sandbox.DefaultConfig(),
	}
}

func stateIs(s *Surface, key string, want any) func() bool {
	return func() bool { return s.Editor().State()[key] == want }
}

func TestMountSandboxSurface(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	m := NewManager(nil, metrics)
	ctx := context.Background()

	s, err := m.Mount(ctx, kitSpec(editor.Config{
		InitialContent: "<p>Hello</p>",
		Autofocus:      true,
		FocusPosition:  "end",
	}))
	require.NoError(t, err)

	assert.Equal(t, KindSandbox, s.Kind())
	require.NoError(t, s.Editor().WaitReady(ctx))
	assert.NotNil(t, s.Runtime())
	assert.Equal(t, "Hello", s.Engine().Text())

	assert.Eventually(t, stateIs(s, "isFocused", true), wait, 5*time.Millisecond, "autofocus")
	assert.Equal(t, true, s.Editor().State()["isReady"])

	require.NoError(t, s.Editor().Call("toggleBold", nil))
	assert.Eventually(t, stateIs(s, "isBoldActive", true), wait, 5*time.Millisecond)

	require.NoError(t, s.Editor().Call("toggleHeading", 1))
	assert.Eventually(t, stateIs(s, "headingLevel", float64(1)), wait, 5*time.Millisecond)
	assert.Equal(t, "<h1>Hello</h1>", s.Engine().HTML())

	styles := s.Sandbox().DOM().Styles()
	require.Len(t, styles, 1)
	assert.Contains(t, styles[0], "is-editor-empty")

	assert.Equal(t, 1, m.Count())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EditorsActive))

	got, ok := m.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)

	require.NoError(t, m.Unmount(s.ID()))
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.EditorsActive))
	assert.ErrorIs(t, m.Unmount(s.ID()), ErrNotFound)

	select {
	case <-s.Sandbox().Done():
	case <-time.After(wait):
		t.Fatal("sandbox still running after unmount")
	}
	assert.ErrorIs(t, s.Editor().Call("toggleBold", nil), editor.ErrClosed)
}

func TestRequestContentRoundTrip(t *testing.T) {
	var mu sync.Mutex
	var got []bridges.Content
	onContent := func() *extension.Descriptor {
		return bridges.Core(func(c bridges.Content) {
			mu.Lock()
			got = append(got, c)
			mu.Unlock()
		})
	}

	m := NewManager(nil, nil)
	s, err := m.Mount(context.Background(), kitSpec(editor.Config{InitialContent: "<p>Doc</p>"}, onContent, bridges.Mention))
	require.NoError(t, err)
	defer m.Shutdown()

	require.NoError(t, s.Editor().Call("requestContent", nil))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, wait, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, bridges.Content{HTML: "<p>Doc</p>", Text: "Doc"}, got[0])
	mu.Unlock()
}

func TestMentionThroughSandbox(t *testing.T) {
	m := NewManager(nil, nil)
	s, err := m.Mount(context.Background(), kitSpec(editor.Config{InitialContent: "hi @al"}, bridges.Mention))
	require.NoError(t, err)
	defer m.Shutdown()

	assert.Eventually(t, stateIs(s, "queryMention", "al"), wait, 5*time.Millisecond)

	require.NoError(t, s.Editor().Call("insertMention", bridges.Item{ID: "42", Label: "alice"}))
	assert.Eventually(t, stateIs(s, "queryMention", nil), wait, 5*time.Millisecond)
	assert.Equal(t, `<p>hi <span data-type="mention" data-id="42" data-label="alice">@alice</span> </p>`, s.Engine().HTML())
}

func TestMountCompositionError(t *testing.T) {
	m := NewManager(nil, nil)
	_, err := m.Mount(context.Background(), Spec{
		Descriptors: func() []*extension.Descriptor {
			return []*extension.Descriptor{bridges.Bold(), bridges.Bold()}
		},
		Sandbox: sandbox.DefaultConfig(),
	})
	assert.ErrorIs(t, err, extension.ErrConfig)
	assert.Equal(t, 0, m.Count())
}

func TestAttachRemote(t *testing.T) {
	m := NewManager(nil, nil)
	rec := &channeltest.Recorder{}

	s, err := m.Attach(kitSpec(editor.DefaultConfig()), rec)
	require.NoError(t, err)
	assert.Equal(t, KindRemote, s.Kind())
	assert.Nil(t, s.Sandbox())
	assert.Nil(t, s.Engine())

	require.NoError(t, s.Editor().Call("toggleItalic", nil))
	assert.Empty(t, rec.Scripts(), "buffered until ready")
	assert.Equal(t, 1, s.Info().Pending)

	s.Editor().Receive([]byte(`{"type":"ready"}`))
	assert.Equal(t, []string{"toggle-Italic"}, typeNames(rec))

	st := m.Stats()
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.ByKind[KindRemote])
	assert.Equal(t, 1, st.ByPhase["ready"])

	require.NoError(t, m.Unmount(s.ID()))
	assert.True(t, rec.Closed())
}

func TestShutdown(t *testing.T) {
	m := NewManager(nil, nil)
	for i := 0; i < 2; i++ {
		_, err := m.Attach(kitSpec(editor.DefaultConfig()), &channeltest.Recorder{})
		require.NoError(t, err)
	}
	require.Len(t, m.List(), 2)

	m.Shutdown()
	assert.Equal(t, 0, m.Count())
	assert.Empty(t, m.List())

	_, err := m.Attach(kitSpec(editor.DefaultConfig()), &channeltest.Recorder{})
	assert.ErrorIs(t, err, ErrShutdown)
	_, err = m.Mount(context.Background(), kitSpec(editor.DefaultConfig()))
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestRegisterAfterShutdownClosesSurface(t *testing.T) {
	m := NewManager(nil, nil)
	rec := &channeltest.Recorder{}
	s, err := attachRemote(kitSpec(editor.DefaultConfig()), rec, m.logger, m.metrics)
	require.NoError(t, err)

	m.Shutdown()
	assert.ErrorIs(t, m.register(s), ErrShutdown)
	assert.Equal(t, 0, m.Count())
	assert.Empty(t, m.List())
	assert.True(t, rec.Closed())
	select {
	case <-s.Editor().Done():
	default:
		t.Fatal("editor left open")
	}
}

func TestAttachRacingShutdown(t *testing.T) {
	m := NewManager(nil, nil)

	const n = 32
	recs := make([]*channeltest.Recorder, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		recs[i] = &channeltest.Recorder{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Attach(kitSpec(editor.DefaultConfig()), recs[i])
		}(i)
	}
	m.Shutdown()
	wg.Wait()

	assert.Equal(t, 0, m.Count())
	assert.Empty(t, m.List())
	for i := range recs {
		if errs[i] == nil {
			assert.True(t, recs[i].Closed(), "surface %d outlived shutdown", i)
		} else {
			assert.ErrorIs(t, errs[i], ErrShutdown)
		}
	}
}

func typeNames(rec *channeltest.Recorder) []string {
	var out []string
	for _, typ := range rec.Types() {
		out = append(out, string(typ))
	}
	return out
}
