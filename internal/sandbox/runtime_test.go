package sandbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSandbox(t *testing.T, mutate ...func(*Config)) *Sandbox {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type posts struct {
	mu   sync.Mutex
	data []string
}

func (p *posts) add(b []byte) {
	p.mu.Lock()
	p.data = append(p.data, string(b))
	p.mu.Unlock()
}

func (p *posts) get() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.data...)
}

func TestEval(t *testing.T) {
	s := newSandbox(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		script string
		want   any
	}{
		{"simple return", "42", int64(42)},
		{"math operations", "Math.sqrt(16)", int64(4)},
		{"string operations", "'hello'.toUpperCase()", "HELLO"},
		{"window is global", "window === this && self === window", true},
		{"undefined", "undefined", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Eval(ctx, tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSecurity(t *testing.T) {
	s := newSandbox(t)
	for _, script := range []string{"require('fs')", "process.exit(1)", "module.exports = 1"} {
		_, err := s.Eval(context.Background(), script)
		assert.Error(t, err, script)
	}
}

func TestTimeout(t *testing.T) {
	s := newSandbox(t, func(c *Config) { c.Timeout = 50 * time.Millisecond })

	_, err := s.Eval(context.Background(), "for (;;) {}")
	assert.ErrorIs(t, err, ErrTimeout)

	got, err := s.Eval(context.Background(), "1 + 1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestInjectIsOrderedAndAsync(t *testing.T) {
	s := newSandbox(t)
	p := &posts{}
	s.OnPost(p.add)

	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, s.Inject("ReactNativeWebView.postMessage('"+n+"')"))
	}
	assert.Eventually(t, func() bool { return len(p.get()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, p.get())
}

func TestNativePostMessageRequiresString(t *testing.T) {
	s := newSandbox(t)
	_, err := s.Eval(context.Background(), "ReactNativeWebView.postMessage({a: 1})")
	assert.Error(t, err)
}

func TestWindowPostMessage(t *testing.T) {
	s := newSandbox(t)
	p := &posts{}
	s.OnPost(p.add)

	_, err := s.Eval(context.Background(), `
		var order = [];
		window.addEventListener('message', function (e) {
			ReactNativeWebView.postMessage(e.data.type + ':' + e.data.payload);
		});
		window.addEventListener('message', function () { throw new Error('listener fault'); });
		window.addEventListener('message', function (e) {
			ReactNativeWebView.postMessage('second:' + e.data.type);
		});
		window.postMessage({type: 'focus', payload: 'end'}, '*');
		order.push('after-post');
		ReactNativeWebView.postMessage('sync');
	`)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(p.get()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"sync", "focus:end", "second:focus"}, p.get())
}

func TestRemoveEventListener(t *testing.T) {
	s := newSandbox(t)
	p := &posts{}
	s.OnPost(p.add)

	_, err := s.Eval(context.Background(), `
		function h(e) { ReactNativeWebView.postMessage('removed'); }
		window.addEventListener('message', h);
		window.removeEventListener('message', h);
		window.addEventListener('message', function () { ReactNativeWebView.postMessage('kept'); });
		window.postMessage('x', '*');
	`)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(p.get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"kept"}, p.get())
}

func TestTimers(t *testing.T) {
	s := newSandbox(t)
	p := &posts{}
	s.OnPost(p.add)

	_, err := s.Eval(context.Background(), `
		var cancelled = setTimeout(function () { ReactNativeWebView.postMessage('cancelled'); }, 10);
		clearTimeout(cancelled);
		setTimeout(function (v) { ReactNativeWebView.postMessage('fired:' + v); }, 10, 'arg');
	`)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(p.get()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []string{"fired:arg"}, p.get())
}

func TestConsoleCapture(t *testing.T) {
	s := newSandbox(t)
	_, err := s.Eval(context.Background(), "console.log('hello', 1); console.warn('careful')")
	require.NoError(t, err)

	entries := s.Console()
	require.Len(t, entries, 2)
	assert.Equal(t, "log", entries[0].Level)
	assert.Equal(t, "hello 1", entries[0].Message)
	assert.Equal(t, "warn", entries[1].Level)
}

func TestLoadDocument(t *testing.T) {
	s := newSandbox(t)

	var seen any
	var loaded bool
	doc := Document{
		Before: "window.plugConfig = '{}'; window.whiteListPlugins = ['core'];",
		Program: func(vm *goja.Runtime) error {
			seen = vm.Get("whiteListPlugins").Export()
			return vm.Set("onLoaded", func() { loaded = true })
		},
		After: `(function () {
  var head = document.head || document.getElementsByTagName('head')[0],
    style = document.createElement('style');
  head.appendChild(style);
  style.type = 'text/css';
  style.appendChild(document.createTextNode('.a { color: red }'));
})();
window.addEventListener('load', function () {});
onLoaded();`,
	}
	require.NoError(t, s.Load(context.Background(), doc))

	assert.Equal(t, []any{"core"}, seen)
	assert.True(t, loaded)
	assert.Equal(t, []string{".a { color: red }"}, s.DOM().Styles())

	got, err := s.Eval(context.Background(), "document.getElementsByTagName('style')[0].type")
	require.NoError(t, err)
	assert.Equal(t, "text/css", got)

	changes := s.DOM().Changes()
	require.NotEmpty(t, changes)
	assert.Equal(t, DOMChange{Type: "append_child", Target: "head", Value: "style"}, changes[0])
}

func TestLoadProgramError(t *testing.T) {
	s := newSandbox(t)
	boom := errors.New("bundle failed")
	err := s.Load(context.Background(), Document{Program: func(*goja.Runtime) error { return boom }})
	assert.ErrorIs(t, err, boom)
}

func TestDoPanicBoundary(t *testing.T) {
	s := newSandbox(t)
	err := s.Do(context.Background(), func(*goja.Runtime) error { panic("go bug") })
	assert.ErrorIs(t, err, ErrPanic)

	_, err = s.Eval(context.Background(), "1")
	assert.NoError(t, err, "loop survives a panicking task")
}

func TestClose(t *testing.T) {
	s := newSandbox(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Inject("1"), ErrClosed)
	_, err := s.Eval(context.Background(), "1")
	assert.ErrorIs(t, err, ErrClosed)

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestCloseFromLoop(t *testing.T) {
	s := newSandbox(t)
	s.OnPost(func([]byte) { _ = s.Close() })

	require.NoError(t, s.Inject("ReactNativeWebView.postMessage('bye')"))
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
