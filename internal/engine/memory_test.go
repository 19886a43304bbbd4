package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegister(t *testing.T) {
	m := NewMemory()

	h, err := m.Register(Plugin{Name: "bold", Kind: KindMark}, nil)
	require.NoError(t, err)
	assert.True(t, h.Valid())
	assert.Equal(t, "bold", h.Name())

	_, err = m.Register(Plugin{Name: "bold", Kind: KindMark}, nil)
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = m.Register(Plugin{}, nil)
	assert.ErrorIs(t, err, ErrEmptyPlugin)

	_, err = m.PluginState(Handle{})
	assert.ErrorIs(t, err, ErrUnknownHandle)

	other := NewMemory()
	_, err = other.PluginState(h)
	assert.ErrorIs(t, err, ErrUnknownHandle)

	names := []string{}
	for _, p := range m.Plugins() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"bold"}, names)
}

func TestMemoryPluginState(t *testing.T) {
	m := NewMemory()
	h, err := m.Register(Plugin{Name: "counter"}, []byte(`{"step":2}`))
	require.NoError(t, err)

	st, err := m.PluginState(h)
	require.NoError(t, err)
	assert.Nil(t, st)

	require.NoError(t, m.SetPluginState(h, 3))
	st, err = m.PluginState(h)
	require.NoError(t, err)
	assert.Equal(t, 3, st)

	cfg, err := m.PluginConfig(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":2}`, string(cfg))
}

func TestMemoryToggleMark(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Focus("end"))

	assert.False(t, m.IsActive("bold", nil))
	require.NoError(t, m.Exec(Command{Name: CmdToggleMark, Args: "bold"}))
	assert.True(t, m.IsActive("bold", nil))

	require.NoError(t, m.Exec(Command{Name: CmdInsertContent, Args: "hi"}))
	assert.Equal(t, "<p><strong>hi</strong></p>", m.HTML())

	require.NoError(t, m.Exec(Command{Name: CmdToggleMark, Args: "bold"}))
	assert.False(t, m.IsActive("bold", nil))
	require.NoError(t, m.Exec(Command{Name: CmdInsertContent, Args: " there"}))
	assert.Equal(t, "<p><strong>hi</strong> there</p>", m.HTML())
}

func TestMemoryMarkOnSelection(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.SetContent("<p>hello</p>"))
	require.NoError(t, m.Focus("all"))

	require.NoError(t, m.Exec(Command{Name: CmdToggleMark, Args: "italic"}))
	assert.True(t, m.IsActive("italic", nil))
	assert.Equal(t, "<p><em>hello</em></p>", m.HTML())

	require.NoError(t, m.Exec(Command{Name: CmdSetMark, Args: MarkArgs{Name: "link", Attrs: map[string]any{"href": "https://example.com"}}}))
	assert.True(t, m.IsActive("link", map[string]any{"href": "https://example.com"}))
	assert.Equal(t, "https://example.com", m.Attributes("link")["href"])

	require.NoError(t, m.Exec(Command{Name: CmdUnsetMark, Args: "link"}))
	assert.False(t, m.IsActive("link", nil))
}

func TestMemoryBlocks(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.SetContent("Title"))

	require.NoError(t, m.Exec(Command{Name: CmdToggleNode, Args: NodeArgs{Type: "heading", Attrs: map[string]any{"level": 2}}}))
	assert.True(t, m.IsActive("heading", map[string]any{"level": 2}))
	assert.False(t, m.IsActive("heading", map[string]any{"level": 1}))
	assert.Equal(t, "<h2>Title</h2>", m.HTML())

	require.NoError(t, m.Exec(Command{Name: CmdSetTextAlign, Args: "center"}))
	assert.True(t, m.IsActive("", map[string]any{"textAlign": "center"}))
	assert.Equal(t, `<h2 style="text-align: center">Title</h2>`, m.HTML())

	err := m.Exec(Command{Name: CmdSetTextAlign, Args: "diagonal"})
	assert.ErrorIs(t, err, ErrInvalidArgs)

	require.NoError(t, m.Exec(Command{Name: CmdUnsetTextAlign}))
	require.NoError(t, m.Exec(Command{Name: CmdToggleNode, Args: NodeArgs{Type: "heading", Attrs: map[string]any{"level": 2}}}))
	assert.Equal(t, "<p>Title</p>", m.HTML())

	require.NoError(t, m.Exec(Command{Name: CmdToggleNode, Args: NodeArgs{Type: "blockquote"}}))
	assert.Equal(t, "<blockquote><p>Title</p></blockquote>", m.HTML())
}

func TestMemoryUndoRedo(t *testing.T) {
	m := NewMemory()
	assert.False(t, m.Can(Command{Name: CmdUndo}))

	require.NoError(t, m.Exec(Command{Name: CmdInsertContent, Args: "one"}))
	require.NoError(t, m.Exec(Command{Name: CmdInsertContent, Args: " two"}))
	assert.Equal(t, "one two", m.Text())

	require.NoError(t, m.Exec(Command{Name: CmdUndo}))
	assert.Equal(t, "one", m.Text())
	assert.True(t, m.Can(Command{Name: CmdRedo}))

	require.NoError(t, m.Exec(Command{Name: CmdRedo}))
	assert.Equal(t, "one two", m.Text())
	assert.False(t, m.Can(Command{Name: CmdRedo}))
}

func TestMemoryReadOnly(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Exec(Command{Name: CmdSetEditable, Args: false}))
	assert.False(t, m.Editable())
	assert.False(t, m.Can(Command{Name: CmdInsertContent}))

	err := m.Exec(Command{Name: CmdInsertContent, Args: "x"})
	assert.ErrorIs(t, err, ErrReadOnly)

	require.NoError(t, m.Exec(Command{Name: CmdSetEditable, Args: true}))
	require.NoError(t, m.Exec(Command{Name: CmdInsertContent, Args: "x"}))
}

func TestMemoryUnknownCommand(t *testing.T) {
	err := NewMemory().Exec(Command{Name: "explode"})
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestMemoryFocus(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.SetContent("abcdef"))

	tests := []struct {
		pos  string
		want Range
	}{
		{"start", Range{0, 0}},
		{"end", Range{6, 6}},
		{"", Range{6, 6}},
		{"all", Range{0, 6}},
		{"3", Range{3, 3}},
		{"99", Range{6, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.pos, func(t *testing.T) {
			require.NoError(t, m.Focus(tt.pos))
			assert.Equal(t, tt.want, m.Selection())
			assert.True(t, m.Focused())
		})
	}

	assert.ErrorIs(t, m.Focus("middle"), ErrInvalidArgs)

	require.NoError(t, m.Blur())
	assert.False(t, m.Focused())
}

func TestMemorySanitizesContent(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.SetContent(`<p>safe<script>alert(1)</script></p>`))
	assert.Equal(t, "safe", m.Text())
	assert.NotContains(t, m.HTML(), "script")
}

func TestMemorySuggestion(t *testing.T) {
	m := NewMemory()
	h, err := m.Register(Plugin{Name: "mention", Kind: KindSuggestion, Options: map[string]any{"char": "@"}}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Exec(Command{Name: CmdInsertContent, Args: "hi @jo"}))

	st, err := m.PluginState(h)
	require.NoError(t, err)
	assert.Equal(t, SuggestionState{Active: true, Char: "@", Query: "jo", Range: Range{3, 6}}, st)

	require.NoError(t, m.Exec(Command{Name: CmdInsertContentAt, Args: InsertAt{
		Range: Range{3, 6},
		Nodes: []Node{
			{Type: "mention", Attrs: map[string]any{"id": "u1", "label": "john"}},
			{Type: "text", Text: " "},
		},
	}}))
	assert.Equal(t, `<p>hi <span data-type="mention" data-id="u1" data-label="john">@john</span> </p>`, m.HTML())
	assert.Equal(t, "hi @john ", m.Text())
	assert.Equal(t, "@john", m.TextBetween(3, 4))

	st, err = m.PluginState(h)
	require.NoError(t, err)
	assert.False(t, st.(SuggestionState).Active)

	require.NoError(t, m.Exec(Command{Name: CmdInsertContent, Args: "mail@x"}))
	st, err = m.PluginState(h)
	require.NoError(t, err)
	assert.False(t, st.(SuggestionState).Active)
}

func TestMemoryYoutubeAtom(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Exec(Command{Name: CmdInsertContent, Args: Node{
		Type:  "youtube",
		Attrs: map[string]any{"src": "https://youtu.be/x", "width": 640, "height": 480},
	}}))
	assert.Equal(t, `<p><div data-youtube-video=""><iframe src="https://youtu.be/x" width="640" height="480"></iframe></div></p>`, m.HTML())
}

func TestMemoryColorAndHighlight(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Exec(Command{Name: CmdInsertContent, Args: "ab"}))
	require.NoError(t, m.Focus("all"))

	require.NoError(t, m.Exec(Command{Name: CmdSetMark, Args: MarkArgs{Name: "textStyle", Attrs: map[string]any{"color": "#ff0000"}}}))
	assert.Equal(t, `<p><span style="color: #ff0000">ab</span></p>`, m.HTML())
	assert.True(t, m.IsActive("textStyle", map[string]any{"color": "#ff0000"}))

	require.NoError(t, m.Exec(Command{Name: CmdUnsetMark, Args: "textStyle"}))
	require.NoError(t, m.Exec(Command{Name: CmdToggleMark, Args: "highlight"}))
	assert.Equal(t, `<p><mark>ab</mark></p>`, m.HTML())

	require.NoError(t, m.Exec(Command{Name: CmdSetMark, Args: MarkArgs{Name: "highlight", Attrs: map[string]any{"color": "yellow"}}}))
	assert.Equal(t, `<p><mark data-color="yellow" style="background-color: yellow">ab</mark></p>`, m.HTML())
}

func TestMemoryImageAndHardBreak(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Exec(Command{Name: CmdInsertContent, Args: []Node{
		{Type: "text", Text: "a"},
		{Type: "hardBreak"},
		{Type: "image", Attrs: map[string]any{"src": "https://x.test/a.png", "alt": "pic"}},
	}}))
	assert.Equal(t, `<p>a<br><img src="https://x.test/a.png" alt="pic"></p>`, m.HTML())
	assert.Equal(t, "a\n", m.TextBetween(0, 3))
}

func TestMemoryOnUpdate(t *testing.T) {
	m := NewMemory()
	var calls int
	remove := m.OnUpdate(func() { calls++ })

	require.NoError(t, m.Exec(Command{Name: CmdInsertContent, Args: "a"}))
	require.NoError(t, m.Focus("start"))
	assert.Equal(t, 2, calls)

	_ = m.Exec(Command{Name: "nope"})
	assert.Equal(t, 2, calls)

	remove()
	require.NoError(t, m.Blur())
	assert.Equal(t, 2, calls)
}
