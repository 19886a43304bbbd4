package engine

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

type mark struct {
	name  string
	attrs map[string]any
}

// cell is one document position: a text rune with its marks, or an atom.
type cell struct {
	r     rune
	atom  *Node
	marks []mark
}

type block struct {
	kind  string
	attrs map[string]any
}

type snapshot struct {
	cells []cell
	sel   Range
	block block
	align string
}

type registration struct {
	handle Handle
	plugin Plugin
	config json.RawMessage
}

// Memory is an in-memory Engine.
type Memory struct {
	mu sync.RWMutex

	plugins []registration
	byName  map[string]int
	state   map[int]any

	cells    []cell
	sel      Range
	stored   map[string]map[string]any
	block    block
	align    string
	editable bool
	focused  bool

	undo []snapshot
	redo []snapshot

	listeners    map[int]func()
	nextListener int

	policy *bluemonday.Policy
}

// NewMemory creates an empty, editable document.
func NewMemory() *Memory {
	return &Memory{
		byName:    make(map[string]int),
		state:     make(map[int]any),
		stored:    make(map[string]map[string]any),
		block:     block{kind: "paragraph"},
		editable:  true,
		listeners: make(map[int]func()),
		policy:    bluemonday.UGCPolicy(),
	}
}

// Register installs a plugin. Registering the same name twice is an error.
func (m *Memory) Register(p Plugin, config json.RawMessage) (Handle, error) {
	if p.Name == "" {
		return Handle{}, ErrEmptyPlugin
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byName[p.Name]; exists {
		return Handle{}, fmt.Errorf("%w: %s", ErrDuplicate, p.Name)
	}

	h := Handle{id: len(m.plugins) + 1, name: p.Name}
	m.plugins = append(m.plugins, registration{handle: h, plugin: p, config: config})
	m.byName[p.Name] = h.id
	return h, nil
}

// Plugins returns the registered plugins in registration order.
func (m *Memory) Plugins() []Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Plugin, len(m.plugins))
	for i, reg := range m.plugins {
		out[i] = reg.plugin
	}
	return out
}

// PluginConfig returns the configuration a plugin was registered with.
func (m *Memory) PluginConfig(h Handle) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reg, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	return reg.config, nil
}

// PluginState returns explicit state set through SetPluginState, or the
// computed suggestion state for suggestion plugins.
func (m *Memory) PluginState(h Handle) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reg, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	if st, ok := m.state[h.id]; ok {
		return st, nil
	}
	if reg.plugin.Kind == KindSuggestion {
		char, _ := reg.plugin.Options["char"].(string)
		return m.suggestion(char), nil
	}
	return nil, nil
}

// SetPluginState overrides the state of the plugin behind h.
func (m *Memory) SetPluginState(h Handle, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookup(h); err != nil {
		return err
	}
	m.state[h.id] = v
	return nil
}

func (m *Memory) lookup(h Handle) (registration, error) {
	if !h.Valid() || h.id > len(m.plugins) || m.plugins[h.id-1].handle != h {
		return registration{}, fmt.Errorf("%w: %q", ErrUnknownHandle, h.name)
	}
	return m.plugins[h.id-1], nil
}

// Exec runs a command and notifies update listeners on success.
func (m *Memory) Exec(cmd Command) error {
	m.mu.Lock()
	err := m.exec(cmd)
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	m.notify()
	return nil
}

func (m *Memory) exec(cmd Command) error {
	if !m.editable && mutates(cmd.Name) {
		return ErrReadOnly
	}

	switch cmd.Name {
	case CmdToggleMark:
		name, ok := cmd.Args.(string)
		if !ok || name == "" {
			return ErrInvalidArgs
		}
		if m.markActive(name) {
			m.removeMark(name)
		} else {
			m.addMark(mark{name: name})
		}

	case CmdSetMark:
		args, ok := cmd.Args.(MarkArgs)
		if !ok || args.Name == "" {
			return ErrInvalidArgs
		}
		m.removeMark(args.Name)
		m.addMark(mark{name: args.Name, attrs: copyAttrs(args.Attrs)})

	case CmdUnsetMark:
		name, ok := cmd.Args.(string)
		if !ok || name == "" {
			return ErrInvalidArgs
		}
		m.removeMark(name)

	case CmdToggleNode:
		args, ok := cmd.Args.(NodeArgs)
		if !ok || args.Type == "" {
			return ErrInvalidArgs
		}
		m.push()
		if m.block.kind == args.Type && attrsMatch(m.block.attrs, args.Attrs) {
			m.block = block{kind: "paragraph"}
		} else {
			m.block = block{kind: args.Type, attrs: copyAttrs(args.Attrs)}
		}

	case CmdSetTextAlign:
		align, ok := cmd.Args.(string)
		if !ok {
			return ErrInvalidArgs
		}
		switch align {
		case "left", "right", "center", "justify":
		default:
			return fmt.Errorf("%w: alignment %q", ErrInvalidArgs, align)
		}
		m.push()
		m.align = align

	case CmdUnsetTextAlign:
		m.push()
		m.align = ""

	case CmdInsertContent:
		nodes, err := m.toNodes(cmd.Args)
		if err != nil {
			return err
		}
		m.push()
		m.insert(m.sel, nodes)

	case CmdInsertContentAt:
		args, ok := cmd.Args.(InsertAt)
		if !ok {
			return ErrInvalidArgs
		}
		m.push()
		m.insert(args.Range, args.Nodes)

	case CmdSetContent:
		content, ok := cmd.Args.(string)
		if !ok {
			return ErrInvalidArgs
		}
		m.push()
		return m.setContent(content)

	case CmdSetEditable:
		editable, ok := cmd.Args.(bool)
		if !ok {
			return ErrInvalidArgs
		}
		m.editable = editable

	case CmdUndo:
		if len(m.undo) == 0 {
			return nil
		}
		m.redo = append(m.redo, m.snapshot())
		m.restore(m.undo[len(m.undo)-1])
		m.undo = m.undo[:len(m.undo)-1]

	case CmdRedo:
		if len(m.redo) == 0 {
			return nil
		}
		m.undo = append(m.undo, m.snapshot())
		m.restore(m.redo[len(m.redo)-1])
		m.redo = m.redo[:len(m.redo)-1]

	default:
		return ErrUnknownCommand
	}
	return nil
}

func mutates(name string) bool {
	switch name {
	case CmdSetEditable, CmdUndo, CmdRedo:
		return false
	}
	return true
}

// Can reports whether cmd would currently do something.
func (m *Memory) Can(cmd Command) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch cmd.Name {
	case CmdUndo:
		return len(m.undo) > 0
	case CmdRedo:
		return len(m.redo) > 0
	case CmdSetEditable:
		return true
	}
	return m.editable
}

// IsActive reports whether a mark or block type is active at the selection.
// An empty name with attrs checks block attributes such as textAlign.
func (m *Memory) IsActive(name string, attrs map[string]any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if name == "" {
		if align, ok := attrs["textAlign"]; ok {
			return fmt.Sprint(align) == m.align
		}
		return false
	}
	if name == m.block.kind {
		return attrsMatch(m.block.attrs, attrs)
	}
	if !m.markActive(name) {
		return false
	}
	return attrsMatch(m.markAttrs(name), attrs)
}

// Attributes returns the attributes of the active mark or block named name.
func (m *Memory) Attributes(name string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if name == m.block.kind {
		return copyAttrs(m.block.attrs)
	}
	if !m.markActive(name) {
		return nil
	}
	return copyAttrs(m.markAttrs(name))
}

// Focus focuses the document and moves the selection to pos: "start",
// "end", "all" or a numeric position.
func (m *Memory) Focus(pos string) error {
	m.mu.Lock()
	end := len(m.cells)
	switch pos {
	case "", "end":
		m.sel = Range{From: end, To: end}
	case "start":
		m.sel = Range{}
	case "all":
		m.sel = Range{From: 0, To: end}
	default:
		n, err := strconv.Atoi(pos)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("%w: focus position %q", ErrInvalidArgs, pos)
		}
		n = clamp(n, 0, end)
		m.sel = Range{From: n, To: n}
	}
	m.focused = true
	m.mu.Unlock()

	m.notify()
	return nil
}

// Blur removes focus.
func (m *Memory) Blur() error {
	m.mu.Lock()
	m.focused = false
	m.mu.Unlock()

	m.notify()
	return nil
}

// Focused reports whether the document has focus.
func (m *Memory) Focused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.focused
}

// Editable reports whether content changes are accepted.
func (m *Memory) Editable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.editable
}

// Selection returns the current selection.
func (m *Memory) Selection() Range {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sel
}

// TextBetween returns the text of positions [from, to).
func (m *Memory) TextBetween(from, to int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from = clamp(from, 0, len(m.cells))
	to = clamp(to, from, len(m.cells))

	var sb strings.Builder
	for _, c := range m.cells[from:to] {
		if c.atom != nil {
			sb.WriteString(m.atomText(c.atom))
			continue
		}
		sb.WriteRune(c.r)
	}
	return sb.String()
}

// SetContent replaces the document with sanitized HTML.
func (m *Memory) SetContent(content string) error {
	m.mu.Lock()
	m.push()
	err := m.setContent(content)
	m.mu.Unlock()

	if err != nil {
		return err
	}
	m.notify()
	return nil
}

// HTML renders the document.
func (m *Memory) HTML() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.render()
}

// Text returns the document's text content.
func (m *Memory) Text() string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(m.HTML()))
	if err != nil {
		return ""
	}
	return doc.Text()
}

// OnUpdate registers fn to run after each change.
func (m *Memory) OnUpdate(fn func()) func() {
	m.mu.Lock()
	m.nextListener++
	id := m.nextListener
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Memory) notify() {
	m.mu.RLock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// ---- document editing (callers hold mu) ----

func (m *Memory) push() {
	m.undo = append(m.undo, m.snapshot())
	m.redo = nil
}

func (m *Memory) snapshot() snapshot {
	return snapshot{
		cells: append([]cell(nil), m.cells...),
		sel:   m.sel,
		block: block{kind: m.block.kind, attrs: copyAttrs(m.block.attrs)},
		align: m.align,
	}
}

func (m *Memory) restore(s snapshot) {
	m.cells = s.cells
	m.sel = s.sel
	m.block = s.block
	m.align = s.align
}

func (m *Memory) insert(rng Range, nodes []Node) {
	from := clamp(rng.From, 0, len(m.cells))
	to := clamp(rng.To, from, len(m.cells))

	marks := m.storedMarks()
	var added []cell
	for _, n := range nodes {
		if n.Type == "text" || n.Type == "" {
			for _, r := range n.Text {
				added = append(added, cell{r: r, marks: marks})
			}
			continue
		}
		atom := Node{Type: n.Type, Attrs: copyAttrs(n.Attrs)}
		added = append(added, cell{atom: &atom})
	}

	cells := make([]cell, 0, len(m.cells)-(to-from)+len(added))
	cells = append(cells, m.cells[:from]...)
	cells = append(cells, added...)
	cells = append(cells, m.cells[to:]...)
	m.cells = cells

	end := from + len(added)
	m.sel = Range{From: end, To: end}
}

func (m *Memory) setContent(content string) error {
	text, err := m.plainText(content)
	if err != nil {
		return err
	}
	m.cells = nil
	for _, r := range text {
		m.cells = append(m.cells, cell{r: r})
	}
	m.sel = Range{From: len(m.cells), To: len(m.cells)}
	return nil
}

func (m *Memory) toNodes(args any) ([]Node, error) {
	switch v := args.(type) {
	case string:
		text, err := m.plainText(v)
		if err != nil {
			return nil, err
		}
		return []Node{{Type: "text", Text: text}}, nil
	case Node:
		return []Node{v}, nil
	case []Node:
		return v, nil
	}
	return nil, ErrInvalidArgs
}

// plainText sanitizes markup and extracts its text.
func (m *Memory) plainText(markup string) (string, error) {
	clean := m.policy.Sanitize(markup)
	// Wrapped so leading whitespace survives the parser's pre-body modes.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + clean + "</div>"))
	if err != nil {
		return "", fmt.Errorf("parse content: %w", err)
	}
	return doc.Find("body").Text(), nil
}

func (m *Memory) markActive(name string) bool {
	if m.sel.From == m.sel.To {
		_, ok := m.stored[name]
		return ok
	}
	for _, c := range m.cells[m.sel.From:m.sel.To] {
		if c.atom == nil && !hasMark(c.marks, name) {
			return false
		}
	}
	return true
}

func (m *Memory) markAttrs(name string) map[string]any {
	if attrs, ok := m.stored[name]; ok {
		return attrs
	}
	if m.sel.From < m.sel.To {
		for _, mk := range m.cells[m.sel.From].marks {
			if mk.name == name {
				return mk.attrs
			}
		}
	}
	return nil
}

func (m *Memory) addMark(mk mark) {
	if mk.attrs == nil {
		mk.attrs = map[string]any{}
	}
	m.stored[mk.name] = mk.attrs
	if m.sel.From == m.sel.To {
		return
	}
	m.push()
	for i := m.sel.From; i < m.sel.To; i++ {
		if m.cells[i].atom != nil {
			continue
		}
		m.cells[i].marks = append(withoutMark(m.cells[i].marks, mk.name), mk)
	}
}

func (m *Memory) removeMark(name string) {
	delete(m.stored, name)
	if m.sel.From == m.sel.To {
		return
	}
	m.push()
	for i := m.sel.From; i < m.sel.To; i++ {
		m.cells[i].marks = withoutMark(m.cells[i].marks, name)
	}
}

func (m *Memory) storedMarks() []mark {
	if len(m.stored) == 0 {
		return nil
	}
	marks := make([]mark, 0, len(m.stored))
	for name, attrs := range m.stored {
		marks = append(marks, mark{name: name, attrs: attrs})
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].name < marks[j].name })
	return marks
}

func (m *Memory) suggestion(char string) SuggestionState {
	st := SuggestionState{Char: char}
	if char == "" || m.sel.From != m.sel.To {
		return st
	}
	trigger := []rune(char)[0]
	for i := m.sel.To - 1; i >= 0; i-- {
		c := m.cells[i]
		if c.atom != nil || unicode.IsSpace(c.r) {
			return st
		}
		if c.r != trigger {
			continue
		}
		if i > 0 && m.cells[i-1].atom == nil && !unicode.IsSpace(m.cells[i-1].r) {
			return st
		}
		query := make([]rune, 0, m.sel.To-i-1)
		for _, qc := range m.cells[i+1 : m.sel.To] {
			query = append(query, qc.r)
		}
		st.Active = true
		st.Query = string(query)
		st.Range = Range{From: i, To: m.sel.To}
		return st
	}
	return st
}

// ---- rendering ----

func (m *Memory) render() string {
	tag := "p"
	switch m.block.kind {
	case "heading":
		level, _ := strconv.Atoi(fmt.Sprint(m.block.attrs["level"]))
		tag = fmt.Sprintf("h%d", clamp(level, 1, 6))
	}

	var sb strings.Builder
	if m.block.kind == "blockquote" {
		sb.WriteString("<blockquote>")
	}
	sb.WriteString("<" + tag)
	if m.align != "" {
		fmt.Fprintf(&sb, ` style="text-align: %s"`, m.align)
	}
	sb.WriteString(">")

	for i := 0; i < len(m.cells); {
		c := m.cells[i]
		if c.atom != nil {
			sb.WriteString(m.renderAtom(c.atom))
			i++
			continue
		}
		j := i
		var run strings.Builder
		for j < len(m.cells) && m.cells[j].atom == nil && sameMarks(m.cells[j].marks, c.marks) {
			run.WriteRune(m.cells[j].r)
			j++
		}
		sb.WriteString(openMarks(c.marks))
		sb.WriteString(html.EscapeString(run.String()))
		sb.WriteString(closeMarks(c.marks))
		i = j
	}

	sb.WriteString("</" + tag + ">")
	if m.block.kind == "blockquote" {
		sb.WriteString("</blockquote>")
	}
	return sb.String()
}

func (m *Memory) renderAtom(n *Node) string {
	attr := func(key string) string { return html.EscapeString(fmt.Sprint(n.Attrs[key])) }

	switch n.Type {
	case "youtube":
		return fmt.Sprintf(`<div data-youtube-video=""><iframe src="%s" width="%s" height="%s"></iframe></div>`,
			attr("src"), attr("width"), attr("height"))
	case "image":
		var sb strings.Builder
		fmt.Fprintf(&sb, `<img src="%s"`, attr("src"))
		for _, key := range []string{"alt", "title"} {
			if _, ok := n.Attrs[key]; ok {
				fmt.Fprintf(&sb, ` %s="%s"`, key, attr(key))
			}
		}
		sb.WriteString(">")
		return sb.String()
	case "hardBreak":
		return "<br>"
	}
	return fmt.Sprintf(`<span data-type="%s" data-id="%s" data-label="%s">%s</span>`,
		html.EscapeString(n.Type), attr("id"), attr("label"), html.EscapeString(m.atomText(n)))
}

func (m *Memory) atomText(n *Node) string {
	switch n.Type {
	case "youtube", "image":
		return ""
	case "hardBreak":
		return "\n"
	}
	var char string
	if idx, ok := m.byName[n.Type]; ok {
		char, _ = m.plugins[idx-1].plugin.Options["char"].(string)
	}
	label, _ := n.Attrs["label"].(string)
	if label == "" {
		label = fmt.Sprint(n.Attrs["id"])
	}
	return char + label
}

func openMarks(marks []mark) string {
	var sb strings.Builder
	for _, mk := range marks {
		switch mk.name {
		case "bold":
			sb.WriteString("<strong>")
		case "italic":
			sb.WriteString("<em>")
		case "underline":
			sb.WriteString("<u>")
		case "strike":
			sb.WriteString("<s>")
		case "code":
			sb.WriteString("<code>")
		case "link":
			fmt.Fprintf(&sb, `<a href="%s" target="_blank" rel="noopener noreferrer nofollow">`,
				html.EscapeString(fmt.Sprint(mk.attrs["href"])))
		case "textStyle":
			fmt.Fprintf(&sb, `<span style="color: %s">`, html.EscapeString(fmt.Sprint(mk.attrs["color"])))
		case "highlight":
			if color, ok := mk.attrs["color"]; ok {
				fmt.Fprintf(&sb, `<mark data-color="%[1]s" style="background-color: %[1]s">`, html.EscapeString(fmt.Sprint(color)))
			} else {
				sb.WriteString("<mark>")
			}
		default:
			fmt.Fprintf(&sb, `<span data-mark="%s">`, html.EscapeString(mk.name))
		}
	}
	return sb.String()
}

func closeMarks(marks []mark) string {
	var sb strings.Builder
	for i := len(marks) - 1; i >= 0; i-- {
		switch marks[i].name {
		case "bold":
			sb.WriteString("</strong>")
		case "italic":
			sb.WriteString("</em>")
		case "underline":
			sb.WriteString("</u>")
		case "strike":
			sb.WriteString("</s>")
		case "code":
			sb.WriteString("</code>")
		case "link":
			sb.WriteString("</a>")
		case "highlight":
			sb.WriteString("</mark>")
		default:
			sb.WriteString("</span>")
		}
	}
	return sb.String()
}

// ---- helpers ----

func hasMark(marks []mark, name string) bool {
	for _, mk := range marks {
		if mk.name == name {
			return true
		}
	}
	return false
}

func withoutMark(marks []mark, name string) []mark {
	out := make([]mark, 0, len(marks))
	for _, mk := range marks {
		if mk.name != name {
			out = append(out, mk)
		}
	}
	return out
}

func sameMarks(a, b []mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].name != b[i].name || !attrsMatch(a[i].attrs, b[i].attrs) || !attrsMatch(b[i].attrs, a[i].attrs) {
			return false
		}
	}
	return true
}

// attrsMatch reports whether have contains every key of want with an equal
// printed value. Numbers compare across int and float representations.
func attrsMatch(have, want map[string]any) bool {
	for k, v := range want {
		got, ok := have[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

func copyAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
