package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDOMQuery(t *testing.T) {
	d := NewDOM()
	div := NewElement("DIV")
	d.Append(d.Body(), div)
	d.SetAttribute(div, "id", "editor")
	d.SetAttribute(div, "class", "ProseMirror focused")
	d.SetText(div, "hello")

	require.Len(t, d.Query("#editor"), 1)
	assert.Same(t, div, d.Query("#editor")[0])
	assert.Len(t, d.Query(".focused"), 1)
	assert.Empty(t, d.Query(".Prose"))
	assert.Len(t, d.Query("div"), 1)
	assert.Empty(t, d.Query("#missing"))
	assert.Equal(t, "hello", div.Text())

	d.SetText(div, "")
	assert.Empty(t, div.Children)
}

func TestElementRemove(t *testing.T) {
	d := NewDOM()
	a, b := NewElement("p"), NewElement("p")
	d.Append(d.Body(), a)
	d.Append(d.Body(), b)

	// Re-appending moves the node.
	d.Append(d.Head(), a)
	assert.Equal(t, []*Element{b}, d.Body().Children)
	assert.Same(t, d.Head(), a.Parent)

	a.Remove()
	assert.Nil(t, a.Parent)
	assert.Empty(t, d.Head().Children)
}
