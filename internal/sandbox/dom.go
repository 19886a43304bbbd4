package sandbox

import (
	"strings"
	"sync"
)

// DOM is a lightweight document: an html root with head and body.
type DOM struct {
	root    *Element
	head    *Element
	body    *Element
	changes []DOMChange
	mu      sync.RWMutex
}

// Element represents a DOM element or, with tag "#text", a text node.
type Element struct {
	TagName     string
	ID          string
	ClassName   string
	TextContent string
	Attributes  map[string]string
	Children    []*Element
	Parent      *Element
}

// TextTag is the tag name of text nodes.
const TextTag = "#text"

// NewDOM creates an empty document
func NewDOM() *DOM {
	d := &DOM{root: NewElement("html")}
	d.head = NewElement("head")
	d.body = NewElement("body")
	d.root.AddElement(d.head)
	d.root.AddElement(d.body)
	return d
}

// NewElement creates a detached element
func NewElement(tag string) *Element {
	return &Element{
		TagName:    strings.ToLower(tag),
		Attributes: make(map[string]string),
	}
}

// NewText creates a detached text node
func NewText(text string) *Element {
	return &Element{TagName: TextTag, TextContent: text, Attributes: make(map[string]string)}
}

// Head returns the head element
func (d *DOM) Head() *Element { return d.head }

// Body returns the body element
func (d *DOM) Body() *Element { return d.body }

// Query finds elements by selector: #id, .class or a tag name
func (d *DOM) Query(selector string) []*Element {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch {
	case strings.HasPrefix(selector, "#"):
		if elem := findByID(d.root, strings.TrimPrefix(selector, "#")); elem != nil {
			return []*Element{elem}
		}
		return nil
	case strings.HasPrefix(selector, "."):
		return findByClass(d.root, strings.TrimPrefix(selector, "."))
	default:
		return findByTag(d.root, selector)
	}
}

// Styles returns the text of every style element in the head, in order
func (d *DOM) Styles() []string {
	var out []string
	for _, elem := range d.Query("style") {
		d.mu.RLock()
		out = append(out, elem.Text())
		d.mu.RUnlock()
	}
	return out
}

// Changes returns accumulated DOM changes
func (d *DOM) Changes() []DOMChange {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]DOMChange{}, d.changes...)
}

// Append attaches child to parent and records the change
func (d *DOM) Append(parent, child *Element) {
	d.mu.Lock()
	defer d.mu.Unlock()

	child.Remove()
	parent.AddElement(child)
	d.changes = append(d.changes, DOMChange{Type: "append_child", Target: parent.TagName, Value: child.TagName})
}

// SetAttribute sets an attribute and records the change
func (d *DOM) SetAttribute(elem *Element, name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch name {
	case "id":
		elem.ID = value
	case "class":
		elem.ClassName = value
	}
	elem.Attributes[name] = value
	d.changes = append(d.changes, DOMChange{Type: "set_attribute", Target: elem.TagName, Value: name + "=" + value})
}

// SetText replaces the element's children with text
func (d *DOM) SetText(elem *Element, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, child := range elem.Children {
		child.Parent = nil
	}
	elem.Children = nil
	if elem.TagName == TextTag {
		elem.TextContent = text
	} else if text != "" {
		elem.AddElement(NewText(text))
	}
	d.changes = append(d.changes, DOMChange{Type: "set_text", Target: elem.TagName, Value: text})
}

// GetAttribute retrieves attribute value
func (e *Element) GetAttribute(name string) string {
	return e.Attributes[name]
}

// Text returns the concatenated text of the element and its descendants
func (e *Element) Text() string {
	if e.TagName == TextTag {
		return e.TextContent
	}
	var sb strings.Builder
	for _, child := range e.Children {
		sb.WriteString(child.Text())
	}
	return sb.String()
}

// AddElement adds a child element
func (e *Element) AddElement(child *Element) {
	child.Parent = e
	e.Children = append(e.Children, child)
}

// Remove removes element from parent
func (e *Element) Remove() {
	if e.Parent == nil {
		return
	}
	children := e.Parent.Children[:0]
	for _, child := range e.Parent.Children {
		if child != e {
			children = append(children, child)
		}
	}
	e.Parent.Children = children
	e.Parent = nil
}

func findByID(elem *Element, id string) *Element {
	if elem.ID == id && id != "" {
		return elem
	}
	for _, child := range elem.Children {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

func findByClass(elem *Element, class string) []*Element {
	var result []*Element
	for _, c := range strings.Fields(elem.ClassName) {
		if c == class {
			result = append(result, elem)
			break
		}
	}
	for _, child := range elem.Children {
		result = append(result, findByClass(child, class)...)
	}
	return result
}

func findByTag(elem *Element, tag string) []*Element {
	var result []*Element
	if strings.EqualFold(elem.TagName, tag) {
		result = append(result, elem)
	}
	for _, child := range elem.Children {
		result = append(result, findByTag(child, tag)...)
	}
	return result
}
