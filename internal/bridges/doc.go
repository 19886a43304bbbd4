/*
Package bridges provides the concrete editor extensions.

Each constructor returns a fresh descriptor that declares its engine
plugin, the state keys it reports, the instance methods it adds to the
host editor and the commands it serves inside the sandbox. The same
descriptor list is handed to the host editor and to the sandbox runtime.

# Available Bridges

  - Core: blur, setContent, setEditable, requestContent; isReady, isFocused, isEditable
  - Bold, Italic, Underline, Strike, Code: toggleX; isXActive, canToggleX
  - History: undo, redo; canUndo, canRedo
  - Heading: toggleHeading(level); headingLevel
  - Blockquote: toggleBlockquote; isBlockquoteActive, canToggleBlockquote
  - TextAlign: setTextAlign(align), unSetTextAlign; isTextAlign{Left,Right,Center,Justify}
  - Link: setLink(href), an empty href removes the link; isLinkActive, activeLink, canSetLink
  - Color: setColor(color), unsetColor; activeColor
  - Highlight: toggleHighlight, setHighlight(color), unsetHighlight; isHighlightActive, canToggleHighlight, activeHighlight
  - Image: setImage(src or {src, alt, title})
  - HardBreak: setHardBreak
  - Placeholder: configuration and CSS only
  - Mention, HashTag: insertMention, insertHashTag; queryMention, queryHashTag
  - Youtube: insertYoutube

StarterKit bundles the general-purpose bridges. Mention, HashTag and
Youtube are opt-in.
*/
package bridges
