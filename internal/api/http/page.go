package http

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/richbridge/internal/editor"
)

// glue stands in for the native web view: whatever the bridge posts goes
// up the socket, and every frame that comes down is evaluated.
const glue = `(function () {
  var proto = location.protocol === "https:" ? "wss:" : "ws:";
  var socket = new WebSocket(proto + "//" + location.host + "/ws");
  var backlog = [];
  window.ReactNativeWebView = {
    postMessage: function (data) {
      if (socket.readyState === 1) { socket.send(data); } else { backlog.push(data); }
    }
  };
  socket.onopen = function () {
    while (backlog.length) { socket.send(backlog.shift()); }
  };
  socket.onmessage = function (event) {
    try { (0, eval)(event.data); } catch (err) { console.error(err); }
  };
})();`

var pageTemplate = template.Must(template.New("editor").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Editor</title>
<script>{{.Before}}</script>
<script>{{.Glue}}</script>
</head>
<body>
<div id="root"></div>
<script src="{{.Bundle}}"></script>
<script>{{.After}}</script>
</body>
</html>
`))

type page struct {
	Before template.JS
	Glue   template.JS
	After  template.JS
	Bundle string
}

// renderPage renders the web view document of an editor built from the
// default spec.
func (h *Handlers) renderPage() ([]byte, error) {
	spec := h.specs.Default()
	ed, err := editor.New(spec.Descriptors(), spec.Editor)
	if err != nil {
		return nil, err
	}
	defer ed.Close()

	before, after, err := ed.BootstrapScripts()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, page{
		Before: template.JS(before),
		Glue:   template.JS(glue),
		After:  template.JS(after),
		Bundle: h.bundleURL,
	})
	return buf.Bytes(), err
}

// EditorPage serves the document a web view loads to host an editor.
func (h *Handlers) EditorPage(c *gin.Context) {
	body, err := h.renderPage()
	if err != nil {
		h.logger.Error("Failed to render editor page", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}
