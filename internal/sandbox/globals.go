package sandbox

import (
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/richbridge/internal/logging"
)

// setupGlobals configures the window, console, timers and document
func (s *Sandbox) setupGlobals() error {
	vm := s.vm

	// Remove dangerous globals
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	window := vm.GlobalObject()
	globals := map[string]any{
		"window":              window,
		"self":                window,
		"addEventListener":    s.addEventListener,
		"removeEventListener": s.removeEventListener,
		"postMessage":         s.postMessage,
		"setTimeout":          s.setTimeout,
		"clearTimeout":        s.clearTimeout,
		"setInterval":         func(goja.FunctionCall) goja.Value { return goja.Undefined() },
	}
	for name, v := range globals {
		if err := vm.Set(name, v); err != nil {
			return err
		}
	}

	webView := vm.NewObject()
	if err := webView.Set("postMessage", s.nativePostMessage); err != nil {
		return err
	}
	if err := vm.Set("ReactNativeWebView", webView); err != nil {
		return err
	}

	// Setup console if enabled
	if s.config.EnableConsole {
		console := vm.NewObject()
		for _, level := range []string{"log", "info", "warn", "error", "debug"} {
			if err := console.Set(level, s.makeConsoleFunc(level)); err != nil {
				return err
			}
		}
		if err := vm.Set("console", console); err != nil {
			return err
		}
	}

	if s.dom != nil {
		return s.injectDOM()
	}
	return nil
}

// makeConsoleFunc creates a console function that records and logs
func (s *Sandbox) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		s.consoleMu.Lock()
		s.console = append(s.console, LogEntry{Level: level, Message: msg, Time: time.Now()})
		s.consoleMu.Unlock()

		if ce := s.logger.Check(logging.ConsoleLevel(level), msg); ce != nil {
			ce.Write(zap.String("console", level))
		}
		return goja.Undefined()
	}
}

func (s *Sandbox) addEventListener(call goja.FunctionCall) goja.Value {
	typ := call.Argument(0).String()
	fn := call.Argument(1)
	if _, ok := goja.AssertFunction(fn); !ok {
		panic(s.vm.NewTypeError("addEventListener: listener is not a function"))
	}
	s.listeners[typ] = append(s.listeners[typ], fn)
	return goja.Undefined()
}

func (s *Sandbox) removeEventListener(call goja.FunctionCall) goja.Value {
	typ := call.Argument(0).String()
	fn := call.Argument(1)
	kept := s.listeners[typ][:0]
	for _, l := range s.listeners[typ] {
		if !l.SameAs(fn) {
			kept = append(kept, l)
		}
	}
	s.listeners[typ] = kept
	return goja.Undefined()
}

// postMessage delivers data to message listeners in a later task
func (s *Sandbox) postMessage(call goja.FunctionCall) goja.Value {
	data := call.Argument(0)
	err := s.enqueue(task{label: "message", fn: func() error {
		event := s.vm.NewObject()
		_ = event.Set("type", "message")
		_ = event.Set("data", data)
		_ = event.Set("origin", "*")
		s.fire("message", event)
		return nil
	}})
	if err != nil {
		s.logger.Debug("Dropping window message", zap.Error(err))
	}
	return goja.Undefined()
}

// fire runs every listener for typ; a throwing listener does not stop the rest
func (s *Sandbox) fire(typ string, event *goja.Object) {
	for _, l := range append([]goja.Value(nil), s.listeners[typ]...) {
		fn, _ := goja.AssertFunction(l)
		if _, err := fn(goja.Undefined(), event); err != nil {
			s.logger.Warn("Event listener failed", zap.String("event", typ), zap.Error(err))
		}
	}
}

// nativePostMessage is window.ReactNativeWebView.postMessage: strings only
func (s *Sandbox) nativePostMessage(call goja.FunctionCall) goja.Value {
	arg := call.Argument(0)
	if _, ok := arg.Export().(string); !ok {
		panic(s.vm.NewTypeError("ReactNativeWebView.postMessage: argument must be a string"))
	}
	s.post([]byte(arg.String()))
	return goja.Undefined()
}

func (s *Sandbox) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(s.vm.NewTypeError("setTimeout: callback is not a function"))
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return goja.Undefined()
	}
	s.nextID++
	id := s.nextID
	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()

		_ = s.enqueue(task{label: "timer", fn: func() error {
			_, err := fn(goja.Undefined(), args...)
			return err
		}})
	})
	s.mu.Unlock()

	return s.vm.ToValue(id)
}

func (s *Sandbox) clearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()

	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	return goja.Undefined()
}

// injectDOM installs document with head, body and node factories
func (s *Sandbox) injectDOM() error {
	document := s.vm.NewObject()
	props := map[string]any{
		"head": s.wrap(s.dom.Head()),
		"body": s.wrap(s.dom.Body()),
		"createElement": func(tag string) *goja.Object {
			return s.wrap(NewElement(tag))
		},
		"createTextNode": func(text string) *goja.Object {
			return s.wrap(NewText(text))
		},
		"getElementsByTagName": func(tag string) []*goja.Object {
			return s.wrapAll(s.dom.Query(tag))
		},
		"querySelectorAll": func(selector string) []*goja.Object {
			return s.wrapAll(s.dom.Query(selector))
		},
		"querySelector":  s.queryOne,
		"getElementById": func(id string) goja.Value { return s.queryOne("#" + id) },
	}
	for name, v := range props {
		if err := document.Set(name, v); err != nil {
			return err
		}
	}
	return s.vm.Set("document", document)
}

func (s *Sandbox) queryOne(selector string) goja.Value {
	elems := s.dom.Query(selector)
	if len(elems) == 0 {
		return goja.Null()
	}
	return s.wrap(elems[0])
}

func (s *Sandbox) wrapAll(elems []*Element) []*goja.Object {
	out := make([]*goja.Object, len(elems))
	for i, e := range elems {
		out[i] = s.wrap(e)
	}
	return out
}

// wrap returns the script object for elem, creating it once
func (s *Sandbox) wrap(elem *Element) *goja.Object {
	if obj, ok := s.wrappers[elem]; ok {
		return obj
	}

	vm := s.vm
	obj := vm.NewObject()
	s.wrappers[elem] = obj
	s.elements[obj] = elem

	_ = obj.Set("tagName", strings.ToUpper(elem.TagName))
	_ = obj.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child, ok := s.elements[call.Argument(0).ToObject(vm)]
		if !ok {
			panic(vm.NewTypeError("appendChild: argument is not a node"))
		}
		s.dom.Append(elem, child)
		return call.Argument(0)
	})
	_ = obj.Set("getAttribute", func(name string) goja.Value {
		v, ok := elem.Attributes[name]
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	_ = obj.Set("setAttribute", func(name, value string) {
		s.dom.SetAttribute(elem, name, value)
	})

	for _, attr := range []string{"id", "type", "className"} {
		name := attr
		if name == "className" {
			name = "class"
		}
		_ = obj.DefineAccessorProperty(attr,
			vm.ToValue(func() string { return elem.GetAttribute(name) }),
			vm.ToValue(func(v string) { s.dom.SetAttribute(elem, name, v) }),
			goja.FLAG_TRUE, goja.FLAG_TRUE)
	}
	_ = obj.DefineAccessorProperty("textContent",
		vm.ToValue(func() string { return elem.Text() }),
		vm.ToValue(func(v string) { s.dom.SetText(elem, v) }),
		goja.FLAG_TRUE, goja.FLAG_TRUE)

	return obj
}
