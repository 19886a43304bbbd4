package bridge

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

// ErrNoNativeChannel is returned by Mount when the realm has no
// window.ReactNativeWebView.postMessage.
var ErrNoNativeChannel = errors.New("realm has no native post channel")

// Mount starts a Runtime inside vm. It reads the bootstrap globals, posts
// through window.ReactNativeWebView.postMessage and handles every window
// "message" event as a host command. It must run on the realm's own
// goroutine, and so must every later command.
func Mount(vm *goja.Runtime, eng engine.Engine, descs []*extension.Descriptor, opts ...Option) (*Runtime, error) {
	boot, err := protocol.ReadBootstrap(func(name string) any {
		return export(vm.Get(name))
	})
	if err != nil {
		return nil, fmt.Errorf("read bootstrap: %w", err)
	}

	post, err := nativePost(vm)
	if err != nil {
		return nil, err
	}

	addListener, ok := goja.AssertFunction(vm.Get("addEventListener"))
	if !ok {
		return nil, errors.New("realm has no addEventListener")
	}

	rt := New(eng, descs, post, opts...)
	listener := func(call goja.FunctionCall) goja.Value {
		event := call.Argument(0)
		if obj, ok := event.(*goja.Object); ok {
			rt.ReceiveValue(export(obj.Get("data")))
		}
		return goja.Undefined()
	}
	if _, err := addListener(goja.Undefined(), vm.ToValue("message"), vm.ToValue(listener)); err != nil {
		return nil, fmt.Errorf("listen for messages: %w", err)
	}

	if err := rt.Start(boot); err != nil {
		return nil, err
	}
	return rt, nil
}

func nativePost(vm *goja.Runtime) (PostFunc, error) {
	native, ok := vm.Get("ReactNativeWebView").(*goja.Object)
	if !ok {
		return nil, ErrNoNativeChannel
	}
	fn, ok := goja.AssertFunction(native.Get("postMessage"))
	if !ok {
		return nil, ErrNoNativeChannel
	}
	return func(data []byte) error {
		_, err := fn(native, vm.ToValue(string(data)))
		return err
	}, nil
}

func export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}
