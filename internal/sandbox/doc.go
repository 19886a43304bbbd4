/*
Package sandbox provides the isolated script realm an editor surface runs in.

# Overview

A Sandbox wraps a goja VM behind its own event loop. Nothing outside the
loop touches the VM: injected scripts, timers, window messages and Go
callbacks are queued as tasks and run one at a time, in order. Each task
runs under an interrupt timeout and a panic boundary.

# Globals

  - window / self: the global object
  - window.addEventListener, removeEventListener: "message" and "load"
  - window.postMessage(data, origin): delivers data to message listeners
    in a later task
  - window.ReactNativeWebView.postMessage(string): the back-channel to
    the host, see OnPost
  - setTimeout / clearTimeout
  - console: captured and forwarded to the "sandbox" logger
  - document: head, body, createElement, createTextNode,
    getElementsByTagName, querySelector(All), getElementById

require, process, module and exports are removed.

# Host link

Inject queues a script and returns at once, which makes a Sandbox a
channel.Transport. OnPost receives what the realm posts back; it runs on
the loop goroutine, so inbound messages reach the host in order.

# Usage Example

	sb, err := sandbox.New(sandbox.DefaultConfig(), logger)
	if err != nil {
		return err
	}
	defer sb.Close()

	sb.OnPost(editor.Receive)
	err = sb.Load(ctx, sandbox.Document{Before: before, Program: bundle, After: after})
*/
package sandbox
