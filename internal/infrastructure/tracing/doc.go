/*
Package tracing provides lightweight request tracing for the editor host.

# Overview

Every HTTP request gets a span. Trace and parent span IDs are taken from
the X-Trace-ID and X-Span-ID headers when a caller supplies them, and the
span's own IDs are echoed back in the response headers. Finished spans go
through a buffered collector that logs them with zap.

# Usage

	tracer := tracing.New("editorhost", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// In a handler
	tracing.Tag(c, "editor", editorID)

# Span Fields

  - trace_id, span_id, parent_id
  - operation: method and route pattern
  - status and duration
  - any tags set by handlers
*/
package tracing
