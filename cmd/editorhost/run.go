package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/richbridge/internal/bridges"
	"github.com/GriffinCanCode/richbridge/internal/editor"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
	"github.com/GriffinCanCode/richbridge/internal/sandbox"
	"github.com/GriffinCanCode/richbridge/internal/shared/id"
	"github.com/GriffinCanCode/richbridge/internal/surface"
)

var (
	runContent    string
	runExtensions []string
	runAutofocus  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive one in-process editor with commands read from stdin",
	Long: `run mounts a single sandbox-backed editor and reads one JSON command
per line from stdin:

  {"method": "toggleBold"}
  {"method": "toggleHeading", "payload": 2}
  {"method": "focus", "payload": "end"}

After each command it prints the editor state as one JSON line. At end of
input it prints the document.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		defer func() { _ = logger.Sync() }()

		if _, err := bridges.Select(runExtensions); err != nil {
			return err
		}
		sb := sandbox.DefaultConfig()
		sb.Timeout = cfg.Sandbox.Timeout
		sb.EnableConsole = cfg.Sandbox.Console

		spec := surface.Spec{
			Descriptors: func() []*extension.Descriptor {
				descs, _ := bridges.Select(runExtensions)
				return descs
			},
			Editor: editor.Config{
				Autofocus:      runAutofocus,
				FocusPosition:  cfg.Editor.FocusPosition,
				InitialContent: runContent,
			},
			Sandbox: sb,
		}
		return drive(cmd.Context(), spec, cmd.InOrStdin(), cmd.OutOrStdout(), logger.Logger)
	},
}

func init() {
	runCmd.Flags().StringVar(&runContent, "content", "", "initial document HTML")
	runCmd.Flags().StringSliceVar(&runExtensions, "extensions", nil, "bridges to compose (default: starter kit)")
	runCmd.Flags().BoolVar(&runAutofocus, "autofocus", false, "focus the editor once ready")
	rootCmd.AddCommand(runCmd)
}

// command is one line of run input.
type command struct {
	Method  string          `json:"method"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type result struct {
	Method string          `json:"method"`
	Error  string          `json:"error,omitempty"`
	State  extension.State `json:"state,omitempty"`
}

type document struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

// printer writes JSON lines.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printer) print(v any) error {
	data, err := protocol.Marshal(v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = fmt.Fprintf(p.out, "%s\n", data)
	return err
}

// drive mounts an editor from spec and applies every command read from in.
func drive(ctx context.Context, spec surface.Spec, in io.Reader, out io.Writer, logger *zap.Logger) error {
	logger = logger.With(zap.String("session", id.NewSessionID().String()))
	manager := surface.NewManager(logger, nil)
	defer manager.Shutdown()

	s, err := manager.Mount(ctx, spec)
	if err != nil {
		return err
	}
	if err := s.Editor().WaitReady(ctx); err != nil {
		return err
	}
	p := &printer{out: out}
	logger.Info("Session started", zap.String("editor", s.ID().String()))

	// Every injected command runs on the sandbox loop before this.
	settle := func() error {
		return s.Sandbox().Do(ctx, func(*goja.Runtime) error { return nil })
	}

	commands := 0
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var c command
		if err := protocol.Unmarshal([]byte(line), &c); err != nil {
			if err := p.print(result{Error: fmt.Sprintf("parse command: %v", err)}); err != nil {
				return err
			}
			continue
		}

		commands++
		res := result{Method: c.Method}
		if err := apply(s.Editor(), c); err != nil {
			res.Error = err.Error()
		} else {
			if err := settle(); err != nil {
				return err
			}
			res.State = s.Editor().State()
		}
		if err := p.print(res); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if err := settle(); err != nil {
		return err
	}
	logger.Info("Session finished", zap.Int("commands", commands))
	return p.print(document{HTML: s.Engine().HTML(), Text: s.Engine().Text()})
}

func apply(ed *editor.Editor, c command) error {
	var payload any
	if len(c.Payload) > 0 && string(c.Payload) != "null" {
		payload = c.Payload
	}
	if c.Method == "focus" {
		var position string
		if payload != nil {
			if err := protocol.Unmarshal(c.Payload, &position); err != nil {
				return fmt.Errorf("focus position: %w", err)
			}
		}
		return ed.Focus(position)
	}
	return ed.Call(c.Method, payload)
}
