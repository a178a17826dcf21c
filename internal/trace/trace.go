// Package trace collects execution events emitted by instrumented snippets
// and renders them as numbered display steps and per-line memory snapshots.
package trace

import (
	"fmt"

	"github.com/ashita-ai/kaiseki/internal/instrument"
	"github.com/ashita-ai/kaiseki/internal/interp"
)

type eventKind int

const (
	lineEvent eventKind = iota
	varEvent
)

type event struct {
	kind  eventKind
	line  int
	name  string
	value string
}

// Tracer records line executions and variable writes. Not safe for
// concurrent use; one tracer serves one interpreter run.
type Tracer struct {
	events []event
	lines  []int
}

func NewTracer() *Tracer {
	return &Tracer{}
}

// Bind registers the tracer's hooks with an interpreter. Instrumented code
// produced by instrument.Trace calls them as ordinary functions.
func (t *Tracer) Bind(itp *interp.Interp) {
	itp.RegisterNative(instrument.LineHook, func(args []any) (any, error) {
		line, ok := intArg(args, 0)
		if !ok {
			return nil, fmt.Errorf("trace: %s expects a line number", instrument.LineHook)
		}
		t.RecordLine(line)
		return nil, nil
	})
	itp.RegisterNative(instrument.VarHook, func(args []any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("trace: %s expects a name and a value", instrument.VarHook)
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("trace: %s expects a string name", instrument.VarHook)
		}
		t.RecordVar(name, args[1])
		return nil, nil
	})
}

// RecordLine marks the start of a statement on the given snippet line.
func (t *Tracer) RecordLine(line int) {
	t.events = append(t.events, event{kind: lineEvent, line: line})
	t.lines = append(t.lines, line)
}

// RecordVar records a variable's value after the statement that wrote it.
func (t *Tracer) RecordVar(name string, value any) {
	t.events = append(t.events, event{kind: varEvent, name: name, value: interp.Format(value)})
}

// Lines reports executed snippet lines in order, with repeats.
func (t *Tracer) Lines() []int {
	return t.lines
}

// Steps renders the recorded events for display. Each event is a numbered
// step; after every "Executing line" step the variables written by the
// preceding statement are re-shown as arrow lines. Only writes since the
// previous line event appear, never the whole history.
func (t *Tracer) Steps() []string {
	out := make([]string, 0, len(t.events))
	count := 1
	var pending []string
	for _, ev := range t.events {
		switch ev.kind {
		case lineEvent:
			out = append(out, fmt.Sprintf("Step %d: Executing line %d", count, ev.line))
			count++
			out = append(out, pending...)
			pending = pending[:0]
		case varEvent:
			out = append(out, fmt.Sprintf("Step %d: Variable '%s' = %s", count, ev.name, ev.value))
			count++
			pending = append(pending, fmt.Sprintf("  → %s = %s", ev.name, ev.value))
		}
	}
	out = append(out, pending...)
	return out
}

func intArg(args []any, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	n, ok := args[i].(int)
	return n, ok
}
