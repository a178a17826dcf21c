package trace

import (
	"fmt"

	"github.com/ashita-ai/kaiseki/internal/instrument"
	"github.com/ashita-ai/kaiseki/internal/interp"
)

// VarInfo describes one variable at snapshot time.
type VarInfo struct {
	Value   string `json:"value"`
	Type    string `json:"type"`
	Size    int    `json:"size"`
	Address string `json:"address"`
}

// Snapshot is the set of live variables as of a snippet line, in
// first-write order so renderings are stable across runs.
type Snapshot struct {
	Line      int                `json:"line"`
	Names     []string           `json:"-"`
	Variables map[string]VarInfo `json:"variables"`
}

// MemoryTracker accumulates variable state and takes per-line snapshots.
// Addresses are synthetic identity tokens, assigned per tracker: recording
// the same container twice yields the same token, so aliasing is visible
// without exposing host pointers.
type MemoryTracker struct {
	snapshots []Snapshot
	names     []string
	current   map[string]VarInfo
	tokens    map[any]uint64
	nextToken uint64
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		current:   map[string]VarInfo{},
		tokens:    map[any]uint64{},
		nextToken: 0x1000,
	}
}

// Bind registers the tracker's hooks with an interpreter. Instrumented code
// produced by instrument.Memory calls them as ordinary functions.
func (m *MemoryTracker) Bind(itp *interp.Interp) {
	itp.RegisterNative(instrument.SnapshotHook, func(args []any) (any, error) {
		line, ok := intArg(args, 0)
		if !ok {
			return nil, fmt.Errorf("trace: %s expects a line number", instrument.SnapshotHook)
		}
		m.TakeSnapshot(line)
		return nil, nil
	})
	itp.RegisterNative(instrument.RecordHook, func(args []any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("trace: %s expects a name and a value", instrument.RecordHook)
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("trace: %s expects a string name", instrument.RecordHook)
		}
		m.Record(name, args[1])
		return nil, nil
	})
}

// Record updates the tracked state of one variable.
func (m *MemoryTracker) Record(name string, value any) {
	if _, seen := m.current[name]; !seen {
		m.names = append(m.names, name)
	}
	m.current[name] = VarInfo{
		Value:   interp.Format(value),
		Type:    interp.TypeName(value),
		Size:    interp.SizeOf(value),
		Address: fmt.Sprintf("0x%x", m.token(value)),
	}
}

// TakeSnapshot captures the current variable state as of a snippet line.
func (m *MemoryTracker) TakeSnapshot(line int) {
	vars := make(map[string]VarInfo, len(m.current))
	for k, v := range m.current {
		vars[k] = v
	}
	names := make([]string, len(m.names))
	copy(names, m.names)
	m.snapshots = append(m.snapshots, Snapshot{Line: line, Names: names, Variables: vars})
}

// Snapshots returns the captured snapshots in execution order.
func (m *MemoryTracker) Snapshots() []Snapshot {
	return m.snapshots
}

// Format renders the snapshots for display, one block per snapshot with a
// blank separator line. Empty snapshots note the absence of variables.
func (m *MemoryTracker) Format() []string {
	var out []string
	for _, snap := range m.snapshots {
		out = append(out, fmt.Sprintf("Snapshot at line %d:", snap.Line))
		if len(snap.Names) == 0 {
			out = append(out, "  No variables in memory")
			continue
		}
		for _, name := range snap.Names {
			info := snap.Variables[name]
			out = append(out, fmt.Sprintf("  %s: %s (type: %s, size: %d, address: %s)",
				name, info.Value, info.Type, info.Size, info.Address))
		}
		out = append(out, "")
	}
	return out
}

// token returns a stable synthetic address for a value within this tracker.
// Containers and functions are keyed by pointer identity; scalars of equal
// value share a token, which is harmless for display.
func (m *MemoryTracker) token(v any) uint64 {
	if v == nil {
		return 0
	}
	if tok, ok := m.tokens[v]; ok {
		return tok
	}
	tok := m.nextToken
	m.nextToken += 0x40
	m.tokens[v] = tok
	return tok
}
