package trace

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/ashita-ai/kaiseki/internal/instrument"
	"github.com/ashita-ai/kaiseki/internal/interp"
)

func TestMemoryTrackerSnapshotOrdering(t *testing.T) {
	m := NewMemoryTracker()
	m.TakeSnapshot(1)
	m.Record("x", 1)
	m.TakeSnapshot(2)
	m.Record("y", "hi")
	m.TakeSnapshot(3)

	snaps := m.Snapshots()
	if len(snaps) != 3 {
		t.Fatalf("got %d snapshots, want 3", len(snaps))
	}
	if len(snaps[0].Variables) != 0 {
		t.Errorf("first snapshot should be empty: %+v", snaps[0])
	}
	if got := snaps[1].Names; !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("second snapshot names = %v", got)
	}
	// Names keep first-write order.
	if got := snaps[2].Names; !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("third snapshot names = %v", got)
	}

	info := snaps[2].Variables["y"]
	if info.Value != `"hi"` || info.Type != "string" {
		t.Errorf("y info = %+v", info)
	}
}

func TestMemoryTrackerSnapshotsAreIndependent(t *testing.T) {
	// A snapshot is a copy; later writes must not mutate it.
	m := NewMemoryTracker()
	m.Record("x", 1)
	m.TakeSnapshot(1)
	m.Record("x", 99)
	m.TakeSnapshot(2)

	snaps := m.Snapshots()
	if got := snaps[0].Variables["x"].Value; got != "1" {
		t.Errorf("first snapshot x = %q, want 1", got)
	}
	if got := snaps[1].Variables["x"].Value; got != "99" {
		t.Errorf("second snapshot x = %q, want 99", got)
	}
}

func TestMemoryTrackerAliasingSharesAddress(t *testing.T) {
	m := NewMemoryTracker()
	s := &interp.Slice{Elem: "int", Data: []any{1}}
	m.Record("a", s)
	m.Record("b", s)
	m.Record("c", &interp.Slice{Elem: "int", Data: []any{1}})

	a := m.current["a"].Address
	b := m.current["b"].Address
	c := m.current["c"].Address
	if a != b {
		t.Errorf("aliased slices have different addresses: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("distinct slices share an address: %s", a)
	}
}

func TestMemoryTrackerFormat(t *testing.T) {
	m := NewMemoryTracker()
	m.TakeSnapshot(1)
	m.Record("x", 1)
	m.TakeSnapshot(2)

	want := []string{
		"Snapshot at line 1:",
		"  No variables in memory",
		"Snapshot at line 2:",
		"  x: 1 (type: int, size: 8, address: 0x1000)",
		"",
	}
	if got := m.Format(); !reflect.DeepEqual(got, want) {
		t.Errorf("Format() = %#v\nwant %#v", got, want)
	}
}

func TestMemoryTrackerEndToEnd(t *testing.T) {
	src := "x := 1\ny := 2"
	instrumented, err := instrument.Memory(src)
	if err != nil {
		t.Fatalf("instrument failed: %v", err)
	}

	m := NewMemoryTracker()
	itp := interp.New(interp.WithStdout(&bytes.Buffer{}))
	m.Bind(itp)
	if err := itp.Run(context.Background(), instrumented); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	snaps := m.Snapshots()
	if len(snaps) != 3 {
		t.Fatalf("got %d snapshots, want 3 (two lines plus final)", len(snaps))
	}
	if snaps[2].Line != 3 {
		t.Errorf("final snapshot line = %d, want 3", snaps[2].Line)
	}
	if got := snaps[2].Names; !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("final snapshot names = %v", got)
	}

	lines := m.Format()
	if lines[1] != "  No variables in memory" {
		t.Errorf("first snapshot should report no variables: %q", lines[1])
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "x: 1 (type: int, size: 8") {
		t.Errorf("formatted output missing x entry:\n%s", joined)
	}
}
