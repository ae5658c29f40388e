package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	commands    int
	allocations int
	err         error
}

func (r *recordSink) RecordCommand(CommandEvent) error {
	r.commands++
	return r.err
}

func (r *recordSink) RecordAllocation(AllocationEvent) error {
	r.allocations++
	return nil
}

// commandOnly implements none of the optional recorders.
type commandOnly struct{ n int }

func (c *commandOnly) RecordCommand(CommandEvent) error {
	c.n++
	return nil
}

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{}
	s2 := &commandOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordCommand(CommandEvent{Device: "boiler"}); err != nil {
		t.Fatalf("record command: %v", err)
	}
	if err := m.RecordAllocation(AllocationEvent{}); err != nil {
		t.Fatalf("record allocation: %v", err)
	}
	if err := m.RecordPower(PowerEvent{}); err != nil {
		t.Fatalf("record power: %v", err)
	}
	if s1.commands != 1 || s2.n != 1 {
		t.Fatalf("commands not forwarded: %d %d", s1.commands, s2.n)
	}
	if s1.allocations != 1 {
		t.Fatalf("allocation not forwarded")
	}
}

func TestMultiSinkKeepsGoingOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordCommand(CommandEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s2.commands != 1 {
		t.Fatalf("second sink skipped")
	}
}

type closingSink struct {
	commandOnly
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSinkClose(t *testing.T) {
	c := &closingSink{}
	m := NewMultiSink(&commandOnly{}, c)
	m.Close()
	if !c.closed {
		t.Fatalf("expected closable sink to be closed")
	}
}
