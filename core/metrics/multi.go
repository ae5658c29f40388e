package metrics

// MultiSink fans events out to several sinks. Optional recorders are only
// forwarded to sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCommand forwards to every sink and returns the first error.
func (m *MultiSink) RecordCommand(ev CommandEvent) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordCommand(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RecordAllocation forwards allocation events.
func (m *MultiSink) RecordAllocation(ev AllocationEvent) error {
	var first error
	for _, s := range m.Sinks {
		if rec, ok := s.(AllocationRecorder); ok {
			if err := rec.RecordAllocation(ev); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// RecordPower forwards surplus updates.
func (m *MultiSink) RecordPower(ev PowerEvent) error {
	var first error
	for _, s := range m.Sinks {
		if rec, ok := s.(PowerRecorder); ok {
			if err := rec.RecordPower(ev); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// Close closes the sinks implementing Closer.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(Closer); ok {
			c.Close()
		}
	}
}
