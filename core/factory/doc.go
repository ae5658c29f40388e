// Package factory holds a generic registry used to pick module
// implementations by name from configuration, such as metrics sinks and
// meter payload formats.
//
//	reg := factory.NewRegistry[metrics.Sink]()
//	reg.MustRegister("nop", func(map[string]any) (metrics.Sink, error) {
//	    return metrics.NopSink{}, nil
//	})
//	sink, err := reg.Create(factory.ModuleConfig{Type: "nop"})
package factory
