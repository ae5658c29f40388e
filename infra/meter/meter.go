// Package meter decodes power meter messages into samples.
//
// Two payload formats are supported:
//
//	sample     {"channel":"grid","power":-1250.5,"ts":1717243200000}
//	shelly_em  Shelly Pro 3EM NotifyStatus frames; per-phase active power
//	           is reported on channels a, b and c
package meter

import (
	"errors"
	"time"

	"github.com/kilianp07/loadshift/core/factory"
	"github.com/kilianp07/loadshift/core/model"
)

// ErrMalformed is returned for payloads lacking the fields a format needs.
var ErrMalformed = errors.New("malformed meter payload")

// Decoder turns one message into zero or more samples.
type Decoder func(topic string, payload []byte, received time.Time) ([]model.PowerSample, error)

var formats = factory.NewRegistry[Decoder]()

func init() {
	formats.MustRegister("sample", newSampleDecoder)
	formats.MustRegister("shelly_em", newShellyEMDecoder)
}

// New returns the decoder selected by cfg.Type. An empty type selects
// "sample".
func New(cfg factory.ModuleConfig) (Decoder, error) {
	if cfg.Type == "" {
		cfg.Type = "sample"
	}
	return formats.Create(cfg)
}

// Formats lists the supported payload formats.
func Formats() []string { return formats.Types() }
