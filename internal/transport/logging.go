// SPDX-License-Identifier: MIT
package transport

import (
	"spectral/internal/analysis"
	"spectral/internal/log"
)

// LoggingTransport writes a one-line summary of everything it receives at
// debug level. Useful when no network consumer is attached.
type LoggingTransport struct {
	log *log.Logger
}

// NewLoggingTransport logs under the "transport/log" component.
func NewLoggingTransport() *LoggingTransport {
	lt := &LoggingTransport{log: log.For("transport/log")}
	lt.log.Infof("using logging transport")
	return lt
}

func (lt *LoggingTransport) Send(data any) error {
	switch v := data.(type) {
	case analysis.Frame:
		lt.log.Debugf("frame %d: %s, %d values, %.3f ms, peak %.4f",
			v.Sequence, v.Kind, v.Count, v.ElapsedMs, peak(v.Values))
	case analysis.Onset:
		lt.log.Infof("onset at frame %d: energy %.4f, ratio %.2f", v.Sequence, v.Energy, v.Ratio)
	default:
		lt.log.Debugf("received %T: %+v", data, data)
	}
	return nil
}

func (lt *LoggingTransport) Close() error {
	lt.log.Debugf("closed")
	return nil
}

func peak(values []float64) float64 {
	var m float64
	for _, v := range values {
		m = max(m, v)
	}
	return m
}

var _ Transport = (*LoggingTransport)(nil)
