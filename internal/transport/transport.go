// SPDX-License-Identifier: MIT

// Package transport publishes playback, edit and analysis events to
// external consumers such as visualisers.
package transport

// Transport defines a generic interface for sending events.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// Message types carried in the Type field of every message.
const (
	TypeState      = "playback_state"
	TypePosition   = "playback_position"
	TypeRegion     = "region_changed"
	TypeBandEnergy = "band_energy"
	TypeOnset      = "onset"
)

// StateMessage announces a playback state transition.
type StateMessage struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

// PositionMessage reports the playhead.
type PositionMessage struct {
	Type    string  `json:"type"`
	Sample  int     `json:"sample"`
	Seconds float64 `json:"seconds"`
}

// RegionMessage reports a rectangle of the clip that changed.
type RegionMessage struct {
	Type   string `json:"type"`
	Frame  int    `json:"frame"`
	Frames int    `json:"frames"`
	Bin    int    `json:"bin"`
	Bins   int    `json:"bins"`
}

// BandEnergyMessage carries normalised energy per frequency band.
type BandEnergyMessage struct {
	Type  string             `json:"type"`
	Bands map[string]float64 `json:"bands"`
}

// OnsetMessage marks a sudden rise in loudness of the played audio.
type OnsetMessage struct {
	Type   string  `json:"type"`
	Energy float64 `json:"energy"`
}

// Multi sends every message to all of its transports.
type Multi []Transport

// Send returns the first error but always tries every transport.
func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, t := range m {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Transport = Multi(nil)
