package models

// PlaceholderDestination marks a capture line without a resolved destination.
const PlaceholderDestination = "-"

// CaptureRecord is one packet from the capture log.
type CaptureRecord struct {
	Timestamp   string `json:"timestamp"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Payload     string `json:"payload"`
}

// Pair returns the record's (source, destination) key.
func (c CaptureRecord) Pair() PairKey {
	return PairKey{Source: c.Source, Destination: c.Destination}
}

// IsZero reports whether the record carries no data.
func (c CaptureRecord) IsZero() bool {
	return c.Timestamp == "" && c.Source == "" && c.Destination == "" && c.Payload == ""
}
