package models

// CombinedRecord juxtaposes a mote record and a capture record.
// Either side may be empty when the combiner had nothing to pair it with.
type CombinedRecord struct {
	Mote    MoteRecord    `json:"mote"`
	Capture CaptureRecord `json:"capture"`
}

// CombinedHeader is the column layout of a persisted combined table.
var CombinedHeader = []string{"Time", "Mote ID", "Message", "Timestamp", "Source", "Destination", "Data"}

// Columns returns the record in CombinedHeader order.
func (r CombinedRecord) Columns() []string {
	return []string{
		r.Mote.Time,
		r.Mote.MoteID,
		r.Mote.Message,
		r.Capture.Timestamp,
		r.Capture.Source,
		r.Capture.Destination,
		r.Capture.Payload,
	}
}
