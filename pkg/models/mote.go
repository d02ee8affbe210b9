package models

import "strings"

// MoteRecord is one node-level event from the motes log.
type MoteRecord struct {
	Time    string `json:"time"`
	MoteID  string `json:"mote_id"`
	Message string `json:"message"`
}

// NodeID returns the mote identifier without its "ID:" prefix.
func (m MoteRecord) NodeID() string {
	id := strings.TrimSpace(m.MoteID)
	if idx := strings.LastIndex(id, ":"); idx >= 0 {
		id = id[idx+1:]
	}
	return NormalizeID(id)
}

// IsZero reports whether the record carries no data.
func (m MoteRecord) IsZero() bool {
	return m.Time == "" && m.MoteID == "" && m.Message == ""
}
