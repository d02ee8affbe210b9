package models

// PairKey identifies a directed (source, destination) node pair.
type PairKey struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// String renders the pair as "source -> destination".
func (k PairKey) String() string {
	return k.Source + " -> " + k.Destination
}

// Valid reports whether both endpoints are known.
func (k PairKey) Valid() bool {
	return k.Source != "" && k.Destination != ""
}

// PairCount is the number of packets observed for one pair in a run.
type PairCount struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Count       int    `json:"count"`
}

// Key returns the pair key of the count.
func (c PairCount) Key() PairKey {
	return PairKey{Source: c.Source, Destination: c.Destination}
}
