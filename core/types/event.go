package types

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Record is an event stamped by the bus with its position in the stream.
type Record struct {
	Sequence  uint64            `json:"sequence"`
	Timestamp int64             `json:"timestamp"`
	Type      string            `json:"type"`
	Attrs     map[string]string `json:"attributes"`
}
