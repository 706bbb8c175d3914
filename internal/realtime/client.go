package realtime

// Client represents a single realtime connection handle.
// We keep it minimal here; the actual network conn is managed in the ws handler.
// Send is fire-and-forget: a false return means the transport write failed and
// the connection's own read loop is expected to clean up.
type Client interface {
	Send(message []byte) bool
	Close()
}
