package realtime

// Named realtime streams.
const (
	// StreamWorker carries worker lifecycle events to open pages.
	StreamWorker = "worker"
)

// Events emitted by the hub itself.
const (
	EventConnected = "connected"
	EventPong      = "pong"
)
