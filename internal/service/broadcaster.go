package service

// Broadcaster pushes room snapshots over WebSocket. Delivery is
// best-effort and never retried. Interface lives here to avoid an import
// cycle with the ws transport.
type Broadcaster interface {
	Broadcast(roomCode string, msgType string, payload interface{})
	RoomSize(roomCode string) int
}
