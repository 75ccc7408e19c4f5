package websocket

import "time"

// Connection configuration
const (
	// Time allowed to write a message to the peer
	WriteWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer
	PongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than PongWait
	PingPeriod = (PongWait * 9) / 10
	// Maximum message size allowed from peer. Recorded audio arrives inline as a data URL
	MaxMessageSize = 10 << 20
)
