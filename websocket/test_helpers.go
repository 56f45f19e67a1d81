// Package websocket test_helpers.go
package websocket

// InitTest resets hub state between tests: drains queued events and drops
// any leftover registered connections.
func InitTest() {
	for len(broadcast) > 0 {
		<-broadcast
	}
	connMu.Lock()
	connections = make(map[*Connection]bool)
	connMu.Unlock()
}
