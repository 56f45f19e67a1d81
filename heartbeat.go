// file: heartbeat.go
package main

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"fme-portal/logger"
)

// HeartbeatManager tracks which duty members still have the portal open.
// The websocket hub carries live presence; this is the HTTP fallback for
// clients that lost their socket.
type HeartbeatManager struct {
	activeSessions map[string]time.Time
	mu             sync.Mutex
}

// NewHeartbeatManager initializes a presence tracker.
func NewHeartbeatManager() *HeartbeatManager {
	return &HeartbeatManager{
		activeSessions: make(map[string]time.Time),
	}
}

// Handler updates the last-seen timestamp of a duty member.
func (h *HeartbeatManager) Handler(w http.ResponseWriter, r *http.Request) {
	memberEmail := r.URL.Query().Get("member")
	if memberEmail == "" {
		logger.Warn.Println("[Heartbeat] Missing member email in query params")
		http.Error(w, "Missing member email", http.StatusBadRequest)
		return
	}

	h.UpdateHeartbeat(memberEmail)

	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintln(w, "Heartbeat received"); err != nil {
		logger.Warn.Printf("[Heartbeat] Error writing response for member=%s: %v", memberEmail, err)
	}
}

// UpdateHeartbeat marks a member as active.
func (h *HeartbeatManager) UpdateHeartbeat(memberEmail string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activeSessions[memberEmail] = time.Now()
	logger.Debug.Printf("[Heartbeat] member=%s active at %v", memberEmail, time.Now())
}

// ActiveCount reports how many members pinged within the window.
func (h *HeartbeatManager) ActiveCount(window time.Duration) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, lastSeen := range h.activeSessions {
		if time.Since(lastSeen) <= window {
			count++
		}
	}
	return count
}

// CleanupInactiveSessions drops members that stopped pinging. Runs until the
// process exits.
func (h *HeartbeatManager) CleanupInactiveSessions(timeout time.Duration) {
	ticker := time.NewTicker(timeout)
	go func() {
		for range ticker.C {
			h.mu.Lock()
			for email, lastSeen := range h.activeSessions {
				if time.Since(lastSeen) > timeout {
					logger.Info.Printf("[Heartbeat] Removing inactive member=%s (timeout=%v)", email, timeout)
					delete(h.activeSessions, email)
				}
			}
			h.mu.Unlock()
		}
	}()
}
