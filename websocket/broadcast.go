// Package websocket provides the duty-desk live update hub.
// file: websocket/broadcast.go
package websocket

import (
	"encoding/json"

	"fme-portal/logger"
	"fme-portal/models"
)

// broadcast is the channel every outbound event goes through.
var broadcast = make(chan []byte, 64)

// HandleMessages listens for events on the broadcast channel and distributes
// them to connections. Events carrying `"audience":"manager"` only reach
// manager connections.
func HandleMessages() {
	for {
		msg := <-broadcast

		var msgMap map[string]interface{}
		var audienceFilter string

		if err := json.Unmarshal(msg, &msgMap); err == nil {
			if a, ok := msgMap["audience"].(string); ok {
				audienceFilter = a
			}
		}

		connMu.Lock()
		for c := range connections {
			if audienceFilter == AudienceManager && c.audience != AudienceManager {
				continue
			}
			select {
			case c.send <- msg:
			default:
				logger.Warn.Printf("Dropping broadcast message for connection %v", c.conn.RemoteAddr())
			}
		}
		connMu.Unlock()
	}
}

// SendBroadcastMessage sends a pre-marshalled event to the hub.
func SendBroadcastMessage(msg []byte) {
	broadcast <- msg
}

// sendEvent marshals and queues an event.
func sendEvent(msg map[string]interface{}) {
	out, err := json.Marshal(msg)
	if err != nil {
		logger.Error.Printf("Error marshalling hub event: %v", err)
		return
	}
	broadcast <- out
}

// NotifyScheduleConfirmed tells duty pages a slot was confirmed.
func NotifyScheduleConfirmed(s models.Schedule) {
	sendEvent(map[string]interface{}{
		"action":      "scheduleConfirmed",
		"scheduleId":  s.ID,
		"date":        s.Date,
		"shift":       s.Shift,
		"confirmedBy": s.ConfirmedBy,
	})
}

// NotifyReportSubmitted tells manager views a report arrived.
func NotifyReportSubmitted(r models.DutyReport) {
	sendEvent(map[string]interface{}{
		"action":      "reportSubmitted",
		"audience":    AudienceManager,
		"reportId":    r.ID,
		"title":       r.Title,
		"date":        r.Date,
		"submittedBy": r.SubmittedBy,
	})
}

// NotifyReportDeleted tells manager views a report was removed.
func NotifyReportDeleted(id string) {
	sendEvent(map[string]interface{}{
		"action":   "reportDeleted",
		"audience": AudienceManager,
		"reportId": id,
	})
}
