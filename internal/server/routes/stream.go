package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clientportal/internal/realtime"
)

const streamHeartbeat = 25 * time.Second

// streamEvents writes events as Server-Sent Events until the client goes
// away or the subscription ends. hello is sent as the "connected" event.
func streamEvents(c *gin.Context, events <-chan realtime.Event, hello gin.H) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}
	c.Status(http.StatusOK)

	c.SSEvent("connected", hello)
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := c.Writer.WriteString(": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				c.SSEvent("close", gin.H{})
				flusher.Flush()
				return
			}
			c.SSEvent("insert", ev)
			flusher.Flush()
		}
	}
}
