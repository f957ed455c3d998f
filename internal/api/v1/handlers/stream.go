package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// keepAliveInterval keeps idle event streams open through proxies
const keepAliveInterval = 15 * time.Second

// stream writes every value of ch as a server-sent event until ch closes or
// the client goes away
func stream[T any](c *gin.Context, ch <-chan T, event func(T) (string, interface{})) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case v, ok := <-ch:
			if !ok {
				return
			}
			name, data := event(v)
			c.SSEvent(name, data)
			c.Writer.Flush()
		case <-ticker.C:
			c.SSEvent("keepalive", gin.H{"timestamp": time.Now().Unix()})
			c.Writer.Flush()
		}
	}
}
