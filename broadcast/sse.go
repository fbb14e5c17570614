package broadcast

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// SSEHandler 处理 GET /api/v1/stream。
// ?topics=messages,alerts 选择主题, 缺省订阅全部。
// 周期性发送注释行保活, 客户端断开或 hub 停止时结束。
func SSEHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := hub.Subscribe(splitTopics(c.Query("topics")), "sse")
		if sub == nil {
			c.Status(503)
			return
		}
		defer hub.Unsubscribe(sub)

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		clientGone := c.Request.Context().Done()
		c.Stream(func(w io.Writer) bool {
			select {
			case <-clientGone:
				return false
			case event, ok := <-sub.C:
				if !ok {
					return false
				}
				c.SSEvent(event.Topic, string(event.Payload))
				return true
			case <-heartbeat.C:
				// SSE 注释行, 仅用于探活与穿透中间代理。
				_, err := w.Write([]byte(": ping\n\n"))
				return err == nil
			}
		})
	}
}
