package broadcast

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsReadLimit    = 1024
)

// newUpgrader 按配置构造来源校验: 同源放行, 其余需命中 allowedOrigins,
// 本地开发地址始终放行。
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed[strings.ToLower(origin)]; ok {
				return true
			}

			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			requestHost := r.Host
			originHost := u.Host
			if h, _, splitErr := net.SplitHostPort(requestHost); splitErr == nil {
				requestHost = h
			}
			if h, _, splitErr := net.SplitHostPort(originHost); splitErr == nil {
				originHost = h
			}
			if strings.EqualFold(requestHost, originHost) {
				return true
			}
			return originHost == "localhost" || originHost == "127.0.0.1"
		},
	}
}

// wsCommand WebSocket 客户端的订阅控制指令。
type wsCommand struct {
	Op     string   `json:"op"`
	Topics []string `json:"topics"`
}

// wsFrame 推送帧: 主题 + 原始事件体。
type wsFrame struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// WSHandler 处理 GET /api/v1/ws 的升级与收发。
// 连接建立后默认订阅全部主题, 客户端可通过
// {"op":"subscribe","topics":[…]} / {"op":"unsubscribe"} 调整。
func WSHandler(hub *Hub, allowedOrigins []string) gin.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		topics := splitTopics(c.Query("topics"))
		sub := hub.Subscribe(topics, "ws")
		if sub == nil {
			conn.Close()
			return
		}

		go wsWritePump(conn, sub)
		wsReadPump(conn, hub, sub)
	}
}

func wsReadPump(conn *websocket.Conn, hub *Hub, sub *Subscriber) {
	defer func() {
		hub.Unsubscribe(sub)
		conn.Close()
	}()

	conn.SetReadLimit(wsReadLimit)
	if err := conn.SetReadDeadline(time.Now().Add(wsPongTimeout)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd wsCommand
		if json.Unmarshal(payload, &cmd) != nil {
			continue
		}
		switch cmd.Op {
		case "subscribe":
			sub.SetTopics(cmd.Topics)
		case "unsubscribe":
			sub.SetTopics(nil)
		}
	}
}

func wsWritePump(conn *websocket.Conn, sub *Subscriber) {
	ticker := time.NewTicker(heartbeatInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			frame, err := json.Marshal(wsFrame{Topic: event.Topic, Data: event.Payload})
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func splitTopics(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	topics := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
