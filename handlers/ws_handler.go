package handlers

import (
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"qr-attendance-backend/realtime"
)

// WSHandler bridges websocket connections to the broadcast hub. Each
// connection becomes one hub client; incoming frames only carry room
// subscription commands, all attendance traffic flows outward.
type WSHandler struct {
	hub *realtime.Hub
}

func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// subscribeCommand is the only inbound frame shape clients may send.
type subscribeCommand struct {
	Event   string `json:"event"`
	Subject string `json:"subject"`
}

// Upgrade gates the route so only real websocket handshakes reach Serve.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve runs the connection lifecycle: register with the hub, pump outbound
// events, process join/leave commands, and unregister on any error.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client := realtime.NewClient()
		h.hub.Register(client)
		defer h.hub.Unregister(client)

		log.Printf("websocket: client %s connected from %s", client.ID(), conn.RemoteAddr())
		defer log.Printf("websocket: client %s disconnected", client.ID())

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send() {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}

			var cmd subscribeCommand
			if err := json.Unmarshal(raw, &cmd); err != nil {
				log.Printf("websocket: ignoring malformed frame: %v", err)
				continue
			}

			switch cmd.Event {
			case "joinSubject":
				if cmd.Subject != "" {
					h.hub.Join(client, cmd.Subject)
				}
			case "leaveSubject":
				if cmd.Subject != "" {
					h.hub.Leave(client, cmd.Subject)
				}
			}
		}

		h.hub.Unregister(client)
		<-done
	})
}
