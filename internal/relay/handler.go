package relay

import (
	"context"
	"net/http"
	"strings"

	"pairchat/internal/services"
	"pairchat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests into relay connections. Authentication
// happens once, at upgrade time; an invalid credential never reaches the
// hub.
type Handler struct {
	auth  *services.AuthService
	relay *Relay
}

func NewHandler(auth *services.AuthService, relay *Relay) *Handler {
	return &Handler{auth: auth, relay: relay}
}

func (h *Handler) Connect(c *gin.Context) {
	credential := c.Query("token")
	if credential == "" {
		credential = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}

	identity, err := h.auth.Authenticate(credential)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "AUTH_ERROR"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, identity)
	if prev := h.relay.Hub().Register(client); prev != nil {
		prev.Close()
	}

	// The request context dies with the hijacked HTTP handler, so the
	// pumps run on their own lifetime.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.WritePump(ctx)
	client.ReadPump(ctx, h.relay)
}
