package ws

import (
	"errors"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/BlockShell/core/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/BlockShell/core/internal/logging"
	"github.com/GriffinCanCode/BlockShell/core/internal/providers/terminal"
	"github.com/GriffinCanCode/BlockShell/core/internal/shared/id"
	"github.com/GriffinCanCode/BlockShell/core/internal/term"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Message is an inbound client request.
type Message struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text,omitempty"`
	Input     string `json:"input,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
	Cols      int    `json:"cols,omitempty"`
	Rows      int    `json:"rows,omitempty"`
}

// Handler manages WebSocket connections
type Handler struct {
	registry *term.Registry
	bus      *term.Bus
	provider *terminal.Provider
	metrics  *monitoring.Metrics
	log      *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(registry *term.Registry, bus *term.Bus, provider *terminal.Provider, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{
		registry: registry,
		bus:      bus,
		provider: provider,
		metrics:  metrics,
		log:      log,
	}
}

// conn wraps a websocket connection with write serialization.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(gc *gin.Context) {
	ws, err := upgrader.Upgrade(gc.Writer, gc.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}

	connID := uuid.NewString()
	h.log.Info("websocket client connected", zap.String("conn_id", connID))
	defer h.log.Info("websocket client disconnected", zap.String("conn_id", connID))

	c := &conn{ws: ws}
	c.send(map[string]interface{}{
		"type":    "system",
		"conn_id": connID,
		"message": "Connected to BlockShell core",
	})

	// Fan bus events out to this client
	sub := h.bus.Subscribe()
	defer sub.Cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range sub.C {
			if err := c.send(evt); err != nil {
				return
			}
		}
	}()

	reqCtx := gc.Request.Context()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.sendError(c, "malformed message")
			continue
		}

		switch msg.Type {
		case "write":
			h.handleWrite(c, msg)
		case "send_command":
			if _, err := h.provider.SendCommand(reqCtx, sessionID(msg), msg.Text); err != nil {
				h.sendError(c, err.Error())
			}
		case "ask":
			if _, err := h.provider.Ask(reqCtx, msg.Prompt); err != nil {
				h.sendError(c, err.Error())
			}
		case "resize":
			if sid := sessionID(msg); sid != nil {
				h.registry.Resize(*sid, msg.Cols, msg.Rows)
			} else {
				h.registry.ResizeActive(msg.Cols, msg.Rows)
			}
		case "switch":
			if sid := sessionID(msg); sid != nil {
				if !h.registry.SwitchActive(*sid) {
					h.sendError(c, "unknown session")
				}
			}
		case "ping":
			c.send(map[string]interface{}{"type": "pong"})
		default:
			h.sendError(c, "unknown message type")
		}
	}

	// Unblock the pump before waiting on it
	sub.Cancel()
	<-done
}

func (h *Handler) handleWrite(c *conn, msg Message) {
	var err error
	if sid := sessionID(msg); sid != nil {
		err = h.registry.WriteTo(*sid, msg.Input)
	} else {
		err = h.registry.Write(msg.Input)
	}
	if err != nil && !errors.Is(err, term.ErrSessionClosed) {
		h.sendError(c, err.Error())
	}
}

func (h *Handler) sendError(c *conn, message string) {
	c.send(map[string]interface{}{
		"type":  "error",
		"error": message,
	})
}

func sessionID(msg Message) *id.SessionID {
	if msg.SessionID == "" {
		return nil
	}
	sid := id.SessionID(msg.SessionID)
	return &sid
}
