package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fluentpath/detprep-backend/internal/middleware"
	"github.com/fluentpath/detprep-backend/internal/service"
	ws "github.com/fluentpath/detprep-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles WebSocket practice session streaming: countdown ticks
// out, answer events in, the graded result on the terminal transition.
type WSHandler struct {
	practiceService *service.PracticeService
	log             zerolog.Logger
	upgrader        websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(practiceService *service.PracticeService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		practiceService: practiceService,
		log:             log.With().Str("component", "ws_handler").Logger(),
		upgrader:        buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/practice/sessions/:session_id/stream
// Upgrades to WebSocket for the live countdown and in-session answer events.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	if _, err := h.practiceService.Machine(claims.UserID, sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no live session"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Learner connected")

	// The gorilla connection allows one concurrent writer; the tick pump and
	// the read loop share it through this mutex.
	var writeMu sync.Mutex
	write := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return ws.WriteTyped(conn, v)
	}

	streamCtx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go h.pumpTicks(streamCtx, wsLog, write, claims.UserID, sessionID)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			write(ws.ErrorResponse{Event: ws.EventError, Error: "invalid message"})
			continue
		}

		switch envelope.Action {
		case ws.ActionEvent:
			h.handleEvent(write, wsLog, claims.UserID, sessionID, raw)
		case ws.ActionSubmit:
			h.handleSubmit(write, wsLog, claims.UserID, sessionID)
		case ws.ActionPing:
			write(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			write(ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(envelope.Action)})
		}
	}
}

// pumpTicks pushes the remaining time at the session's own tick cadence and
// delivers the graded result once, when the session terminates.
func (h *WSHandler) pumpTicks(ctx context.Context, wsLog zerolog.Logger, write func(interface{}) error, userID int, sessionID uuid.UUID) {
	machine, err := h.practiceService.Machine(userID, sessionID)
	if err != nil {
		return
	}

	ticker := time.NewTicker(machine.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if machine.Terminal() {
				if result := machine.Result(); result != nil {
					if err := write(ws.GradedResponse{Event: ws.EventGraded, Result: result}); err == nil {
						wsLog.Info().Int("score", result.Score.Overall).Msg("Result streamed")
					}
				}
				return
			}

			snap := machine.Snapshot()
			if err := write(ws.TickResponse{Event: ws.EventTick, RemainingSeconds: snap.RemainingSeconds}); err != nil {
				return
			}
		}
	}
}

// handleEvent feeds one answer event into the session and echoes the state.
func (h *WSHandler) handleEvent(write func(interface{}) error, wsLog zerolog.Logger, userID int, sessionID uuid.UUID, raw []byte) {
	var msg ws.EventRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		write(ws.ErrorResponse{Event: ws.EventError, Error: "invalid event payload"})
		return
	}

	snap, err := h.practiceService.ApplyEvent(context.Background(), userID, sessionID, &msg.Event)
	if err != nil {
		wsLog.Debug().Err(err).Str("type", string(msg.Event.Type)).Msg("Event rejected")
		write(ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
		return
	}

	write(ws.StateResponse{Event: ws.EventState, Session: *snap})
}

// handleSubmit finalizes the session and streams the scored result.
func (h *WSHandler) handleSubmit(write func(interface{}) error, wsLog zerolog.Logger, userID int, sessionID uuid.UUID) {
	result, err := h.practiceService.Submit(context.Background(), userID, sessionID)
	if err != nil {
		wsLog.Debug().Err(err).Msg("Submit rejected")
		write(ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
		return
	}

	wsLog.Info().
		Int("score", result.Score.Overall).
		Int("accuracy", result.Accuracy).
		Msg("Session submitted and scored")

	write(ws.GradedResponse{Event: ws.EventGraded, Result: result})
}
