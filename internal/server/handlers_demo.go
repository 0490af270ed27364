package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/Bhardin04/brianhardin.info/internal/demo"
	apperrors "github.com/Bhardin04/brianhardin.info/internal/errors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Demos are public and read-only; any site may embed them.
		return true
	},
}

func (s *Server) registerDemoRoutes(connLimiter echo.MiddlewareFunc) {
	s.echo.GET("/demos", s.handleDemoIndex)
	s.echo.GET("/demos/:demoType", s.handleDemoPage)

	s.echo.POST("/demos/api/session", s.handleCreateSession, connLimiter)
	s.echo.GET("/demos/api/session/:sessionID", s.handleGetSession)
	s.echo.DELETE("/demos/api/session/:sessionID", s.handleDeleteSession)

	s.echo.GET("/demos/ws/:demoType/:sessionID", s.handleDemoWebSocket, connLimiter)
}

func (s *Server) handleDemoIndex(c echo.Context) error {
	return s.renderTemplate(c, "demos.html", map[string]any{
		"DemoTypes": demo.Types(),
	})
}

func (s *Server) handleDemoPage(c echo.Context) error {
	demoType, err := demo.ParseType(c.Param("demoType"))
	if err != nil {
		return err
	}

	return s.renderTemplate(c, "demo.html", map[string]any{
		"DemoType": demoType,
		"WSHost":   c.Request().Host,
	})
}

type createSessionRequest struct {
	DemoType  string `json:"demo_type"`
	SessionID string `json:"session_id"`
}

type sessionResponse struct {
	SessionID    string    `json:"session_id"`
	DemoType     demo.Type `json:"demo_type"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	Connections  int       `json:"connections,omitempty"`
}

// handleCreateSession attaches the caller to a demo session: an existing
// session id of the right type is reused, anything else gets a fresh session.
func (s *Server) handleCreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	demoType, err := demo.ParseType(req.DemoType)
	if err != nil {
		return err
	}

	sessionID := uuid.Nil
	if req.SessionID != "" {
		sessionID, err = uuid.Parse(req.SessionID)
		if err != nil {
			return apperrors.ValidationError("invalid session id").WithContext("session_id", req.SessionID)
		}
	}

	session, err := s.engine.Attach(sessionID, demoType)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, sessionResponse{
		SessionID:    session.ID.String(),
		DemoType:     session.Type,
		CreatedAt:    session.CreatedAt,
		LastActiveAt: session.LastActiveAt,
	})
}

func (s *Server) handleGetSession(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		return apperrors.ValidationError("invalid session id")
	}

	session, err := s.engine.Session(sessionID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sessionResponse{
		SessionID:    session.ID.String(),
		DemoType:     session.Type,
		CreatedAt:    session.CreatedAt,
		LastActiveAt: session.LastActiveAt,
		Connections:  s.engine.ConnCount(session.ID),
	})
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		return apperrors.ValidationError("invalid session id")
	}

	s.engine.Delete(sessionID)
	return c.NoContent(http.StatusNoContent)
}

// handleDemoWebSocket upgrades the connection and hands the write side to the
// demo engine. Capacity rejections after the upgrade close the socket with
// 1013 (try again later) so browser clients can back off.
func (s *Server) handleDemoWebSocket(c echo.Context) error {
	demoType, err := demo.ParseType(c.Param("demoType"))
	if err != nil {
		return err
	}

	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		return apperrors.ValidationError("invalid session id")
	}

	session, err := s.engine.Session(sessionID)
	if err != nil {
		return err
	}
	if session.Type != demoType {
		return apperrors.ValidationError("session belongs to a different demo").
			WithContext("session_id", sessionID.String()).
			WithContext("demo_type", string(demoType))
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade websocket: %w", err)
	}

	transport := demo.NewWebsocketTransport(ws, clockwork.NewRealClock())
	conn, err := s.engine.Connect(sessionID, transport)
	if err != nil {
		closeCode := websocket.CloseInternalServerErr
		if apperrors.IsCapacity(err) {
			closeCode = websocket.CloseTryAgainLater
		} else if apperrors.IsNotFound(err) {
			closeCode = websocket.CloseNormalClosure
		}
		msg := websocket.FormatCloseMessage(closeCode, "")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = ws.Close()
		return nil
	}

	// Read pump. Client frames refresh session activity; the engine owns the
	// write side until Disconnect, so pongs go through the conn's queue.
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			break
		}
		s.engine.Touch(sessionID)

		var frame struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(payload, &frame); err == nil && frame.Type == "ping" {
			conn.Send([]byte(`{"type":"pong"}`))
		}
	}

	s.engine.Disconnect(conn.ID)
	return nil
}
