package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/biddeed/deedscout/models"
)

type chatRequest struct {
	Messages  []models.ChatTurn `json:"messages"`
	Query     string            `json:"query"`
	SessionID string            `json:"session_id"`
}

type chatResponse struct {
	Success   bool         `json:"success"`
	Response  string       `json:"response"`
	Usage     models.Usage `json:"usage"`
	SessionID string       `json:"session_id,omitempty"`
}

// handleChat accepts either a full message history or a bare query. With a
// session id, cached turns from earlier requests are prepended and the
// exchange is appended to the durable conversation log.
func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	incoming := req.Messages
	if len(incoming) == 0 {
		if strings.TrimSpace(req.Query) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "messages or query required")
		}
		incoming = []models.ChatTurn{{Role: "user", Content: req.Query}}
	}

	ctx := c.Request().Context()
	sessionID := req.SessionID
	history := incoming
	if sessionID != "" && s.Cache != nil {
		prior, err := s.Cache.Recent(ctx, sessionID)
		if err != nil {
			s.Logger.Printf("session cache read failed for %s: %v", sessionID, err)
		} else if len(prior) > 0 {
			history = append(append([]models.ChatTurn{}, prior...), incoming...)
		}
	}

	text, usage, err := s.Relay.Chat(ctx, history)
	if err != nil {
		return fail(c, err)
	}

	if sessionID != "" {
		s.logExchange(c, sessionID, incoming, text)
	}

	return c.JSON(http.StatusOK, chatResponse{
		Success:   true,
		Response:  text,
		Usage:     usage,
		SessionID: sessionID,
	})
}

// logExchange appends the turns to Postgres and the session cache. Both are
// best effort; a logging failure never fails the chat response.
func (s *Server) logExchange(c echo.Context, sessionID string, incoming []models.ChatTurn, reply string) {
	ctx := c.Request().Context()
	turns := append(append([]models.ChatTurn{}, incoming...), models.ChatTurn{Role: "assistant", Content: reply})
	for _, turn := range turns {
		if s.Store != nil {
			if err := s.Store.AppendConversationTurn(ctx, sessionID, turn.Role, turn.Content); err != nil {
				s.Logger.Printf("conversation log append failed for %s: %v", sessionID, err)
			}
		}
		if s.Cache != nil {
			if err := s.Cache.Append(ctx, sessionID, turn); err != nil {
				s.Logger.Printf("session cache append failed for %s: %v", sessionID, err)
			}
		}
	}
}
