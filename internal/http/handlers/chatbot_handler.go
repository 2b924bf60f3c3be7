// Chatbot HTTP handlers.
//
// This file exposes the chatbot endpoints:
//   - POST /chatbot/messages              (send one turn)
//   - GET  /chatbot/conversations/{id}    (transcript, ETag support)
//   - GET  /chatbot/suggestions           (starter prompts)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-travel-portal/internal/http/middleware"
	"github.com/tbourn/go-travel-portal/internal/services"
	"github.com/tbourn/go-travel-portal/internal/sysutil"
)

// HeaderReplayed marks a response served from a stored idempotent result.
const HeaderReplayed = "Idempotency-Replayed"

//
// DTOs
//

// SendMessageRequest is the JSON payload of a chatbot turn. The session id
// may also be supplied with the X-Session-ID header.
type SendMessageRequest struct {
	Message        string `json:"message" example:"Where can I stay near Sossusvlei?"`
	SessionID      string `json:"sessionId" example:"3f7b0c4e-6a61-4d2b-9a55-1c0f7c1d2e9a"`
	ConversationID *uint  `json:"conversationId,omitempty" example:"42"`
}

// SendMessageResponse is the assistant reply to a turn.
type SendMessageResponse struct {
	ConversationID uint   `json:"conversationId" example:"42"`
	Message        string `json:"message" example:"Desert Quiver Camp in Sesriem is a good base..."`
}

// ConversationResponse is a transcript, oldest message first.
type ConversationResponse struct {
	Messages []services.HistoryMessage `json:"messages"`
}

// SuggestionsResponse lists starter prompts.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// SendMessage godoc
// @ID          sendChatbotMessage
// @Summary     Send a chatbot message
// @Description Runs one chatbot turn. Without conversationId a new conversation is started. Retries carrying the same Idempotency-Key and session replay the stored reply.
// @Tags        Chatbot
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key"        example(turn-7c1d)
// @Param       X-Session-ID     header  string  false "Session id (alternative to body field)"
// @Param       body             body    handlers.SendMessageRequest  true  "Turn payload"
//
// @Success     200  {object}  handlers.SendMessageResponse
// @Header      200  {string}  Idempotency-Replayed  "true when a stored reply was replayed"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Idempotency key reused for another conversation"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /chatbot/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	res, err := h.chatSvc.SendMessage(c.Request.Context(), services.SendInput{
		Message:        req.Message,
		SessionID:      strings.TrimSpace(sysutil.FirstNonEmpty(req.SessionID, c.GetHeader(middleware.HeaderSessionID))),
		ConversationID: req.ConversationID,
		IdempotencyKey: key,
	})
	if err != nil {
		chatError(c, err)
		return
	}

	if res.Replayed {
		c.Header(HeaderReplayed, "true")
	}
	ok(c, http.StatusOK, SendMessageResponse{
		ConversationID: res.ConversationID,
		Message:        res.Message,
	})
}

// GetConversation godoc
// @ID          getChatbotConversation
// @Summary     Get a conversation transcript
// @Description Returns the messages of a conversation, oldest first. Unknown conversations yield an empty list. Supports weak ETag via If-None-Match.
// @Tags        Chatbot
// @Produce     json
//
// @Param       id             path    int     true  "Conversation ID"  minimum(1)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object}  handlers.ConversationResponse
// @Header      200  {string}  ETag  "Weak ETag for current transcript"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /chatbot/conversations/{id} [get]
func (h *Handlers) GetConversation(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := parseID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a positive integer")
		return
	}

	// ETag pre-check (best effort).
	if count, lastAt, err := h.chatSvc.ConversationStats(ctx, id); err == nil {
		var ts int64
		if lastAt != nil {
			ts = lastAt.UnixNano()
		}
		if notModified(c, fmt.Sprintf(`W/"conversation:%d:%d:%d"`, id, count, ts)) {
			return
		}
	}

	ok(c, http.StatusOK, ConversationResponse{Messages: h.chatSvc.GetConversation(ctx, id)})
}

// GetSuggestions godoc
// @ID          getChatbotSuggestions
// @Summary     Starter prompts
// @Description Returns the fixed list of suggested first questions.
// @Tags        Chatbot
// @Produce     json
// @Success     200  {object}  handlers.SuggestionsResponse
// @Router      /chatbot/suggestions [get]
func (h *Handlers) GetSuggestions(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=3600")
	ok(c, http.StatusOK, SuggestionsResponse{Suggestions: h.chatSvc.Suggestions()})
}

// chatError maps chatbot service errors to responses. Store failures are
// reported generically.
func chatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrMessageTooLong),
		errors.Is(err, services.ErrMissingSession):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrConversationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
	case errors.Is(err, services.ErrIdempotencyKeyReused):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrUnavailable):
		middleware.LoggerFrom(c).Error().Err(err).Msg("chat turn failed")
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "service temporarily unavailable")
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("chat turn failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// parseID parses a positive integer path id.
func parseID(raw string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.New("id must be positive")
	}
	return uint(n), nil
}
