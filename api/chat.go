package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/Domenick1991/airbooking/internal/intent"
	"github.com/Domenick1991/airbooking/internal/service/assistant"
	"github.com/Domenick1991/airbooking/internal/service/orders"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	msgUserMessage       = "user_message"
	msgPing              = "ping"
	msgPong              = "pong"
	msgAssistantChunk    = "assistant_chunk"
	msgAssistantComplete = "assistant_complete"
	msgDBResult          = "db_result"
	msgError             = "error"

	actionGetUserOrders = "get_user_orders"
)

type chatMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type userMessage struct {
	Text   string             `json:"text"`
	Action string             `json:"action"`
	Params intent.QueryParams `json:"params"`
	Lang   string             `json:"lang"`
}

type outMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ChatHandler serves the chat websocket. One goroutine per connection reads
// and answers messages in order.
type ChatHandler struct {
	assistant assistant.AssistantUseCase
	orders    orders.OrderUseCase
	streamer  intent.Streamer
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewChatHandler builds the handler. streamer may be nil, in which case text
// messages are answered with the assistant envelope.
func NewChatHandler(a assistant.AssistantUseCase, o orders.OrderUseCase, streamer intent.Streamer, allowedOrigins []string, logger *zap.Logger) *ChatHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return &ChatHandler{
		assistant: a,
		orders:    o,
		streamer:  streamer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
		},
		logger: logger,
	}
}

func (h *ChatHandler) Register(router *gin.RouterGroup) {
	router.GET("/chat", h.serve)
}

func (h *ChatHandler) serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	user, _ := strconv.ParseInt(c.GetHeader(userIDHeader), 10, 64)
	log := h.logger.With(zap.String("request_id", c.GetString(requestIDKey)), zap.Int64("user_id", user))
	log.Info("chat connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("chat read failed", zap.Error(err))
			}
			log.Info("chat disconnected")
			return
		}

		var msg chatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := send(conn, msgError, errorPayload("Invalid JSON")); err != nil {
				return
			}
			continue
		}

		var out []outMessage
		switch msg.Type {
		case msgPing:
			out = []outMessage{{Type: msgPong}}
		case msgUserMessage:
			var um userMessage
			if len(msg.Payload) > 0 {
				if err := json.Unmarshal(msg.Payload, &um); err != nil {
					out = []outMessage{{Type: msgError, Payload: errorPayload("Invalid payload")}}
					break
				}
			}
			if um.Action == "" && h.streamer != nil && um.Text != "" {
				if err := h.stream(c, conn, um.Text); err != nil {
					log.Warn("chat stream failed", zap.Error(err))
					return
				}
				continue
			}
			out = h.answer(c, user, um)
		default:
			out = []outMessage{{Type: msgError, Payload: errorPayload("Unknown message type")}}
		}

		for _, m := range out {
			if err := send(conn, m.Type, m.Payload); err != nil {
				log.Warn("chat write failed", zap.Error(err))
				return
			}
		}
	}
}

func (h *ChatHandler) answer(c *gin.Context, user int64, um userMessage) []outMessage {
	ctx := c.Request.Context()

	switch {
	case um.Action == actionGetUserOrders:
		if user <= 0 || h.orders == nil {
			return []outMessage{{Type: msgError, Payload: errorPayload("Orders require an identified user")}}
		}
		list, err := h.orders.List(ctx, user, false)
		if err != nil {
			h.logger.Error("chat orders lookup failed", zap.Error(err))
			return []outMessage{{Type: msgError, Payload: errorPayload("Failed to load orders")}}
		}
		now := time.Now()
		views := make([]orderResponse, 0, len(list))
		for i := range list {
			views = append(views, newOrderResponse(&list[i], now))
		}
		return []outMessage{{Type: msgDBResult, Payload: assistant.Wrap(assistant.CategoryOrders, views, len(views) == 0)}}

	case um.Action != "":
		res, err := h.assistant.RunAction(ctx, um.Action, um.Params, um.Lang)
		if err != nil {
			return []outMessage{{Type: msgError, Payload: errorPayload(chatError(err))}}
		}
		return []outMessage{{Type: msgDBResult, Payload: res}}

	default:
		env, err := h.assistant.Query(ctx, um.Text, um.Lang)
		if err != nil {
			return []outMessage{{Type: msgError, Payload: errorPayload(chatError(err))}}
		}
		return []outMessage{
			{Type: msgDBResult, Payload: env},
			{Type: msgAssistantComplete, Payload: gin.H{"done": true}},
		}
	}
}

func (h *ChatHandler) stream(c *gin.Context, conn *websocket.Conn, prompt string) error {
	err := h.streamer.Stream(c.Request.Context(), prompt, func(chunk string) error {
		return send(conn, msgAssistantChunk, gin.H{"text": chunk})
	})
	if err != nil {
		h.logger.Warn("assistant stream failed", zap.Error(err))
		return send(conn, msgError, errorPayload(chatError(err)))
	}
	return send(conn, msgAssistantComplete, gin.H{"done": true})
}

func chatError(err error) string {
	var (
		validation *domain.ValidationError
		extraction *domain.ExtractionError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &extraction):
		return "Intent service unavailable"
	default:
		return "Internal server error"
	}
}

func errorPayload(message string) gin.H {
	return gin.H{"message": message}
}

func send(conn *websocket.Conn, kind string, payload any) error {
	return conn.WriteJSON(outMessage{Type: kind, Payload: payload})
}
