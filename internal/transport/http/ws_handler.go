package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pyquest-backend/internal/app"
	"pyquest-backend/internal/domain"
)

// WSHandler streams per-answer results over a websocket while a batch is
// being graded. The judge call takes seconds per answer, so clients get each
// verdict as soon as it lands instead of waiting for the whole batch.
type WSHandler struct {
	processor *app.BatchProcessor
	users     app.UserStore
	upgrader  websocket.Upgrader
	log       *zap.Logger
}

func NewWSHandler(processor *app.BatchProcessor, users app.UserStore, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		processor: processor,
		users:     users,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type summaryPayload struct {
	Results    []domain.ItemResult `json:"results"`
	Awarded    int                 `json:"awarded"`
	NewBalance int                 `json:"newBalance"`
}

// ServeWS upgrades the request and grades submitted batches, emitting one
// "result" message per answer in completion order and a final "summary".
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write error", zap.Error(err))
				return
			}
		}
	}()

	// emit never blocks on a dead writer; once the peer is gone the batch
	// still runs to completion and persists, we just stop reporting.
	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit":
			var payload submitRequest
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid submit payload"}})
				continue
			}

			user, err := h.users.Get(r.Context(), userID)
			if err != nil {
				emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}

			subs := make([]domain.SubmittedAnswer, len(payload.Answers))
			for i, a := range payload.Answers {
				subs[i] = a.toDomain()
			}

			result, err := h.processor.ProcessWithProgress(r.Context(), userID, user.SkillLevel, subs,
				func(item domain.ItemResult) {
					emit(outboundMessage[any]{Type: "result", Payload: item})
				})
			if err != nil {
				h.log.Error("ws process batch", zap.String("user", userID), zap.Error(err))
				result.NewBalance = user.Points
			}
			emit(outboundMessage[any]{Type: "summary", Payload: summaryPayload{
				Results:    result.Results,
				Awarded:    result.Awarded,
				NewBalance: result.NewBalance,
			}})
		default:
			emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(send)
	<-writerDone
}
