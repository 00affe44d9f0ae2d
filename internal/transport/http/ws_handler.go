package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"gauntlet-service/internal/app"
	"gauntlet-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.ProgressService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ProgressService) *WSHandler {
	return &WSHandler{
		service: service,
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

type submitPayload struct {
	ChallengeID int64  `json:"challengeId"`
	Answer      string `json:"answer"`
}

type hintPayload struct {
	ChallengeID int64 `json:"challengeId"`
}

type statePayload struct {
	Challenges []domain.ChallengeState `json:"challenges"`
	Current    *domain.Challenge       `json:"current,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// errorPayload carries a machine-readable code so clients can tell a wrong
// answer from a locked challenge or a backend outage.
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes surfaced over the wire.
const (
	codeSubmissionsDisabled = "submissions_disabled"
	codeAccessDenied        = "access_denied"
	codeInvalidInput        = "invalid_input"
	codeNotFound            = "not_found"
	codeAlreadySolved       = "already_solved"
	codePersistenceFailure  = "persistence_failure"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrSubmissionsDisabled):
		return codeSubmissionsDisabled
	case errors.Is(err, domain.ErrChallengeLocked):
		return codeAccessDenied
	case errors.Is(err, domain.ErrEmptyAnswer):
		return codeInvalidInput
	case errors.Is(err, domain.ErrChallengeNotFound), errors.Is(err, domain.ErrRecordNotFound):
		return codeNotFound
	case errors.Is(err, domain.ErrRecordFinalized):
		return codeAlreadySolved
	default:
		return codePersistenceFailure
	}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// progression use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	participantID := r.URL.Query().Get("participantId")
	displayName := r.URL.Query().Get("name")
	if participantID == "" || displayName == "" {
		http.Error(w, "missing participantId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined, err := h.service.Join(r.Context(), participantID, displayName)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Code: errorCode(err), Message: err.Error()}})
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context())
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Code: errorCode(err), Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "standings", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joined}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: codeInvalidInput, Message: "invalid submit payload"}}
				continue
			}
			result, err := h.service.Submit(r.Context(), participantID, payload.ChallengeID, payload.Answer)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: errorCode(err), Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "submitResult", Payload: result}
		case "hint":
			var payload hintPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: codeInvalidInput, Message: "invalid hint payload"}}
				continue
			}
			hint, err := h.service.RevealHint(r.Context(), participantID, payload.ChallengeID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: errorCode(err), Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "hintResult", Payload: hint}
		case "state":
			states, current, err := h.service.ChallengeStates(r.Context(), participantID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: errorCode(err), Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "state", Payload: statePayload{Challenges: states, Current: current}}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: codeInvalidInput, Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
