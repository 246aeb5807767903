package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"quizweb/internal/config"
	"quizweb/internal/domain"
	"quizweb/internal/guard"
)

// WSHandler pushes session changes to single-page clients and runs the route
// guard over the client's in-app navigations.
type WSHandler struct {
	upgrader websocket.Upgrader
}

func NewWSHandler() *WSHandler {
	return &WSHandler{
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

type navigatePayload struct {
	Path string `json:"path"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type sessionPayload struct {
	Authenticated bool             `json:"authenticated"`
	Identity      *domain.Identity `json:"identity,omitempty"`
}

type redirectPayload struct {
	To string `json:"to"`
}

type navigatedPayload struct {
	Path string `json:"path"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and streams session and redirect events.
// The optional ?path= query is the page the client starts on.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	log := config.WithContext(r.Context())
	sess := sessionFrom(r.Context())
	if sess == nil {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}

	start := r.URL.Query().Get("path")
	if start == "" {
		start = "/"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	tracker := guard.NewTracker(start)
	updates, cancel := sess.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write error")
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
				msgs := []outboundMessage[any]{{Type: "session", Payload: sessionPayload{
					Authenticated: update.Authenticated(),
					Identity:      update.Identity,
				}}}
				if target, redirect := tracker.SessionChanged(update); redirect {
					msgs = append(msgs, outboundMessage[any]{Type: "redirect", Payload: redirectPayload{To: target}})
				}
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "navigate":
			var payload navigatePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Path == "" {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid navigate payload"}}
				continue
			}
			if target, redirect := tracker.Navigate(payload.Path); redirect {
				send <- outboundMessage[any]{Type: "redirect", Payload: redirectPayload{To: target}}
				continue
			}
			send <- outboundMessage[any]{Type: "navigated", Payload: navigatedPayload{Path: tracker.Path()}}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
