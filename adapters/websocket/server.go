package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kalastudio/concierge/domain"
	"github.com/kalastudio/concierge/usecase"
	"github.com/kalastudio/concierge/utils/log"
)

// Server wires companion sessions onto websocket connections. Each
// connection gets its own Companion, LeadStore and DirectiveExecutor; the
// only shared pieces are the stateless ChatService and the event broker.
type Server struct {
	upgrader   websocket.Upgrader
	svc        *usecase.ChatService
	classifier *usecase.IntentClassifier
	resolver   *usecase.ContactResolver
	broker     domain.EventBroker
	hub        *Hub
}

func NewServer(svc *usecase.ChatService, classifier *usecase.IntentClassifier, resolver *usecase.ContactResolver, broker domain.EventBroker) *Server {
	return &Server{
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		svc:        svc,
		classifier: classifier,
		resolver:   resolver,
		broker:     broker,
		hub:        NewHub(),
	}
}

func (s *Server) RunWebsocketHub() {
	s.hub.Run()
}

// Frame is one outbound websocket message to the companion widget.
type Frame struct {
	Type      string              `json:"type"`
	MessageID string              `json:"message_id,omitempty"`
	Text      string              `json:"text,omitempty"`
	Code      string              `json:"code,omitempty"`
	Action    *domain.ActionEvent `json:"action,omitempty"`
	Lead      *domain.LeadContext `json:"lead,omitempty"`
}

type inboundFrame struct {
	Type  string `json:"type"`
	Path  string `json:"path,omitempty"`
	Text  string `json:"text,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// session binds one connection to one companion lifecycle.
type session struct {
	id        string
	server    *Server
	client    *Client
	leads     *usecase.LeadStore
	companion *usecase.Companion
}

func (s *Server) newSession(sessionID string) *session {
	sess := &session{
		id:     sessionID,
		server: s,
		leads:  usecase.NewLeadStore(),
	}

	exec := usecase.NewDirectiveExecutor(map[domain.DirectiveKind]usecase.DirectiveHandler{
		domain.DirectiveNavigate:        sess.handleNavigate,
		domain.DirectiveConnectWhatsApp: sess.handleConnectWhatsApp,
		domain.DirectiveShowConnectForm: sess.handleShowConnectForm,
	})

	sess.companion = usecase.NewCompanion(s.svc, s.classifier, sess.leads, exec, usecase.CompanionCallbacks{
		OnChunk: func(messageID, visibleText string) {
			sess.send(Frame{Type: "chunk", MessageID: messageID, Text: visibleText})
		},
		OnComplete: func(messageID, visibleText string) {
			sess.send(Frame{Type: "complete", MessageID: messageID, Text: visibleText})
		},
		OnError: func(code, userMessage string) {
			sess.send(Frame{Type: "error", Code: code, Text: userMessage})
		},
	})

	return sess
}

func (sess *session) send(f Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		log.WithCtx(sess.client.Context()).Error("marshaling frame", zap.Error(err))
		return
	}
	sess.client.SendMessage(payload)
}

func (sess *session) publish(ctx context.Context, event domain.ActionEvent) error {
	event.SessionID = sess.id
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return sess.server.broker.Publish(ctx, domain.ActionTopic, sess.id, payload)
}

func (sess *session) handleNavigate(ctx context.Context, d domain.Directive) error {
	return sess.publish(ctx, domain.ActionEvent{
		Type: domain.ActionNavigate,
		Path: d.Payload,
	})
}

func (sess *session) handleConnectWhatsApp(ctx context.Context, d domain.Directive) error {
	return sess.publish(ctx, domain.ActionEvent{
		Type: domain.ActionOpenWhatsApp,
		URL:  sess.server.resolver.ResolveContactLink(sess.leads.Lead()),
	})
}

func (sess *session) handleShowConnectForm(ctx context.Context, d domain.Directive) error {
	lead := sess.leads.Lead()
	return sess.publish(ctx, domain.ActionEvent{
		Type: domain.ActionShowConnectForm,
		Lead: &lead,
	})
}

// handleFrame is the single driver of session state: invoked from the read
// loop, one frame at a time.
func (sess *session) handleFrame(ctx context.Context, frame []byte) {
	var in inboundFrame
	if err := json.Unmarshal(frame, &in); err != nil {
		sess.send(Frame{Type: "error", Code: "bad_frame", Text: "frames must be JSON"})
		return
	}

	switch in.Type {
	case "open":
		sess.companion.Open(in.Path)
	case "close":
		sess.companion.Close()
	case "path":
		sess.companion.SetPath(in.Path)
	case "chat":
		err := sess.companion.Submit(ctx, in.Text)
		switch {
		case errors.Is(err, usecase.ErrBusy):
			sess.send(Frame{Type: "error", Code: "busy", Text: "Hold on, I'm still answering your last message."})
		case errors.Is(err, usecase.ErrNotOpen):
			sess.send(Frame{Type: "error", Code: "not_open", Text: "Open the companion first."})
		}
	case "lead":
		sess.leads.SetContact(in.Name, in.Email)
		lead := sess.leads.Lead()
		sess.send(Frame{Type: "lead", Lead: &lead})
	default:
		sess.send(Frame{Type: "error", Code: "unknown_type", Text: "unknown frame type"})
	}
}

// forwardActions relays this session's action events from the broker to the
// websocket until the connection closes.
func (sess *session) forwardActions(ctx context.Context) {
	events, err := sess.server.broker.Subscribe(ctx, domain.ActionTopic, sess.id)
	if err != nil {
		log.WithCtx(ctx).Error("subscribing to action events", zap.Error(err))
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			var action domain.ActionEvent
			if err := json.Unmarshal(ev.Payload, &action); err != nil {
				log.WithCtx(ctx).Error("unmarshaling action event", zap.Error(err))
				continue
			}
			frame, err := json.Marshal(Frame{Type: "action", Action: &action})
			if err != nil {
				log.WithCtx(ctx).Error("marshaling action frame", zap.Error(err))
				continue
			}
			if err := sess.server.hub.SendToSession(sess.id, frame); err != nil {
				log.WithCtx(ctx).Warn("delivering action frame", zap.Error(err))
				continue
			}
			log.WithCtx(ctx).Info("action forwarded", zap.String("action", action.Type))
		case <-ctx.Done():
			return
		}
	}
}
