// Package gateway terminates the Slack Events API webhook: it answers URL
// verification challenges, verifies request signatures, and hands verified
// app_mention events to the reply path without holding the HTTP response
// open.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/slack-go/slack/slackevents"

	"github.com/philbarbeau/philgpt/internal/reply"
)

const ackText = "I'm a slackbot working hard! beep boop"

// MentionHandler consumes dispatched app_mention events. *reply.Responder
// satisfies it.
type MentionHandler interface {
	Handle(ctx context.Context, m reply.Mention)
}

type Server struct {
	router        *chi.Mux
	signingSecret string
	dispatcher    *Dispatcher
	responder     MentionHandler
	logger        *slog.Logger
}

func NewServer(signingSecret string, dispatcher *Dispatcher, responder MentionHandler, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	s := &Server{
		router:        router,
		signingSecret: signingSecret,
		dispatcher:    dispatcher,
		responder:     responder,
		logger:        logger,
	}

	router.Post("/", s.events)
	router.Get("/health", s.health)

	return s
}

// Handler exposes the router for the HTTP server in main.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// events is the single webhook endpoint. URL verification challenges are
// echoed before any signature check; everything else must carry a valid
// signature and be an app_mention, or it is rejected with a bare 403.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		forbidden(w)
		return
	}

	var probe struct {
		Type      string `json:"type"`
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		forbidden(w)
		return
	}
	if probe.Type == slackevents.URLVerification {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(probe.Challenge))
		return
	}

	timestamp := r.Header.Get("X-Slack-Request-Timestamp")
	signature := r.Header.Get("X-Slack-Signature")
	if !validSignature(body, timestamp, signature, s.signingSecret) {
		s.logger.Warn("rejected request with invalid signature", "timestamp", timestamp)
		forbidden(w)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil || event.Type != slackevents.CallbackEvent {
		forbidden(w)
		return
	}
	mention, ok := event.InnerEvent.Data.(*slackevents.AppMentionEvent)
	if !ok {
		forbidden(w)
		return
	}

	m := reply.Mention{
		Channel: mention.Channel,
		TS:      mention.TimeStamp,
		Text:    mention.Text,
	}
	if !s.dispatcher.TryGo(func(ctx context.Context) {
		s.responder.Handle(ctx, m)
	}) {
		// Non-2xx makes Slack redeliver the event once capacity frees up.
		s.logger.Warn("reply dispatcher saturated, deferring mention", "channel", m.Channel, "ts", m.TS)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(ackText))
}

func forbidden(w http.ResponseWriter) {
	w.WriteHeader(http.StatusForbidden)
}

// validSignature checks the v0 HMAC-SHA256 signature over the raw request
// body with a constant-time comparison.
func validSignature(body []byte, timestamp, signature, secret string) bool {
	if timestamp == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}
