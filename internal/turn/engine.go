// Package turn runs one voice turn end to end: load session, resolve the
// utterance, step the state machine, persist, reply.
package turn

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"

	"voxnav/internal/catalog"
	"voxnav/internal/dialog"
	"voxnav/internal/intent"
	"voxnav/internal/session"
	"voxnav/pkg/platform"
)

const retryPrompt = "Desculpe, não consegui completar agora. Pode tentar de novo?"

// Voicer is the optional local voicing hook; the daemon wires TTS plus the
// speaker behind it when --speak is on.
type Voicer func(ctx context.Context, spokenText string)

type Engine struct {
	store   session.Store
	cat     *catalog.Catalog
	machine *dialog.Machine
	voicer  Voicer
}

func NewEngine(store session.Store, cat *catalog.Catalog, machine *dialog.Machine) *Engine {
	return &Engine{store: store, cat: cat, machine: machine}
}

// OnSpoken registers a hook invoked with every reply after the turn is
// committed.
func (e *Engine) OnSpoken(v Voicer) { e.voicer = v }

// Handle runs one turn. The only error it returns is a malformed request;
// every dialog-level failure comes back as a normal spoken response with
// the session rolled back to its pre-turn value. Save runs last: if the
// platform times the turn out, no next-state mutation has been persisted.
func (e *Engine) Handle(ctx context.Context, req platform.TurnRequest) (platform.TurnResponse, error) {
	if err := req.Validate(); err != nil {
		return platform.TurnResponse{}, err
	}

	s, err := e.store.Load(ctx, req.UserID)
	if err != nil {
		// Load only fails on backend trouble; answer with the retry
		// prompt rather than surfacing an error the platform cannot
		// render.
		log.Error("session load failed", "user", req.UserID, "err", err)
		return e.respond(ctx, session.New(req.UserID), retryPrompt), nil
	}

	// First contact (or a session reset): speak the main menu before any
	// utterance is interpreted against it.
	if s.Level == session.LevelMenu && len(s.LastListing) == 0 {
		s.LastListing = e.cat.Root()
		if req.Utterance == "" {
			spoken := "Bem-vindo. " + dialog.RenderListing("Menu principal", s.LastListing)
			return e.commit(ctx, s, spoken), nil
		}
	}

	before := s.Clone()
	in := intent.Resolve(s, req.Utterance)

	spoken, err := e.machine.Step(ctx, s, in)
	if err != nil {
		// No partial transition is ever persisted: the turn restarts
		// from the pre-turn session on the next request.
		log.Warn("turn rolled back", "user", req.UserID, "intent", in.Kind, "err", err)
		return e.commit(ctx, before, retryPrompt), nil
	}

	return e.commit(ctx, s, spoken), nil
}

// commit persists the session and builds the response. A failed save keeps
// the previous durable state; the user repeats one turn instead of losing
// the conversation.
func (e *Engine) commit(ctx context.Context, s *session.Session, spoken string) platform.TurnResponse {
	if err := e.store.Save(ctx, s); err != nil {
		log.Error("session save failed", "user", s.UserID, "err", err)
	}
	return e.respond(ctx, s, spoken)
}

func (e *Engine) respond(ctx context.Context, s *session.Session, spoken string) platform.TurnResponse {
	attrs, err := json.Marshal(s)
	if err != nil {
		log.Error("session marshal failed", "user", s.UserID, "err", err)
	}

	if e.voicer != nil {
		e.voicer(ctx, spoken)
	}

	return platform.TurnResponse{
		SpokenText:        spoken,
		ShouldEndSession:  false,
		SessionAttributes: attrs,
	}
}

// Reset drops a user's session; surfaced over the control socket.
func (e *Engine) Reset(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("reset needs a user id")
	}
	return e.store.Reset(ctx, userID)
}
