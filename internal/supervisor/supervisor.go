package supervisor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/easyislanders/concierge/internal/agent"
	"github.com/easyislanders/concierge/internal/config"
	"github.com/easyislanders/concierge/internal/domain"
	apperrors "github.com/easyislanders/concierge/internal/pkg/errors"
	"github.com/easyislanders/concierge/internal/pkg/logger"
)

// MemoryFusion assembles the per-turn context
type MemoryFusion interface {
	Fuse(ctx context.Context, thread *domain.Thread, query string) *domain.FusedContext
}

// FactWriter appends knowledge graph facts
type FactWriter interface {
	Append(ctx context.Context, fact *domain.MemoryFact) error
}

// SessionWriter stores conversation snippets for later recall
type SessionWriter interface {
	Write(ctx context.Context, threadID uuid.UUID, snippet *domain.MemorySnippet) error
}

// BufferWriter feeds the in-process short-term buffer
type BufferWriter interface {
	Append(threadID uuid.UUID, turn domain.BufferedTurn)
}

const searchDegradedFallback = "Our listing search is taking too long right now. " +
	"I've kept everything you told me, so just ask again in a moment."

// Outcome is the supervisor's decision for one processed turn
type Outcome struct {
	Act       domain.Act
	State     domain.TurnState
	Domain    domain.BusinessDomain
	Intent    string
	ReplyText string
	// Listings carries the show_listings payload for the delivery envelope
	Listings []domain.Listing
	// Followup is an optional suggested next step for the client UI
	Followup string
	// PartialMemory marks that fusion missed at least one source
	PartialMemory bool
}

// Supervisor drives the slot-filling state machine for one turn at a time.
// The caller must hold the thread's turn lease; within a turn the supervisor
// is the only writer of the thread's slot map.
type Supervisor struct {
	registry   *agent.Registry
	fusion     MemoryFusion
	facts      FactWriter
	session    SessionWriter
	buffer     BufferWriter
	classifier *Classifier
	extractor  *SlotExtractor
	cfg        config.SupervisorConfig
}

// New creates a new supervisor
func New(
	registry *agent.Registry,
	fusion MemoryFusion,
	facts FactWriter,
	session SessionWriter,
	buffer BufferWriter,
	cfg config.SupervisorConfig,
) *Supervisor {
	return &Supervisor{
		registry:   registry,
		fusion:     fusion,
		facts:      facts,
		session:    session,
		buffer:     buffer,
		classifier: NewClassifier(cfg),
		extractor:  NewSlotExtractor(),
		cfg:        cfg,
	}
}

// Process decides one turn. It mutates the thread in memory (domain, intent,
// slots, turn count); persisting that checkpoint is the caller's job so it
// can commit atomically with the turn itself.
func (s *Supervisor) Process(ctx context.Context, thread *domain.Thread, turn *domain.Turn) *Outcome {
	log := logger.WithThreadID(thread.ID.String())

	state := &domain.SupervisorState{
		ThreadID:  thread.ID,
		UserInput: turn.Input,
		Slots:     thread.Slots.Clone(),
		State:     domain.TurnStateCollecting,
	}

	fused := s.fusion.Fuse(ctx, thread, turn.Input)
	state.RetrievedContext = fused.Retrieved
	state.MemorySummary = fused.Summary
	state.MemoryFacts = fused.Facts
	state.MemoryRecent = fused.Recent

	cls := s.classifier.Classify(turn.Input, thread.ActiveDomain)
	state.Domain = cls.Domain
	state.Intent = cls.Intent
	state.Confidence = cls.Confidence

	outcome := s.decide(ctx, thread, turn, state, cls, fused)
	outcome.PartialMemory = fused.Partial

	s.recordTurn(ctx, thread, turn.Input, outcome.ReplyText)
	thread.Checkpoint(outcome.Domain, outcome.Intent, state.Slots, time.Now())

	log.Info("turn decided",
		zap.String("act", string(outcome.Act)),
		zap.String("domain", string(outcome.Domain)),
		zap.Float64("confidence", cls.Confidence),
		zap.Bool("partial_memory", fused.Partial),
	)
	return outcome
}

func (s *Supervisor) decide(
	ctx context.Context,
	thread *domain.Thread,
	turn *domain.Turn,
	state *domain.SupervisorState,
	cls Classification,
	fused *domain.FusedContext,
) *Outcome {
	// No resolvable domain: answer with a disambiguation question, dispatch
	// nothing
	if cls.Domain == domain.DomainNone ||
		(thread.ActiveDomain == domain.DomainNone && cls.Confidence < s.cfg.ConfidenceFloor) {
		state.Act = domain.ActClarify
		return &Outcome{
			Act:       domain.ActClarify,
			State:     domain.TurnStateCollecting,
			Domain:    thread.ActiveDomain,
			Intent:    thread.CurrentIntent,
			ReplyText: clarifyPrompt,
		}
	}

	active := cls.Domain
	intent := cls.Intent
	handoff := thread.ActiveDomain != domain.DomainNone && active != thread.ActiveDomain

	if handoff && !cls.ExplicitKeyword && cls.Confidence < s.cfg.HandoffConfidence {
		// Not confident enough to switch: stay pinned
		active = thread.ActiveDomain
		intent = thread.CurrentIntent
		handoff = false
	}

	extracted := s.extractor.Extract(turn.Input)
	state.Slots.Merge(extracted, s.cfg.SlotOverwriteThreshold)
	state.PendingSlots = state.Slots.Pending(s.registry.RequiredSlots(active))

	if handoff {
		state.Act = domain.ActHandoff
		reply := handoffPrompt(active)
		if next := state.NextSlot(); next != "" {
			reply += " " + askPrompt(next, thread.TurnCount)
		}
		return &Outcome{
			Act:       domain.ActHandoff,
			State:     domain.TurnStateCollecting,
			Domain:    active,
			Intent:    intent,
			ReplyText: reply,
		}
	}

	if !state.Ready() {
		state.Act = domain.ActAskSlot
		return &Outcome{
			Act:       domain.ActAskSlot,
			State:     domain.TurnStateCollecting,
			Domain:    active,
			Intent:    intent,
			ReplyText: askPrompt(state.NextSlot(), thread.TurnCount),
		}
	}

	state.State = domain.TurnStateReady
	return s.dispatch(ctx, thread, turn, state, active, intent, fused)
}

func (s *Supervisor) dispatch(
	ctx context.Context,
	thread *domain.Thread,
	turn *domain.Turn,
	state *domain.SupervisorState,
	active domain.BusinessDomain,
	intent string,
	fused *domain.FusedContext,
) *Outcome {
	log := logger.WithThreadID(thread.ID.String())

	handler, err := s.registry.Get(active)
	if err != nil {
		log.Error("no agent for domain", zap.String("domain", string(active)), zap.Error(err))
		return s.errorOutcome(active, intent)
	}

	state.State = domain.TurnStateDispatched
	req := domain.AgentRequest{
		ThreadID:    thread.ID,
		ClientMsgID: turn.ClientMsgID,
		Intent:      intent,
		Input:       state.Slots.Values(),
		Context: domain.AgentContext{
			UserID:    thread.UserID,
			Locale:    "en-GB",
			Time:      time.Now(),
			Retrieved: fused.Retrieved,
			Summary:   fused.Summary,
		},
	}

	resp, err := handler.Handle(ctx, req)
	if err != nil {
		if apperrors.IsSearchDegraded(err) {
			// Soft failure: answer with the fallback, retry happens on the
			// user's next turn, never inside this one
			log.Warn("search degraded", zap.Error(err))
			return &Outcome{
				Act:       domain.ActSearchAndRecommend,
				State:     domain.TurnStateDispatched,
				Domain:    active,
				Intent:    intent,
				ReplyText: searchDegradedFallback,
			}
		}
		log.Error("agent failed", zap.String("domain", string(active)), zap.Error(err))
		return s.errorOutcome(active, intent)
	}

	if err := resp.Validate(); err != nil {
		// A malformed agent response is fatal for the turn; it must never
		// reach the client as if it were a valid reply
		violation := apperrors.ContractViolation(err.Error())
		log.Error("agent response rejected", zap.String("domain", string(active)), zap.Error(violation))
		return s.errorOutcome(active, intent)
	}

	outcome := &Outcome{
		Act:       domain.ActSearchAndRecommend,
		State:     domain.TurnStateDispatched,
		Domain:    active,
		Intent:    intent,
		ReplyText: resp.ReplyText,
	}
	s.applyActions(ctx, thread, resp.Actions, outcome)
	return outcome
}

// applyActions executes agent side effects. Agents never touch shared state
// themselves; this is the single place their actions take effect.
func (s *Supervisor) applyActions(ctx context.Context, thread *domain.Thread, actions []domain.Action, outcome *Outcome) {
	now := time.Now().UTC()
	for _, action := range actions {
		switch action.Type {
		case domain.ActionShowListings:
			outcome.Listings = action.Listings

		case domain.ActionRememberFact:
			fact := &domain.MemoryFact{
				UserID:     thread.UserID,
				Subject:    action.Fact.Subject,
				Predicate:  action.Fact.Predicate,
				Object:     action.Fact.Object,
				Confidence: action.Fact.Confidence,
				ValidFrom:  now,
				CreatedAt:  now,
			}
			if err := s.facts.Append(ctx, fact); err != nil {
				// Lost memory is not a lost turn
				logger.WithThreadID(thread.ID.String()).Warn("fact write failed", zap.Error(err))
			}

		case domain.ActionSuggestFollowup:
			outcome.Followup = action.Text

		case domain.ActionRequestHandoff:
			logger.WithThreadID(thread.ID.String()).Info("agent requested handoff",
				zap.String("target", string(action.Target)))
		}
	}
}

// recordTurn writes both halves of the exchange into session memory and the
// short-term buffer. Failures degrade recall quality only.
func (s *Supervisor) recordTurn(ctx context.Context, thread *domain.Thread, input, reply string) {
	now := time.Now().UTC()

	s.buffer.Append(thread.ID, domain.BufferedTurn{Role: domain.RoleUser, Content: input, At: now})
	s.buffer.Append(thread.ID, domain.BufferedTurn{Role: domain.RoleAssistant, Content: reply, At: now})

	for _, snippet := range []domain.MemorySnippet{
		{Role: domain.RoleUser, Content: input, At: now},
		{Role: domain.RoleAssistant, Content: reply, At: now},
	} {
		if err := s.session.Write(ctx, thread.ID, &snippet); err != nil {
			logger.WithThreadID(thread.ID.String()).Warn("session memory write failed", zap.Error(err))
			return
		}
	}
}

func (s *Supervisor) errorOutcome(active domain.BusinessDomain, intent string) *Outcome {
	return &Outcome{
		Act:       domain.ActError,
		State:     domain.TurnStateDispatched,
		Domain:    active,
		Intent:    intent,
		ReplyText: errorFallback,
	}
}
