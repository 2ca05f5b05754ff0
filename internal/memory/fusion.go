package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/easyislanders/concierge/internal/config"
	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/pkg/logger"
	"github.com/easyislanders/concierge/internal/pkg/metrics"
)

// SessionRecall defines ranked recall over a thread's stored snippets
type SessionRecall interface {
	Recall(ctx context.Context, threadID uuid.UUID, text string, limit int) ([]domain.MemorySnippet, error)
}

// FactStore defines read access to the user's knowledge graph. Reads are
// filtered to the predicate types the active domain consumes; a nil filter
// reads everything.
type FactStore interface {
	Current(ctx context.Context, userID string, predicates []string, limit int) ([]domain.MemoryFact, error)
}

// Fusion reads the three memory sources concurrently and composes one
// context string per turn. Each durable source gets its own timeout; missing
// its deadline turns its contribution empty and marks the result partial.
type Fusion struct {
	recall SessionRecall
	facts  FactStore
	buffer *ShortTermBuffer
	cfg    config.MemoryConfig
}

// NewFusion creates a new memory fusion
func NewFusion(recall SessionRecall, facts FactStore, buffer *ShortTermBuffer, cfg config.MemoryConfig) *Fusion {
	return &Fusion{
		recall: recall,
		facts:  facts,
		buffer: buffer,
		cfg:    cfg,
	}
}

type recallOut struct {
	snippets []domain.MemorySnippet
	ok       bool
}

type factOut struct {
	facts []domain.MemoryFact
	ok    bool
}

// Fuse assembles the context for one turn. It always returns a usable
// context within the fusion budget; degradation shows up as Partial, never
// as an error.
func (f *Fusion) Fuse(ctx context.Context, thread *domain.Thread, query string) *domain.FusedContext {
	start := time.Now()
	defer func() { metrics.RecordFusion(time.Since(start)) }()

	ctx, cancel := context.WithTimeout(ctx, f.cfg.FusionBudget())
	defer cancel()

	recallCh := make(chan recallOut, 1)
	factCh := make(chan factOut, 1)
	go f.readRecall(ctx, thread.ID, query, recallCh)
	go f.readFacts(ctx, thread, factCh)

	fused := &domain.FusedContext{
		Recent: f.buffer.Recent(thread.ID),
	}

	for pending := 2; pending > 0; pending-- {
		select {
		case out := <-recallCh:
			if !out.ok {
				fused.Partial = true
				continue
			}
			fused.Summary = composeSummary(out.snippets)
		case out := <-factCh:
			if !out.ok {
				fused.Partial = true
				continue
			}
			fused.Facts = out.facts
		case <-ctx.Done():
			// Budget exhausted before a source answered
			fused.Partial = true
			pending = 0
		}
	}

	fused.Retrieved = composeRetrieved(fused)
	return fused
}

func (f *Fusion) readRecall(ctx context.Context, threadID uuid.UUID, query string, out chan<- recallOut) {
	sctx, cancel := context.WithTimeout(ctx, f.cfg.SourceTimeout())
	defer cancel()

	start := time.Now()
	snippets, err := f.recall.Recall(sctx, threadID, query, f.cfg.RecallLimit)
	timedOut := errors.Is(err, context.DeadlineExceeded)
	metrics.RecordFusionSource("session", time.Since(start), timedOut)

	if err != nil {
		logger.Warn("session recall unavailable",
			zap.String("thread_id", threadID.String()),
			zap.Error(err),
		)
		out <- recallOut{}
		return
	}
	out <- recallOut{snippets: snippets, ok: true}
}

func (f *Fusion) readFacts(ctx context.Context, thread *domain.Thread, out chan<- factOut) {
	sctx, cancel := context.WithTimeout(ctx, f.cfg.SourceTimeout())
	defer cancel()

	predicates := domain.RelevantPredicates(thread.ActiveDomain)

	start := time.Now()
	facts, err := f.facts.Current(sctx, thread.UserID, predicates, f.cfg.FactLimit)
	timedOut := errors.Is(err, context.DeadlineExceeded)
	metrics.RecordFusionSource("knowledge_graph", time.Since(start), timedOut)

	if err != nil {
		logger.Warn("knowledge graph unavailable",
			zap.String("user_id", thread.UserID),
			zap.Error(err),
		)
		out <- factOut{}
		return
	}
	out <- factOut{facts: facts, ok: true}
}

// composeSummary flattens recall snippets into one text block. Snippets keep
// their rank order so the composition is deterministic for identical reads.
func composeSummary(snippets []domain.MemorySnippet) string {
	if len(snippets) == 0 {
		return ""
	}
	lines := make([]string, 0, len(snippets))
	for _, s := range snippets {
		lines = append(lines, fmt.Sprintf("%s: %s", s.Role, s.Content))
	}
	return strings.Join(lines, "\n")
}

// composeRetrieved renders the fused context as the single free-text block
// handed to agents. Sections appear in fixed order so identical inputs yield
// identical output.
func composeRetrieved(fused *domain.FusedContext) string {
	var b strings.Builder

	if len(fused.Facts) > 0 {
		b.WriteString("Known about this user:\n")
		for _, fact := range fused.Facts {
			fmt.Fprintf(&b, "- %s %s %s\n", fact.Subject, fact.Predicate, fact.Object)
		}
	}

	if fused.Summary != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Earlier in this conversation:\n")
		b.WriteString(fused.Summary)
		b.WriteString("\n")
	}

	if len(fused.Recent) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Most recent messages:\n")
		for _, turn := range fused.Recent {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
	}

	return b.String()
}
