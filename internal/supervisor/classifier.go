package supervisor

import (
	"strings"

	"github.com/easyislanders/concierge/internal/config"
	"github.com/easyislanders/concierge/internal/domain"
)

// Classification is the routing decision for one utterance
type Classification struct {
	Domain     domain.BusinessDomain
	Intent     string
	Confidence float64
	// ExplicitKeyword marks that the utterance named the domain directly,
	// which overrides sticky pinning
	ExplicitKeyword bool
}

// domainVocabulary scores an utterance for one vertical. Explicit keywords
// name the domain unambiguously; weak keywords only accumulate evidence.
type domainVocabulary struct {
	domain   domain.BusinessDomain
	intent   string
	explicit []string
	weak     []string
}

var vocabularies = []domainVocabulary{
	{
		domain:   domain.DomainRealEstate,
		intent:   "find_rental",
		explicit: []string{"apartment", "flat", "house", "villa", "studio", "property", "rent a place", "accommodation"},
		weak:     []string{"bedroom", "furnished", "landlord", "deposit", "tenant", "move in", "live in"},
	},
	{
		domain:   domain.DomainVehicleRental,
		intent:   "rent_vehicle",
		explicit: []string{"car", "vehicle", "scooter", "motorbike", "jeep", "rent a car", "hire a car"},
		weak:     []string{"drive", "pickup", "pick up", "automatic", "manual", "airport", "driving"},
	},
}

const (
	explicitKeywordScore = 0.65
	weakKeywordScore     = 0.15
	maxConfidence        = 0.95
)

// Classifier scores utterances against the domain vocabularies and applies
// sticky pinning against the thread's active domain.
type Classifier struct {
	cfg config.SupervisorConfig
}

// NewClassifier creates a new intent classifier
func NewClassifier(cfg config.SupervisorConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify routes one utterance. Pinning rule: when the thread is already
// mid-slot-fill for a domain, a rival domain must beat the pinned one by more
// than the tie margin, or name itself with an explicit keyword, to win.
func (c *Classifier) Classify(input string, pinned domain.BusinessDomain) Classification {
	lowered := strings.ToLower(input)

	best := Classification{Domain: domain.DomainNone}
	var pinnedScore Classification

	for _, vocab := range vocabularies {
		score, explicit := vocab.score(lowered)
		cand := Classification{
			Domain:          vocab.domain,
			Intent:          vocab.intent,
			Confidence:      score,
			ExplicitKeyword: explicit,
		}
		if vocab.domain == pinned {
			pinnedScore = cand
		}
		if score > best.Confidence {
			best = cand
		}
	}

	if pinned == domain.DomainNone || best.Domain == pinned {
		return best
	}

	// A rival domain leads. Keep the pinned domain unless the rival named
	// itself explicitly or cleared the tie margin.
	if !best.ExplicitKeyword && best.Confidence < pinnedScore.Confidence+c.cfg.TieMargin {
		return keepPinned(pinnedScore, pinned)
	}

	// Low-confidence domain switches are ignored outright: mid-slot-fill a
	// weak rival signal is far more often noise than a real topic change.
	if best.Confidence < c.cfg.ConfidenceFloor {
		return keepPinned(pinnedScore, pinned)
	}

	return best
}

func keepPinned(pinnedScore Classification, pinned domain.BusinessDomain) Classification {
	if pinnedScore.Domain == domain.DomainNone {
		// The pinned domain scored nothing this turn; keep it anyway with
		// enough confidence to stay out of the clarify path
		return Classification{Domain: pinned, Intent: intentFor(pinned), Confidence: 0.6}
	}
	if pinnedScore.Confidence < 0.6 {
		pinnedScore.Confidence = 0.6
	}
	return pinnedScore
}

func intentFor(d domain.BusinessDomain) string {
	for _, vocab := range vocabularies {
		if vocab.domain == d {
			return vocab.intent
		}
	}
	return ""
}

func (v domainVocabulary) score(lowered string) (float64, bool) {
	var score float64
	explicit := false

	for _, kw := range v.explicit {
		if strings.Contains(lowered, kw) {
			score += explicitKeywordScore
			explicit = true
		}
	}
	for _, kw := range v.weak {
		if strings.Contains(lowered, kw) {
			score += weakKeywordScore
		}
	}

	if score > maxConfidence {
		score = maxConfidence
	}
	return score, explicit
}
