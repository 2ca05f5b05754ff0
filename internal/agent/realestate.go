package agent

import (
	"context"
	"fmt"
	"strconv"

	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/search"
)

const realEstateFallback = "I couldn't reach our property listings just now. " +
	"I've kept your preferences, so ask me again in a moment and I'll pick up right where we left off."

// RealEstateAgent handles property rental and purchase requests
type RealEstateAgent struct {
	search search.Client
	limit  int
}

// NewRealEstateAgent creates the real estate agent
func NewRealEstateAgent(searchClient search.Client) *RealEstateAgent {
	return &RealEstateAgent{search: searchClient, limit: 5}
}

// Domain returns the vertical this agent serves
func (a *RealEstateAgent) Domain() domain.BusinessDomain {
	return domain.DomainRealEstate
}

// RequiredSlots lists the slots needed before a property search can run
func (a *RealEstateAgent) RequiredSlots() []string {
	return []string{"location", "budget", "rental_type"}
}

// Handle runs a property search for a fully slot-filled request
func (a *RealEstateAgent) Handle(ctx context.Context, req domain.AgentRequest) (domain.AgentResponse, error) {
	amount, currency := parseBudget(req.Input["budget"])

	filter := domain.SearchFilter{
		Domain:   domain.DomainRealEstate,
		Location: req.Input["location"],
		MaxPrice: amount,
		Currency: currency,
		Variant:  req.Input["rental_type"],
		Limit:    a.limit,
	}

	result, err := a.search.Search(ctx, filter)
	if err != nil {
		return domain.AgentResponse{}, fmt.Errorf("real estate search failed: %w", err)
	}

	if result.Degraded {
		return domain.AgentResponse{
			ReplyText: realEstateFallback,
			Traces:    map[string]string{"search": "degraded"},
		}, nil
	}

	if len(result.Items) == 0 {
		return domain.AgentResponse{
			ReplyText: fmt.Sprintf(
				"I couldn't find any %s properties in %s within your budget. Would you like to raise the budget or try a nearby area?",
				variantLabel(filter.Variant), filter.Location),
			Actions: []domain.Action{
				{Type: domain.ActionSuggestFollowup, Text: "Try a nearby area"},
			},
			Traces: map[string]string{"results": "0"},
		}, nil
	}

	actions := []domain.Action{
		{Type: domain.ActionShowListings, Listings: result.Items},
		{Type: domain.ActionRememberFact, Fact: &domain.FactInput{
			Subject:    "user",
			Predicate:  "prefers_location",
			Object:     filter.Location,
			Confidence: 0.7,
		}},
	}

	return domain.AgentResponse{
		ReplyText: fmt.Sprintf(
			"I found %d %s properties in %s within your budget. Here are the best matches.",
			len(result.Items), variantLabel(filter.Variant), filter.Location),
		Actions: actions,
		Traces:  map[string]string{"results": strconv.Itoa(len(result.Items))},
	}, nil
}

func variantLabel(variant string) string {
	switch variant {
	case "long_term":
		return "long-term rental"
	case "short_term":
		return "short-term rental"
	case "sale":
		return "for-sale"
	default:
		return "rental"
	}
}
