package agent

import (
	"context"
	"fmt"
	"strconv"

	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/search"
)

const vehicleRentalFallback = "I couldn't reach our vehicle listings just now. " +
	"Your details are saved, so try again shortly and I'll continue from here."

// VehicleRentalAgent handles car and scooter hire requests
type VehicleRentalAgent struct {
	search search.Client
	limit  int
}

// NewVehicleRentalAgent creates the vehicle rental agent
func NewVehicleRentalAgent(searchClient search.Client) *VehicleRentalAgent {
	return &VehicleRentalAgent{search: searchClient, limit: 5}
}

// Domain returns the vertical this agent serves
func (a *VehicleRentalAgent) Domain() domain.BusinessDomain {
	return domain.DomainVehicleRental
}

// RequiredSlots lists the slots needed before a vehicle search can run
func (a *VehicleRentalAgent) RequiredSlots() []string {
	return []string{"location", "vehicle_type", "duration"}
}

// Handle runs a vehicle search for a fully slot-filled request
func (a *VehicleRentalAgent) Handle(ctx context.Context, req domain.AgentRequest) (domain.AgentResponse, error) {
	filter := domain.SearchFilter{
		Domain:   domain.DomainVehicleRental,
		Location: req.Input["location"],
		Variant:  req.Input["vehicle_type"],
		Extra:    map[string]string{"duration": req.Input["duration"]},
		Limit:    a.limit,
	}
	if budget, ok := req.Input["budget"]; ok {
		filter.MaxPrice, filter.Currency = parseBudget(budget)
	}

	result, err := a.search.Search(ctx, filter)
	if err != nil {
		return domain.AgentResponse{}, fmt.Errorf("vehicle rental search failed: %w", err)
	}

	if result.Degraded {
		return domain.AgentResponse{
			ReplyText: vehicleRentalFallback,
			Traces:    map[string]string{"search": "degraded"},
		}, nil
	}

	if len(result.Items) == 0 {
		return domain.AgentResponse{
			ReplyText: fmt.Sprintf(
				"No %s options are available for pickup in %s right now. Want me to check a different vehicle type?",
				filter.Variant, filter.Location),
			Actions: []domain.Action{
				{Type: domain.ActionSuggestFollowup, Text: "Check a different vehicle type"},
			},
			Traces: map[string]string{"results": "0"},
		}, nil
	}

	return domain.AgentResponse{
		ReplyText: fmt.Sprintf(
			"I found %d %s options for pickup in %s. Here's what's available.",
			len(result.Items), filter.Variant, filter.Location),
		Actions: []domain.Action{
			{Type: domain.ActionShowListings, Listings: result.Items},
			{Type: domain.ActionRememberFact, Fact: &domain.FactInput{
				Subject:    "user",
				Predicate:  "prefers_vehicle_type",
				Object:     filter.Variant,
				Confidence: 0.7,
			}},
		},
		Traces: map[string]string{"results": strconv.Itoa(len(result.Items))},
	}, nil
}
