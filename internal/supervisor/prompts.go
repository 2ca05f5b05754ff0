package supervisor

import (
	"fmt"

	"github.com/easyislanders/concierge/internal/domain"
)

// askPrompts holds the follow-up question variants per slot. Consecutive
// asks for the same slot rotate variants so a failed extraction re-asks with
// a rephrased prompt instead of repeating itself verbatim.
var askPrompts = map[string][]string{
	"location": {
		"Which area are you looking in? Kyrenia, Famagusta, Nicosia, or somewhere else?",
		"Could you tell me the town or area you'd like? For example Kyrenia or Famagusta.",
	},
	"budget": {
		"What's your budget? You can give it in pounds, euros, or lira.",
		"Roughly how much would you like to spend, and in which currency?",
	},
	"rental_type": {
		"Is this a long-term rental, a short-term stay, or are you looking to buy?",
		"Just to be sure: long term, short term, or a purchase?",
	},
	"vehicle_type": {
		"What kind of vehicle do you need? A car, scooter, jeep, or motorbike?",
		"Which vehicle type works for you, for example a car or a scooter?",
	},
	"duration": {
		"How long do you need it for? A few days, a week, a month?",
		"For how many days or weeks would you like it?",
	},
}

const (
	clarifyPrompt = "I can help you find a place to stay or rent a vehicle here in North Cyprus. Which would you like?"

	errorFallback = "Sorry, something went wrong on my side while handling that. " +
		"Your conversation is safe, please try sending that again."
)

// askPrompt returns the follow-up question for a missing slot, rotated by
// the thread's turn count so consecutive re-asks rephrase
func askPrompt(slot string, turnCount int) string {
	variants, ok := askPrompts[slot]
	if !ok {
		return fmt.Sprintf("Could you tell me the %s?", slot)
	}
	return variants[turnCount%len(variants)]
}

// handoffPrompt acknowledges a mid-conversation domain switch
func handoffPrompt(to domain.BusinessDomain) string {
	switch to {
	case domain.DomainRealEstate:
		return "Sure, let's look at properties instead."
	case domain.DomainVehicleRental:
		return "Of course, let's sort out a vehicle instead."
	default:
		return "Sure, let's switch topics."
	}
}
