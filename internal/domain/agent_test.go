package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentResponse_Validate(t *testing.T) {
	t.Run("accepts plain reply", func(t *testing.T) {
		resp := AgentResponse{ReplyText: "Here are some options."}
		assert.NoError(t, resp.Validate())
	})

	t.Run("rejects empty reply text", func(t *testing.T) {
		resp := AgentResponse{}
		assert.ErrorIs(t, resp.Validate(), ErrEmptyReply)
	})

	t.Run("rejects unknown action type", func(t *testing.T) {
		resp := AgentResponse{
			ReplyText: "ok",
			Actions:   []Action{{Type: ActionType("launch_rocket")}},
		}
		assert.ErrorIs(t, resp.Validate(), ErrUnknownAction)
	})

	t.Run("rejects show_listings without items", func(t *testing.T) {
		resp := AgentResponse{
			ReplyText: "ok",
			Actions:   []Action{{Type: ActionShowListings}},
		}
		assert.ErrorIs(t, resp.Validate(), ErrEmptyAction)
	})

	t.Run("rejects fact with out-of-range confidence", func(t *testing.T) {
		resp := AgentResponse{
			ReplyText: "ok",
			Actions: []Action{{
				Type: ActionRememberFact,
				Fact: &FactInput{Subject: "u", Predicate: "prefers_location", Object: "Kyrenia", Confidence: 1.5},
			}},
		}
		assert.ErrorIs(t, resp.Validate(), ErrEmptyAction)
	})

	t.Run("accepts well-formed actions", func(t *testing.T) {
		resp := AgentResponse{
			ReplyText: "Found 2 places.",
			Actions: []Action{
				{Type: ActionShowListings, Listings: []Listing{{ID: "l1", Title: "2+1 flat"}}},
				{Type: ActionRememberFact, Fact: &FactInput{Subject: "u", Predicate: "prefers_location", Object: "Kyrenia", Confidence: 0.9}},
			},
		}
		require.NoError(t, resp.Validate())
	})
}

func TestSlotMap_Merge(t *testing.T) {
	t.Run("fills empty slots", func(t *testing.T) {
		slots := SlotMap{}
		slots.Merge(SlotMap{"location": {Value: "Kyrenia", Confidence: 0.8}}, 0.1)
		assert.Equal(t, "Kyrenia", slots["location"].Value)
	})

	t.Run("keeps higher-confidence prior value", func(t *testing.T) {
		slots := SlotMap{"location": {Value: "Kyrenia", Confidence: 0.9}}
		slots.Merge(SlotMap{"location": {Value: "Nicosia", Confidence: 0.5}}, 0.1)
		assert.Equal(t, "Kyrenia", slots["location"].Value)
	})

	t.Run("overwrites when confidence advantage clears threshold", func(t *testing.T) {
		slots := SlotMap{"budget": {Value: "300", Confidence: 0.4}}
		slots.Merge(SlotMap{"budget": {Value: "500", Confidence: 0.9}}, 0.1)
		assert.Equal(t, "500", slots["budget"].Value)
	})
}

func TestSlotMap_Pending(t *testing.T) {
	slots := SlotMap{"location": {Value: "Kyrenia", Confidence: 0.8}}
	pending := slots.Pending([]string{"location", "budget", "rental_type"})
	assert.Equal(t, []string{"budget", "rental_type"}, pending)
}
