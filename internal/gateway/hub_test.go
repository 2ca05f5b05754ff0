package gateway

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/easyislanders/concierge/internal/config"
	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.Config{Level: "error", Format: "json"})
	os.Exit(m.Run())
}

const testSchemaVersion = "1.0"

func messageEnvelope(threadID uuid.UUID, text string) domain.Envelope {
	return domain.NewEnvelope(domain.EventAssistantMessage, threadID, testSchemaVersion, "trace-1", map[string]any{
		"text": text,
	})
}

func TestHub_DeliversInOrder(t *testing.T) {
	hub := NewHub(testSchemaVersion, 16)
	threadID := uuid.New()

	sub := hub.Subscribe(threadID)
	defer hub.Unsubscribe(sub)

	for i := 1; i <= 5; i++ {
		hub.Send(messageEnvelope(threadID, fmt.Sprintf("reply %d", i)))
	}

	for i := 1; i <= 5; i++ {
		select {
		case env := <-sub.Channel:
			assert.Equal(t, fmt.Sprintf("reply %d", i), env.Payload["text"])
		case <-time.After(time.Second):
			t.Fatalf("envelope %d not delivered", i)
		}
	}
}

func TestHub_ReconnectSupersedesOldSocket(t *testing.T) {
	hub := NewHub(testSchemaVersion, 16)
	threadID := uuid.New()

	old := hub.Subscribe(threadID)
	replacement := hub.Subscribe(threadID)
	defer hub.Unsubscribe(replacement)

	// The old socket is done; socket IDs are monotonic
	select {
	case <-old.Done:
	case <-time.After(time.Second):
		t.Fatal("superseded socket was not closed")
	}
	assert.Greater(t, replacement.SocketID, old.SocketID)

	// Frames go to the replacement only
	hub.Send(messageEnvelope(threadID, "after reconnect"))
	select {
	case env := <-replacement.Channel:
		assert.Equal(t, "after reconnect", env.Payload["text"])
	case <-time.After(time.Second):
		t.Fatal("replacement socket received nothing")
	}
	assert.Empty(t, old.Channel)
}

func TestHub_UnsubscribeSupersededSocketKeepsCurrent(t *testing.T) {
	hub := NewHub(testSchemaVersion, 16)
	threadID := uuid.New()

	old := hub.Subscribe(threadID)
	replacement := hub.Subscribe(threadID)

	// A late unsubscribe from a superseded socket must not detach the
	// current one
	hub.Unsubscribe(old)
	assert.Equal(t, 1, hub.SubscriberCount())

	hub.Send(messageEnvelope(threadID, "still connected"))
	select {
	case env := <-replacement.Channel:
		assert.Equal(t, "still connected", env.Payload["text"])
	case <-time.After(time.Second):
		t.Fatal("current socket lost its subscription")
	}
}

func TestHub_InvalidEnvelopeIsDroppedNotSent(t *testing.T) {
	hub := NewHub(testSchemaVersion, 16)
	threadID := uuid.New()

	sub := hub.Subscribe(threadID)
	defer hub.Unsubscribe(sub)

	// Unknown payload field fails schema validation
	invalid := domain.NewEnvelope(domain.EventAssistantMessage, threadID, testSchemaVersion, "trace-1", map[string]any{
		"text":       "hi",
		"discounted": true,
	})
	hub.Send(invalid)

	hub.Send(messageEnvelope(threadID, "valid"))
	select {
	case env := <-sub.Channel:
		assert.Equal(t, "valid", env.Payload["text"])
	case <-time.After(time.Second):
		t.Fatal("valid envelope not delivered")
	}
	assert.Empty(t, sub.Channel)
}

func TestValidateEnvelope(t *testing.T) {
	threadID := uuid.New()

	tests := []struct {
		name    string
		env     domain.Envelope
		wantErr bool
	}{
		{
			name: "valid assistant message",
			env:  messageEnvelope(threadID, "hello"),
		},
		{
			name: "wrong schema version",
			env: domain.NewEnvelope(domain.EventAssistantMessage, threadID, "0.9", "t", map[string]any{
				"text": "hello",
			}),
			wantErr: true,
		},
		{
			name:    "missing required field",
			env:     domain.NewEnvelope(domain.EventError, threadID, testSchemaVersion, "t", map[string]any{}),
			wantErr: true,
		},
		{
			name: "type not matching event",
			env: domain.Envelope{
				Type:          domain.EnvelopeTypeSystem,
				Event:         domain.EventAssistantMessage,
				ThreadID:      threadID,
				SchemaVersion: testSchemaVersion,
				Payload:       map[string]any{"text": "hello"},
			},
			wantErr: true,
		},
		{
			name: "typing carries no payload",
			env:  domain.NewEnvelope(domain.EventTyping, threadID, testSchemaVersion, "t", nil),
		},
		{
			name: "typing rejects any payload",
			env: domain.NewEnvelope(domain.EventTyping, threadID, testSchemaVersion, "t", map[string]any{
				"text": "x",
			}),
			wantErr: true,
		},
		{
			name: "missing thread id",
			env: domain.NewEnvelope(domain.EventAssistantMessage, uuid.Nil, testSchemaVersion, "t", map[string]any{
				"text": "hello",
			}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEnvelope(tt.env, testSchemaVersion)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// MockThreadReader is a mock implementation of ThreadReader
type MockThreadReader struct {
	mock.Mock
}

func (m *MockThreadReader) GetByID(ctx context.Context, id uuid.UUID) (*domain.Thread, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Thread), args.Error(1)
}

// MockTurnLister is a mock implementation of TurnLister
type MockTurnLister struct {
	mock.Mock
}

func (m *MockTurnLister) ListRecent(ctx context.Context, threadID uuid.UUID, limit int) ([]*domain.Turn, error) {
	args := m.Called(ctx, threadID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Turn), args.Error(1)
}

func TestRehydrator_Build(t *testing.T) {
	threads := new(MockThreadReader)
	turns := new(MockTurnLister)
	cfg := config.GatewayConfig{SchemaVersion: testSchemaVersion, RehydrationTurns: 10}

	thread := domain.NewThread("user-1", time.Now())
	thread.ActiveDomain = domain.DomainRealEstate
	thread.CurrentIntent = "find_rental"
	thread.TurnCount = 3

	committed := domain.NewTurn(thread.ID, uuid.New(), "long term", time.Now())
	committed.Commit(domain.ActSearchAndRecommend, "Here are the best matches.", time.Now())

	threads.On("GetByID", mock.Anything, thread.ID).Return(thread, nil)
	turns.On("ListRecent", mock.Anything, thread.ID, 10).Return([]*domain.Turn{committed}, nil)

	r := NewRehydrator(threads, turns, cfg)
	env, err := r.Build(context.Background(), thread.ID, "trace-9")
	require.NoError(t, err)

	// The frame must pass the same validation as any other outbound envelope
	require.NoError(t, ValidateEnvelope(env, testSchemaVersion))
	assert.Equal(t, domain.EventRehydration, env.Event)
	assert.Equal(t, 3, env.Payload["turnCount"])
	assert.Equal(t, domain.DomainRealEstate, env.Payload["activeDomain"])
	assert.Len(t, env.Payload["recentTurns"], 1)
}
