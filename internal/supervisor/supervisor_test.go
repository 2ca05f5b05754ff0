package supervisor

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/easyislanders/concierge/internal/agent"
	"github.com/easyislanders/concierge/internal/config"
	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.Config{Level: "error", Format: "json"})
	os.Exit(m.Run())
}

// MockFusion is a mock implementation of MemoryFusion
type MockFusion struct {
	mock.Mock
}

func (m *MockFusion) Fuse(ctx context.Context, thread *domain.Thread, query string) *domain.FusedContext {
	args := m.Called(ctx, thread, query)
	return args.Get(0).(*domain.FusedContext)
}

// MockFactWriter is a mock implementation of FactWriter
type MockFactWriter struct {
	mock.Mock
}

func (m *MockFactWriter) Append(ctx context.Context, fact *domain.MemoryFact) error {
	args := m.Called(ctx, fact)
	return args.Error(0)
}

// MockSessionWriter is a mock implementation of SessionWriter
type MockSessionWriter struct {
	mock.Mock
}

func (m *MockSessionWriter) Write(ctx context.Context, threadID uuid.UUID, snippet *domain.MemorySnippet) error {
	args := m.Called(ctx, threadID, snippet)
	return args.Error(0)
}

// MockBuffer is a mock implementation of BufferWriter
type MockBuffer struct {
	mock.Mock
}

func (m *MockBuffer) Append(threadID uuid.UUID, turn domain.BufferedTurn) {
	m.Called(threadID, turn)
}

// MockSearchClient is a mock implementation of search.Client
type MockSearchClient struct {
	mock.Mock
}

func (m *MockSearchClient) Search(ctx context.Context, filter domain.SearchFilter) (*domain.SearchResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchResult), args.Error(1)
}

func testSupervisorConfig() config.SupervisorConfig {
	return config.SupervisorConfig{
		ConfidenceFloor:        0.55,
		TieMargin:              0.1,
		SlotOverwriteThreshold: 0.1,
		HandoffConfidence:      0.75,
	}
}

type supervisorFixture struct {
	supervisor *Supervisor
	search     *MockSearchClient
	facts      *MockFactWriter
	session    *MockSessionWriter
	buffer     *MockBuffer
	fusion     *MockFusion
}

func newFixture() *supervisorFixture {
	searchClient := new(MockSearchClient)
	facts := new(MockFactWriter)
	session := new(MockSessionWriter)
	buffer := new(MockBuffer)
	fusion := new(MockFusion)

	fusion.On("Fuse", mock.Anything, mock.Anything, mock.Anything).Return(&domain.FusedContext{}).Maybe()
	session.On("Write", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	buffer.On("Append", mock.Anything, mock.Anything).Maybe()
	facts.On("Append", mock.Anything, mock.Anything).Return(nil).Maybe()

	registry := agent.NewRegistry(
		agent.NewRealEstateAgent(searchClient),
		agent.NewVehicleRentalAgent(searchClient),
	)

	return &supervisorFixture{
		supervisor: New(registry, fusion, facts, session, buffer, testSupervisorConfig()),
		search:     searchClient,
		facts:      facts,
		session:    session,
		buffer:     buffer,
		fusion:     fusion,
	}
}

func (f *supervisorFixture) turn(thread *domain.Thread, input string) *Outcome {
	turn := domain.NewTurn(thread.ID, uuid.New(), input, time.Now())
	return f.supervisor.Process(context.Background(), thread, turn)
}

func TestSupervisor_HappyPathSlotFilling(t *testing.T) {
	f := newFixture()
	thread := domain.NewThread("user-1", time.Now())

	f.search.On("Search", mock.Anything, domain.SearchFilter{
		Domain:   domain.DomainRealEstate,
		Location: "kyrenia",
		MaxPrice: 500,
		Currency: "GBP",
		Variant:  "long_term",
		Limit:    5,
	}).Return(&domain.SearchResult{
		Items: []domain.Listing{{ID: "l-1", Title: "2+1 apartment", Location: "kyrenia", Price: 480, Currency: "GBP"}},
	}, nil).Once()

	// Turn 1: domain resolves, location is missing
	outcome := f.turn(thread, "I need an apartment")
	assert.Equal(t, domain.ActAskSlot, outcome.Act)
	assert.Equal(t, domain.DomainRealEstate, thread.ActiveDomain)
	assert.Contains(t, outcome.ReplyText, "area")
	assert.Equal(t, 1, thread.TurnCount)

	// Turn 2: location and budget land together; only rental_type is asked
	outcome = f.turn(thread, "Kyrenia, 500 pounds")
	assert.Equal(t, domain.ActAskSlot, outcome.Act)
	assert.Equal(t, "kyrenia", thread.Slots["location"].Value)
	assert.Equal(t, "500 GBP", thread.Slots["budget"].Value)
	assert.NotContains(t, outcome.ReplyText, "area")
	assert.NotContains(t, outcome.ReplyText, "budget")
	assert.Contains(t, outcome.ReplyText, "long term")

	// Turn 3: last slot fills, the agent dispatches and returns listings
	outcome = f.turn(thread, "long term")
	assert.Equal(t, domain.ActSearchAndRecommend, outcome.Act)
	assert.Equal(t, domain.TurnStateDispatched, outcome.State)
	require.Len(t, outcome.Listings, 1)
	assert.Equal(t, "l-1", outcome.Listings[0].ID)
	assert.Equal(t, 3, thread.TurnCount)

	f.search.AssertExpectations(t)
}

func TestSupervisor_NeverReasksFilledSlot(t *testing.T) {
	f := newFixture()
	thread := domain.NewThread("user-2", time.Now())

	f.turn(thread, "looking for a flat in Girne")
	require.Equal(t, "kyrenia", thread.Slots["location"].Value)

	// Several vague turns in a row: the location question must not return
	for i := 0; i < 3; i++ {
		outcome := f.turn(thread, "hmm let me think")
		if outcome.Act == domain.ActAskSlot {
			assert.NotContains(t, outcome.ReplyText, "Which area")
			assert.NotContains(t, outcome.ReplyText, "town or area")
		}
	}
}

func TestSupervisor_LowConfidenceClarifies(t *testing.T) {
	f := newFixture()
	thread := domain.NewThread("user-3", time.Now())

	outcome := f.turn(thread, "hello there, how are you?")
	assert.Equal(t, domain.ActClarify, outcome.Act)
	assert.Equal(t, clarifyPrompt, outcome.ReplyText)
	assert.Equal(t, domain.DomainNone, thread.ActiveDomain)
}

func TestSupervisor_StickyPinningSurvivesWeakRivalSignal(t *testing.T) {
	f := newFixture()
	thread := domain.NewThread("user-4", time.Now())

	f.turn(thread, "I want to rent an apartment")
	require.Equal(t, domain.DomainRealEstate, thread.ActiveDomain)

	// "driving distance" weakly scores vehicle_rental but must not unpin
	outcome := f.turn(thread, "somewhere within driving distance of the harbour")
	assert.NotEqual(t, domain.ActHandoff, outcome.Act)
	assert.Equal(t, domain.DomainRealEstate, thread.ActiveDomain)
}

func TestSupervisor_ExplicitKeywordTriggersHandoff(t *testing.T) {
	f := newFixture()
	thread := domain.NewThread("user-5", time.Now())

	f.turn(thread, "I need an apartment in Kyrenia")
	require.Equal(t, domain.DomainRealEstate, thread.ActiveDomain)

	outcome := f.turn(thread, "actually forget that, I need to hire a car")
	assert.Equal(t, domain.ActHandoff, outcome.Act)
	assert.Equal(t, domain.DomainVehicleRental, thread.ActiveDomain)
	assert.Contains(t, outcome.ReplyText, "vehicle")
}

func TestSupervisor_AgentFactWritesAreApplied(t *testing.T) {
	f := newFixture()
	thread := domain.NewThread("user-6", time.Now())
	thread.ActiveDomain = domain.DomainRealEstate
	thread.CurrentIntent = "find_rental"
	thread.Slots = domain.SlotMap{
		"location":    {Value: "kyrenia", Confidence: 0.9},
		"budget":      {Value: "500 GBP", Confidence: 0.85},
		"rental_type": {Value: "long_term", Confidence: 0.85},
	}

	f.search.On("Search", mock.Anything, mock.Anything).Return(&domain.SearchResult{
		Items: []domain.Listing{{ID: "l-9", Title: "Seafront flat"}},
	}, nil)

	outcome := f.turn(thread, "yes please show me")
	require.Equal(t, domain.ActSearchAndRecommend, outcome.Act)

	f.facts.AssertCalled(t, "Append", mock.Anything, mock.MatchedBy(func(fact *domain.MemoryFact) bool {
		return fact.UserID == "user-6" && fact.Predicate == "prefers_location" && fact.Object == "kyrenia"
	}))
}

func TestSupervisor_DegradedSearchFallsBackGracefully(t *testing.T) {
	f := newFixture()
	thread := domain.NewThread("user-7", time.Now())
	thread.ActiveDomain = domain.DomainRealEstate
	thread.CurrentIntent = "find_rental"
	thread.Slots = domain.SlotMap{
		"location":    {Value: "kyrenia", Confidence: 0.9},
		"budget":      {Value: "500 GBP", Confidence: 0.85},
		"rental_type": {Value: "long_term", Confidence: 0.85},
	}

	// The breaker is open: the agent receives a synthetic degraded result
	f.search.On("Search", mock.Anything, mock.Anything).Return(&domain.SearchResult{Degraded: true}, nil)

	outcome := f.turn(thread, "show me the options")
	assert.Equal(t, domain.ActSearchAndRecommend, outcome.Act)
	assert.Contains(t, outcome.ReplyText, "couldn't reach")
	assert.Empty(t, outcome.Listings)
	// Preferences survive for the retry on the next user turn
	assert.Equal(t, "kyrenia", thread.Slots["location"].Value)
}

// brokenAgent returns a response violating the agent contract
type brokenAgent struct{}

func (brokenAgent) Domain() domain.BusinessDomain { return domain.DomainRealEstate }
func (brokenAgent) RequiredSlots() []string       { return nil }
func (brokenAgent) Handle(ctx context.Context, req domain.AgentRequest) (domain.AgentResponse, error) {
	return domain.AgentResponse{ReplyText: ""}, nil
}

func TestSupervisor_ContractViolationYieldsErrorAct(t *testing.T) {
	fusion := new(MockFusion)
	fusion.On("Fuse", mock.Anything, mock.Anything, mock.Anything).Return(&domain.FusedContext{})
	session := new(MockSessionWriter)
	session.On("Write", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	buffer := new(MockBuffer)
	buffer.On("Append", mock.Anything, mock.Anything)
	facts := new(MockFactWriter)

	registry := agent.NewRegistry(brokenAgent{})
	s := New(registry, fusion, facts, session, buffer, testSupervisorConfig())

	thread := domain.NewThread("user-8", time.Now())
	turn := domain.NewTurn(thread.ID, uuid.New(), "I need an apartment in Kyrenia", time.Now())

	outcome := s.Process(context.Background(), thread, turn)
	assert.Equal(t, domain.ActError, outcome.Act)
	// The raw violation never reaches the user
	assert.Equal(t, errorFallback, outcome.ReplyText)
}

func TestSlotMapMergeKeepsHigherConfidence(t *testing.T) {
	slots := domain.SlotMap{
		"location": {Value: "kyrenia", Confidence: 0.9},
	}
	slots.Merge(domain.SlotMap{
		"location": {Value: "famagusta", Confidence: 0.6},
		"budget":   {Value: "500 GBP", Confidence: 0.85},
	}, 0.1)

	assert.Equal(t, "kyrenia", slots["location"].Value)
	assert.Equal(t, "500 GBP", slots["budget"].Value)
}
