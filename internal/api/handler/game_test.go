package handler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partyroom/internal/dependencies/mocks"
	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/services/registry"
	"github.com/mcoot/partyroom/internal/testutil"
	"github.com/mcoot/partyroom/internal/web/stream"
)

type StreamAccountingSuite struct {
	suite.Suite
	clock    *mocks.MockClock
	registry *registry.Registry
	handler  *GameHandler
	ctx      context.Context
}

func TestStreamAccountingSuite(t *testing.T) {
	suite.Run(t, new(StreamAccountingSuite))
}

func (s *StreamAccountingSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.registry = registry.New(nil, s.clock, mocks.NewMockRandom(), registry.DefaultConfig())
	logger := testutil.NopLogger()
	hubs := stream.NewHubManager(logger)
	s.T().Cleanup(hubs.Close)
	s.handler = NewGameHandler(s.registry, hubs, logger)
	s.ctx = context.Background()
}

func (s *StreamAccountingSuite) connected(id model.PlayerID) bool {
	var connected bool
	err := s.registry.ViewByPlayer(id, func(_ *model.Session, p *model.Participant) {
		connected = p.Connected
	})
	s.Require().NoError(err)
	return connected
}

func (s *StreamAccountingSuite) TestLastStreamClosingDisconnects() {
	alice, err := s.registry.CreateSession(s.ctx, "Alice", "")
	s.Require().NoError(err)

	s.Require().NoError(s.handler.openStream(s.ctx, alice.PlayerID))
	s.Require().NoError(s.handler.openStream(s.ctx, alice.PlayerID))

	_, last := s.handler.closeStream(s.ctx, alice.PlayerID)
	s.False(last)
	s.True(s.connected(alice.PlayerID))

	outcome, last := s.handler.closeStream(s.ctx, alice.PlayerID)
	s.True(last)
	s.Equal(registry.OutcomeReapScheduled, outcome)
	s.False(s.connected(alice.PlayerID))
}

func (s *StreamAccountingSuite) TestReopenAfterLastCloseSurvivesReap() {
	alice, err := s.registry.CreateSession(s.ctx, "Alice", "")
	s.Require().NoError(err)

	s.Require().NoError(s.handler.openStream(s.ctx, alice.PlayerID))
	s.handler.closeStream(s.ctx, alice.PlayerID)
	s.Require().NoError(s.handler.openStream(s.ctx, alice.PlayerID))

	s.clock.Advance(registry.DefaultReapDelay)
	s.True(s.registry.SessionExists(alice.Code))
	s.True(s.connected(alice.PlayerID))
}

// A tab closing while another opens must never leave a player with an open
// stream marked disconnected.
func (s *StreamAccountingSuite) TestConcurrentCloseAndOpenStaysConnected() {
	alice, err := s.registry.CreateSession(s.ctx, "Alice", "")
	s.Require().NoError(err)
	s.Require().NoError(s.handler.openStream(s.ctx, alice.PlayerID))

	for i := 0; i < 200; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.handler.closeStream(s.ctx, alice.PlayerID)
		}()
		go func() {
			defer wg.Done()
			s.NoError(s.handler.openStream(s.ctx, alice.PlayerID))
		}()
		wg.Wait()

		s.Require().True(s.connected(alice.PlayerID), "iteration %d", i)
	}

	s.clock.Advance(registry.DefaultReapDelay)
	s.True(s.registry.SessionExists(alice.Code))
}

func (s *StreamAccountingSuite) TestOpenForUnknownPlayerIsNotCounted() {
	stranger := model.PlayerID(uuid.New())

	err := s.handler.openStream(s.ctx, stranger)
	s.ErrorIs(err, model.ErrPlayerNotFound)

	s.handler.mu.Lock()
	defer s.handler.mu.Unlock()
	s.Empty(s.handler.streams)
}
