package registry

import (
	"time"

	"github.com/mcoot/partyroom/internal/model"
)

// Reaper tests share RegistrySuite so they run against the mock clock

func (s *RegistrySuite) TestAbandonedSessionIsReapedAfterDelay() {
	alice := s.create("Alice")
	bob := s.join(alice.Code, "Bob")

	s.Equal(OutcomeSessionAlive, s.registry.Leave(s.ctx, alice.PlayerID))
	s.Equal(OutcomeReapScheduled, s.registry.Disconnect(s.ctx, bob.PlayerID))
	s.True(s.registry.SessionExists(alice.Code), "deletion waits for the delay")
	s.Equal(1, s.clock.PendingTimers())

	s.clock.Advance(DefaultReapDelay - time.Second)
	s.True(s.registry.SessionExists(alice.Code))

	s.clock.Advance(time.Second)
	s.False(s.registry.SessionExists(alice.Code))
	s.Equal(model.EventSessionClosed, s.published.last().Kind)

	_, err := s.registry.Lookup(bob.PlayerID)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *RegistrySuite) TestReconnectWithinDelayKeepsSession() {
	alice := s.create("Alice")

	s.Equal(OutcomeReapScheduled, s.registry.Disconnect(s.ctx, alice.PlayerID))

	s.clock.Advance(DefaultReapDelay / 2)
	again, err := s.registry.JoinSession(s.ctx, alice.Code, JoinRequest{
		DisplayName:   "Alice",
		RecoveryToken: alice.RecoveryToken,
	})
	s.Require().NoError(err)
	s.Equal(alice.PlayerID, again.PlayerID)

	s.clock.Advance(DefaultReapDelay)
	s.True(s.registry.SessionExists(alice.Code))
	s.Equal(0, s.clock.PendingTimers())
}

func (s *RegistrySuite) TestLeaveDeletesAbandonedSessionImmediately() {
	alice := s.create("Alice")
	s.published.reset()

	s.Equal(OutcomeSessionDeleted, s.registry.Leave(s.ctx, alice.PlayerID))

	s.False(s.registry.SessionExists(alice.Code))
	s.Equal(0, s.clock.PendingTimers(), "leave skips the deferred phase")
	s.Equal([]model.EventKind{model.EventSessionClosed}, s.published.kinds())
}

func (s *RegistrySuite) TestDisconnectAnnouncesListChange() {
	alice := s.create("Alice")
	bob := s.join(alice.Code, "Bob")
	s.published.reset()

	s.Equal(OutcomeSessionAlive, s.registry.Disconnect(s.ctx, bob.PlayerID))

	s.Equal([]model.EventKind{model.EventParticipantListChanged}, s.published.kinds())
	s.Equal(model.ParticipantListPayload{Players: []string{"Alice"}}, s.published.last().Payload)
	s.Equal(0, s.clock.PendingTimers())
}

func (s *RegistrySuite) TestDisconnectIsIdempotent() {
	alice := s.create("Alice")
	bob := s.join(alice.Code, "Bob")

	s.Equal(OutcomeSessionAlive, s.registry.Disconnect(s.ctx, bob.PlayerID))
	s.published.reset()
	s.Equal(OutcomeSessionAlive, s.registry.Disconnect(s.ctx, bob.PlayerID))
	s.Empty(s.published.kinds(), "nothing changed the second time")
}

func (s *RegistrySuite) TestDisconnectAfterDeleteIsResolved() {
	alice := s.create("Alice")
	s.Require().True(s.registry.DeleteSession(s.ctx, alice.Code))

	s.Equal(OutcomeAlreadyResolved, s.registry.Disconnect(s.ctx, alice.PlayerID))
	s.Equal(OutcomeAlreadyResolved, s.registry.Leave(s.ctx, alice.PlayerID))
}

func (s *RegistrySuite) TestReapAfterIndependentDeleteIsResolved() {
	alice := s.create("Alice")
	e := s.registry.lookupEntry(alice.Code)
	s.Equal(OutcomeReapScheduled, s.registry.Disconnect(s.ctx, alice.PlayerID))
	s.Require().True(s.registry.DeleteSession(s.ctx, alice.Code))
	s.published.reset()

	s.Equal(OutcomeAlreadyResolved, s.registry.reap(s.ctx, e))
	s.clock.Advance(DefaultReapDelay)
	s.Empty(s.published.kinds(), "the session was only closed once")
}

func (s *RegistrySuite) TestReapOutcomes() {
	alice := s.create("Alice")
	e := s.registry.lookupEntry(alice.Code)
	s.Equal(OutcomeSessionAlive, s.registry.reap(s.ctx, e))

	s.registry.Disconnect(s.ctx, alice.PlayerID)
	s.Equal(OutcomeSessionDeleted, s.registry.reap(s.ctx, e))
	s.Equal(OutcomeAlreadyResolved, s.registry.reap(s.ctx, e))
}

func (s *RegistrySuite) TestReapDoesNotTouchReissuedCode() {
	s.random.QueueString("ABCDEFGH", "ABCDEFGH")
	first := s.create("Alice")
	s.Equal(OutcomeReapScheduled, s.registry.Disconnect(s.ctx, first.PlayerID))
	s.Require().True(s.registry.DeleteSession(s.ctx, first.Code))

	second := s.create("Carol")
	s.Require().Equal(first.Code, second.Code)

	s.clock.Advance(DefaultReapDelay)
	s.True(s.registry.SessionExists(second.Code), "a connected session under the same code survives")
}

func (s *RegistrySuite) TestReissuedAbandonedSessionGetsFullDelay() {
	s.random.QueueString("ABCDEFGH", "ABCDEFGH")
	first := s.create("Alice")
	s.Equal(OutcomeReapScheduled, s.registry.Disconnect(s.ctx, first.PlayerID))

	s.clock.Advance(DefaultReapDelay / 2)
	s.Require().True(s.registry.DeleteSession(s.ctx, first.Code))
	second := s.create("Carol")
	s.Require().Equal(first.Code, second.Code)
	s.Equal(OutcomeReapScheduled, s.registry.Disconnect(s.ctx, second.PlayerID))

	// the first session's timer fires here and must leave the second alone
	s.clock.Advance(DefaultReapDelay / 2)
	s.True(s.registry.SessionExists(second.Code))
	s.Equal(1, s.clock.PendingTimers())

	s.clock.Advance(DefaultReapDelay / 2)
	s.False(s.registry.SessionExists(second.Code))
}

func (s *RegistrySuite) TestCustomReapDelay() {
	config := DefaultConfig()
	config.ReapDelay = 5 * time.Second
	s.registry = New(s.published, s.clock, s.random, config)

	alice := s.create("Alice")
	s.registry.Disconnect(s.ctx, alice.PlayerID)

	s.clock.Advance(5 * time.Second)
	s.False(s.registry.SessionExists(alice.Code))
}

func (s *RegistrySuite) TestOutcomeString() {
	s.Equal("session-alive", OutcomeSessionAlive.String())
	s.Equal("reap-scheduled", OutcomeReapScheduled.String())
	s.Equal("session-deleted", OutcomeSessionDeleted.String())
	s.Equal("already-resolved", OutcomeAlreadyResolved.String())
	s.Equal("unknown", Outcome(42).String())
}
