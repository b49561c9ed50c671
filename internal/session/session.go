// internal/session/session.go

// Package session implements the per-client session controller: it owns one
// local replica of the shared SessionState, turns local player commands into
// broadcast events, and folds received events back into the replica through
// the shared reducer. There is no server-side authority; every connected
// client runs one of these.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/marceloig/resistance-game/internal/events"
	"github.com/marceloig/resistance-game/internal/game"
	"github.com/marceloig/resistance-game/internal/validate"
)

// publishTimeout bounds event publishes triggered from the event-fold path,
// where no caller context is available.
const publishTimeout = 5 * time.Second

// Transport delivers events to and from the room channel. Publish must not
// return until the broadcast is acknowledged (or failed); the session treats
// a publish failure as a hard error surfaced to the caller, never a silent
// retry.
type Transport interface {
	Publish(ctx context.Context, ev events.Event) error
	Close() error
}

// Session is one client's handle on a room. All commands and event folds
// are serialized by a single mutex: a command holds it until its publish is
// acknowledged, which also prevents re-entrant double submission.
type Session struct {
	mu        sync.Mutex
	log       *logrus.Entry
	transport Transport

	localID   string
	localName string
	state     *game.SessionState
}

// New creates a session replica for the given room. The local player is not
// announced until Join is called.
func New(logger *logrus.Logger, transport Transport, roomCode, playerName string) (*Session, error) {
	if err := validate.RoomCode(roomCode); err != nil {
		return nil, err
	}
	if err := validate.PlayerName(playerName, nil); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	return &Session{
		log:       logger.WithFields(logrus.Fields{"room": roomCode, "player": playerName}),
		transport: transport,
		localID:   id,
		localName: playerName,
		state:     game.NewSessionState(roomCode),
	}, nil
}

// PlayerID returns the local player's opaque id.
func (s *Session) PlayerID() string { return s.localID }

// State returns a deep copy of the current replica state.
func (s *Session) State() *game.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// VisibleRoles projects the roles the local player is allowed to see.
func (s *Session) VisibleRoles() map[string]game.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return game.VisibleRoles(s.state.GetPlayer(s.localID), s.state.Players)
}

// Join announces the local player on the room channel.
func (s *Session) Join(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := validate.PlayerName(s.localName, s.state); err != nil {
		return err
	}
	return s.dispatch(ctx, &events.PlayerJoined{PlayerID: s.localID, PlayerName: s.localName})
}

// SetReady toggles the local player's lobby ready state.
func (s *Session) SetReady(ctx context.Context, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.GetPlayer(s.localID) == nil {
		return game.ErrUnknownPlayer
	}
	return s.dispatch(ctx, &events.PlayerReady{PlayerID: s.localID, IsReady: ready})
}

// StartGame assigns roles and opens mission 1. Any player may trigger it
// once at least five players are ready; the triggering replica computes the
// shuffle and broadcasts the result so all replicas agree on it.
func (s *Session) StartGame(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := validate.CanStartGame(s.state); err != nil {
		return err
	}

	connected := s.state.ConnectedPlayers()
	ids := make([]string, len(connected))
	for i, p := range connected {
		ids[i] = p.ID
	}
	assigned, err := game.AssignRoles(ids)
	if err != nil {
		return err
	}
	first, err := game.FirstLeader(connected)
	if err != nil {
		return err
	}

	roles := make(map[string]string, len(assigned))
	for id, role := range assigned {
		roles[id] = string(role)
	}
	return s.dispatch(ctx, &events.RolesAssigned{Roles: roles, FirstLeader: first})
}

// SelectTeam proposes a mission team. Only the current leader may call it.
func (s *Session) SelectTeam(ctx context.Context, team []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := validate.Team(s.state, s.localID, team); err != nil {
		return err
	}
	if err := s.dispatch(ctx, &events.TeamSelected{SelectedTeam: team}); err != nil {
		return err
	}
	s.resolveRounds(ctx, true)
	return nil
}

// CastVote records the local player's public team vote.
func (s *Session) CastVote(ctx context.Context, approve bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := validate.Vote(s.state, s.localID); err != nil {
		return err
	}
	if err := s.dispatch(ctx, &events.VoteCast{Vote: approve}); err != nil {
		return err
	}
	s.resolveRounds(ctx, true)
	return nil
}

// SubmitMissionChoice records the local player's mission choice. Sabotage
// (success=false) is rejected at the gate for resistance players.
func (s *Session) SubmitMissionChoice(ctx context.Context, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := validate.MissionChoice(s.state, s.localID, success); err != nil {
		return err
	}
	if err := s.dispatch(ctx, &events.MissionChoiceMade{Choice: success}); err != nil {
		return err
	}
	s.resolveRounds(ctx, true)
	return nil
}

// Reset returns a finished game to the lobby for a replay.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != game.PhaseGameEnd {
		return game.ErrInvalidTransition
	}
	return s.dispatch(ctx, &events.GameReset{})
}

// Leave announces departure and closes the transport.
func (s *Session) Leave(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.dispatch(ctx, &events.PlayerLeft{PlayerID: s.localID})
	if closeErr := s.transport.Close(); err == nil {
		err = closeErr
	}
	return err
}

// dispatch applies a local command's event optimistically, then broadcasts
// it. A rule violation stops the command before anything is published, so
// invalid local state can never leak to other replicas.
func (s *Session) dispatch(ctx context.Context, data events.Data) error {
	ev := events.New(s.state.RoomCode, s.localID, data)
	if err := game.Apply(s.state, ev); err != nil {
		return err
	}
	if err := s.transport.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// HandleEvent folds one received event into the replica. Events echoed back
// for the local player are filtered out here: the optimistic local apply in
// dispatch already covered them, and folding twice would double-apply.
func (s *Session) HandleEvent(ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.RoomCode != s.state.RoomCode {
		s.log.Warnf("dropping event %s for foreign room %s", ev.Type, ev.RoomCode)
		return
	}
	if ev.SenderID == s.localID {
		s.log.Debugf("skipping own echoed event %s", ev.Type)
		return
	}

	// Track whether this join introduces a player we had not seen, before the
	// fold makes them known.
	newcomer := false
	if join, ok := ev.Data.(*events.PlayerJoined); ok {
		newcomer = s.state.GetPlayer(join.PlayerID) == nil
	}

	if err := game.Apply(s.state, ev); err != nil {
		if errors.Is(err, game.ErrInvariant) {
			s.log.Warnf("refusing event %s: %v", ev.Type, err)
		} else {
			s.log.Debugf("ignoring event %s: %v", ev.Type, err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	// A newcomer only hears events published after they subscribed, so every
	// replica re-announces itself when an unknown player joins. The folds are
	// idempotent, so established replicas see the announces as no-ops; the
	// newcomer guard keeps replicas from answering each other's re-announces
	// forever.
	if newcomer && s.state.Phase == game.PhaseLobby {
		s.announce(ctx)
	}

	s.resolveRounds(ctx, false)
}

// announce re-publishes the local player's presence and ready state.
func (s *Session) announce(ctx context.Context) {
	local := s.state.GetPlayer(s.localID)
	if local == nil {
		return
	}
	join := events.New(s.state.RoomCode, s.localID, &events.PlayerJoined{PlayerID: s.localID, PlayerName: s.localName})
	if err := s.transport.Publish(ctx, join); err != nil {
		s.log.Warnf("re-announce failed: %v", err)
		return
	}
	if local.IsReady {
		ready := events.New(s.state.RoomCode, s.localID, &events.PlayerReady{PlayerID: s.localID, IsReady: true})
		if err := s.transport.Publish(ctx, ready); err != nil {
			s.log.Warnf("re-announce ready state failed: %v", err)
		}
	}
}

// resolveRounds checks whether the locally accumulated votes or choices
// complete the current round, and applies the deterministic follow-up
// transitions. Every replica resolves independently; only the replica whose
// own command completed the round additionally broadcasts the aggregate
// events (they fold as no-ops on replicas that already resolved, and let
// lagging replicas catch up).
func (s *Session) resolveRounds(ctx context.Context, broadcast bool) {
	if res, err := s.state.ResolveVoting(); err != nil {
		s.log.Warnf("voting resolution refused: %v", err)
	} else if res != nil {
		s.log.Infof("voting round resolved: approved=%v (%d-%d)", res.Tally.Approved, res.Tally.Yes, res.Tally.No)
		if broadcast {
			s.publishAggregate(ctx, &events.VotingCompleted{
				Votes:         res.Votes,
				Result:        res.Tally.Approved,
				MissionNumber: res.MissionNumber,
			})
			if res.NewLeader != "" {
				s.publishAggregate(ctx, &events.LeadershipChanged{
					NewLeader: res.NewLeader,
					Reason:    game.ReasonVoteRejected,
				})
			}
		}
	}

	if res, err := s.state.ResolveMission(); err != nil {
		s.log.Warnf("mission resolution refused: %v", err)
	} else if res != nil {
		s.log.Infof("mission %d resolved: success=%v (score %d-%d)",
			res.MissionNumber, res.Tally.Success, res.ResistanceScore, res.SpyScore)
		if broadcast {
			scores := events.Scores{Resistance: res.ResistanceScore, Spy: res.SpyScore}
			s.publishAggregate(ctx, &events.MissionCompleted{NewScores: scores})
			if res.Ended {
				s.publishAggregate(ctx, &events.GameEnded{FinalScores: scores})
			} else {
				s.publishAggregate(ctx, &events.LeadershipChanged{
					NewLeader: res.NewLeader,
					Reason:    game.ReasonMissionCompleted,
				})
			}
		}
	}
}

// publishAggregate broadcasts an already-applied aggregate event. Failures
// are logged rather than surfaced: local state is already resolved, and the
// other replicas resolve the round from the underlying per-player events.
func (s *Session) publishAggregate(ctx context.Context, data events.Data) {
	ev := events.New(s.state.RoomCode, s.localID, data)
	if err := s.transport.Publish(ctx, ev); err != nil {
		s.log.Warnf("publish %s: %v", ev.Type, err)
	}
}
