// internal/session/session_test.go
package session

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marceloig/resistance-game/internal/events"
	"github.com/marceloig/resistance-game/internal/game"
	"github.com/marceloig/resistance-game/internal/transport"
)

const testRoom = "ROOM01"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// mockTransport collects published events instead of sending them anywhere.
type mockTransport struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *mockTransport) Publish(_ context.Context, ev events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *mockTransport) Close() error { return nil }

func (m *mockTransport) published() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.events...)
}

// newReplica wires one session to the bus, delivering received events into
// its fold handler the way the websocket transport does.
func newReplica(t *testing.T, bus *transport.Bus, name string) *Session {
	t.Helper()
	var s *Session
	conn := bus.Connect(testRoom, func(ev events.Event) { s.HandleEvent(ev) })
	s, err := New(testLogger(), conn, testRoom, name)
	require.NoError(t, err)
	return s
}

// table is a fully joined, ready five-player room across five replicas.
type table struct {
	bus      *transport.Bus
	sessions map[string]*Session // keyed by player id
	names    []string
}

func newTable(t *testing.T) *table {
	t.Helper()
	ctx := context.Background()
	tbl := &table{
		bus:      transport.NewBus(),
		sessions: make(map[string]*Session),
		names:    []string{"alice", "bob", "carol", "dave", "erin"},
	}
	for _, name := range tbl.names {
		s := newReplica(t, tbl.bus, name)
		tbl.sessions[s.PlayerID()] = s
		require.NoError(t, s.Join(ctx))
	}
	tbl.bus.Flush()
	for _, s := range tbl.sessions {
		require.NoError(t, s.SetReady(ctx, true))
	}
	tbl.bus.Flush()
	return tbl
}

func (tbl *table) any() *Session {
	for _, s := range tbl.sessions {
		return s
	}
	return nil
}

func (tbl *table) leader(t *testing.T) *Session {
	t.Helper()
	leaderID := tbl.any().State().CurrentLeaderID
	s, ok := tbl.sessions[leaderID]
	require.True(t, ok, "leader id must map to a replica")
	return s
}

// assertConverged checks that every replica agrees on the replicated state.
func (tbl *table) assertConverged(t *testing.T) {
	t.Helper()
	ref := tbl.any().State()
	for _, s := range tbl.sessions {
		st := s.State()
		assert.Equal(t, ref.Phase, st.Phase)
		assert.Equal(t, ref.CurrentLeaderID, st.CurrentLeaderID)
		assert.Equal(t, ref.CurrentMissionNumber, st.CurrentMissionNumber)
		assert.Equal(t, ref.ResistanceScore, st.ResistanceScore)
		assert.Equal(t, ref.SpyScore, st.SpyScore)
		assert.Len(t, st.Players, len(ref.Players))
		for _, p := range ref.Players {
			other := st.GetPlayer(p.ID)
			require.NotNil(t, other, "player %s missing on a replica", p.Name)
			assert.Equal(t, p.Role, other.Role, "role of %s diverged", p.Name)
		}
	}
}

// approveTeam has every non-leader vote yes and waits for delivery.
func (tbl *table) approveTeam(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	leaderID := tbl.any().State().CurrentLeaderID
	for id, s := range tbl.sessions {
		if id == leaderID {
			continue
		}
		require.NoError(t, s.CastVote(ctx, true))
		tbl.bus.Flush()
	}
}

// runSuccessfulMission plays one full mission round with everyone
// cooperating: the leader proposes, the table approves, the team succeeds.
func (tbl *table) runSuccessfulMission(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	leader := tbl.leader(t)
	st := leader.State()

	size, err := game.TeamSize(len(st.Players), st.CurrentMissionNumber)
	require.NoError(t, err)
	team := make([]string, 0, size)
	for _, p := range st.Players {
		team = append(team, p.ID)
		if len(team) == size {
			break
		}
	}
	require.NoError(t, leader.SelectTeam(ctx, team))
	tbl.bus.Flush()

	tbl.approveTeam(t)
	require.Equal(t, game.PhaseMission, tbl.any().State().Phase)

	for _, id := range team {
		require.NoError(t, tbl.sessions[id].SubmitMissionChoice(ctx, true))
		tbl.bus.Flush()
	}
}

func TestLobbyConvergesAcrossReplicas(t *testing.T) {
	tbl := newTable(t)
	for _, s := range tbl.sessions {
		st := s.State()
		assert.Equal(t, game.PhaseLobby, st.Phase)
		assert.Len(t, st.Players, 5, "every replica sees the full roster")
		assert.Equal(t, 5, st.ReadyCount())
	}
}

func TestLateJoinerCatchesUpViaReannounce(t *testing.T) {
	ctx := context.Background()
	bus := transport.NewBus()

	early := newReplica(t, bus, "alice")
	require.NoError(t, early.Join(ctx))
	bus.Flush()

	// Subscribes after alice's join was broadcast, so it never saw it.
	late := newReplica(t, bus, "bob")
	require.NoError(t, late.Join(ctx))
	bus.Flush()

	assert.Len(t, late.State().Players, 2, "late joiner learns the roster from re-announces")
	assert.Len(t, early.State().Players, 2)
}

func TestStartGameConvergesRolesAndLeader(t *testing.T) {
	tbl := newTable(t)
	require.NoError(t, tbl.any().StartGame(context.Background()))
	tbl.bus.Flush()

	tbl.assertConverged(t)
	st := tbl.any().State()
	assert.Equal(t, game.PhaseTeamBuilding, st.Phase)
	assert.Equal(t, 1, st.CurrentMissionNumber)

	var spies int
	for _, p := range st.Players {
		if p.Role == game.RoleSpy {
			spies++
		}
	}
	assert.Equal(t, 2, spies)
}

func TestStartGameRejectedWhenNotReady(t *testing.T) {
	ctx := context.Background()
	bus := transport.NewBus()
	s := newReplica(t, bus, "alice")
	require.NoError(t, s.Join(ctx))
	bus.Flush()

	err := s.StartGame(ctx)
	assert.ErrorIs(t, err, game.ErrInvalidPlayerCount)
}

func TestVisibleRolesPerReplica(t *testing.T) {
	tbl := newTable(t)
	require.NoError(t, tbl.any().StartGame(context.Background()))
	tbl.bus.Flush()

	st := tbl.any().State()
	for id, s := range tbl.sessions {
		visible := s.VisibleRoles()
		self := st.GetPlayer(id)
		require.NotNil(t, self)
		if self.Role == game.RoleSpy {
			for _, p := range st.Players {
				assert.Equal(t, p.Role, visible[p.ID], "spy sees true roles")
			}
		} else {
			assert.Equal(t, game.RoleResistance, visible[id])
			hidden := 0
			for _, role := range visible {
				if role == game.RoleHidden {
					hidden++
				}
			}
			assert.Equal(t, 4, hidden, "resistance sees only their own role")
		}
	}
}

func TestNonLeaderCannotProposeTeam(t *testing.T) {
	tbl := newTable(t)
	ctx := context.Background()
	require.NoError(t, tbl.any().StartGame(ctx))
	tbl.bus.Flush()

	leaderID := tbl.any().State().CurrentLeaderID
	for id, s := range tbl.sessions {
		if id == leaderID {
			continue
		}
		err := s.SelectTeam(ctx, []string{id, leaderID})
		assert.ErrorIs(t, err, game.ErrNotLeader)
		break
	}
}

func TestLeaderCannotRecastVote(t *testing.T) {
	tbl := newTable(t)
	ctx := context.Background()
	require.NoError(t, tbl.any().StartGame(ctx))
	tbl.bus.Flush()

	leader := tbl.leader(t)
	st := leader.State()
	team := []string{st.Players[0].ID, st.Players[1].ID}
	require.NoError(t, leader.SelectTeam(ctx, team))
	tbl.bus.Flush()

	err := leader.CastVote(ctx, false)
	assert.ErrorIs(t, err, game.ErrLeaderVoteFixed)
}

func TestRejectedVoteRotatesLeadership(t *testing.T) {
	tbl := newTable(t)
	ctx := context.Background()
	require.NoError(t, tbl.any().StartGame(ctx))
	tbl.bus.Flush()

	leader := tbl.leader(t)
	st := leader.State()
	oldLeaderID := st.CurrentLeaderID
	team := []string{st.Players[0].ID, st.Players[1].ID}
	require.NoError(t, leader.SelectTeam(ctx, team))
	tbl.bus.Flush()

	for id, s := range tbl.sessions {
		if id == oldLeaderID {
			continue
		}
		require.NoError(t, s.CastVote(ctx, false))
		tbl.bus.Flush()
	}

	tbl.assertConverged(t)
	after := tbl.any().State()
	assert.Equal(t, game.PhaseTeamBuilding, after.Phase)
	assert.NotEqual(t, oldLeaderID, after.CurrentLeaderID)
	assert.Equal(t, 1, after.CurrentMissionNumber, "rejection does not consume a mission")
	assert.Empty(t, after.SelectedTeam)
}

func TestFullGameResistanceSweep(t *testing.T) {
	tbl := newTable(t)
	ctx := context.Background()
	require.NoError(t, tbl.any().StartGame(ctx))
	tbl.bus.Flush()

	for mission := 1; mission <= 3; mission++ {
		require.Equal(t, mission, tbl.any().State().CurrentMissionNumber)
		tbl.runSuccessfulMission(t)
	}

	tbl.assertConverged(t)
	st := tbl.any().State()
	assert.Equal(t, game.PhaseGameEnd, st.Phase)
	assert.Equal(t, 3, st.ResistanceScore)
	assert.Equal(t, 0, st.SpyScore)
	assert.Len(t, st.MissionHistory, 3)

	// Replay: back to the lobby with the same roster, clean slate.
	require.NoError(t, tbl.any().Reset(ctx))
	tbl.bus.Flush()
	tbl.assertConverged(t)
	st = tbl.any().State()
	assert.Equal(t, game.PhaseLobby, st.Phase)
	assert.Len(t, st.Players, 5)
	assert.Zero(t, st.ReadyCount())
}

func TestResetOnlyFromGameEnd(t *testing.T) {
	tbl := newTable(t)
	err := tbl.any().Reset(context.Background())
	assert.ErrorIs(t, err, game.ErrInvalidTransition)
}

func TestHandleEventFiltersOwnEcho(t *testing.T) {
	mock := &mockTransport{}
	s, err := New(testLogger(), mock, testRoom, "alice")
	require.NoError(t, err)
	require.NoError(t, s.Join(context.Background()))

	// The relay echoes every event back to its sender; folding the echo must
	// not double-apply on top of the optimistic local apply.
	echo := events.New(testRoom, s.PlayerID(), &events.PlayerJoined{
		PlayerID: s.PlayerID(), PlayerName: "alice",
	})
	s.HandleEvent(echo)
	s.HandleEvent(echo)

	assert.Len(t, s.State().Players, 1)
	assert.Len(t, mock.published(), 1, "echoes must not trigger re-publishes")
}

func TestHandleEventDropsForeignRoom(t *testing.T) {
	mock := &mockTransport{}
	s, err := New(testLogger(), mock, testRoom, "alice")
	require.NoError(t, err)
	require.NoError(t, s.Join(context.Background()))

	s.HandleEvent(events.New("OTHER1", "someone", &events.PlayerJoined{
		PlayerID: "someone", PlayerName: "mallory",
	}))
	assert.Len(t, s.State().Players, 1)
}

func TestHandleEventDuplicateDeliveryIsIdempotent(t *testing.T) {
	mock := &mockTransport{}
	s, err := New(testLogger(), mock, testRoom, "alice")
	require.NoError(t, err)
	require.NoError(t, s.Join(context.Background()))

	join := events.New(testRoom, "bob-id", &events.PlayerJoined{
		PlayerID: "bob-id", PlayerName: "bob",
	})
	s.HandleEvent(join)
	s.HandleEvent(join)
	assert.Len(t, s.State().Players, 2)
}

func TestRuleViolationNeverPublished(t *testing.T) {
	mock := &mockTransport{}
	s, err := New(testLogger(), mock, testRoom, "alice")
	require.NoError(t, err)
	require.NoError(t, s.Join(context.Background()))

	before := len(mock.published())
	err = s.SelectTeam(context.Background(), []string{s.PlayerID()})
	require.Error(t, err)
	assert.Len(t, mock.published(), before, "rejected commands must not reach the wire")
}

func TestStore(t *testing.T) {
	st := NewStore()
	mock := &mockTransport{}
	s, err := New(testLogger(), mock, testRoom, "alice")
	require.NoError(t, err)

	st.Add(testRoom, s)
	got, ok := st.Get(testRoom)
	require.True(t, ok)
	assert.Same(t, s, got)

	st.Delete(testRoom)
	_, ok = st.Get(testRoom)
	assert.False(t, ok)
}
