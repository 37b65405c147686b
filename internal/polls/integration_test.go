package polls_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/planmyoutings/backend/config"
	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/auth"
	"github.com/planmyoutings/backend/internal/events"
	"github.com/planmyoutings/backend/internal/groups"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/internal/polls"
	"github.com/planmyoutings/backend/internal/realtime/realtimetest"
	"github.com/planmyoutings/backend/pkg/database"
)

// PostgresSuite runs the engine against a real database. Set OUTINGS_TEST_DATABASE_URL to a
// disposable database; every test starts from empty tables.
type PostgresSuite struct {
	suite.Suite
	pool   *pgxpool.Pool
	users  *auth.Repository
	groups *groups.Service
	events *events.Service
	polls  *polls.Service
	rec    *realtimetest.Recorder
}

func TestPostgresSuite(t *testing.T) {
	dsn := os.Getenv("OUTINGS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("OUTINGS_TEST_DATABASE_URL not set")
	}
	suite.Run(t, &PostgresSuite{})
}

func (s *PostgresSuite) SetupSuite() {
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, config.DatabaseConfig{URL: os.Getenv("OUTINGS_TEST_DATABASE_URL"), MaxConns: 10}, zap.NewNop())
	s.Require().NoError(err)
	_, err = database.Migrate(ctx, pool)
	s.Require().NoError(err)
	s.pool = pool
}

func (s *PostgresSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(),
		`TRUNCATE votes, polls, event_options, events, group_members, groups, email_logs, enquiries, users RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)

	s.rec = &realtimetest.Recorder{}
	s.users = auth.NewRepository(s.pool)
	s.groups = groups.NewService(groups.NewRepository(s.pool), s.rec, nil)
	s.events = events.NewService(events.NewRepository(s.pool), s.groups, s.rec, nil)
	s.polls = polls.NewService(polls.NewRepository(s.pool), s.events, s.rec, nil)
}

func (s *PostgresSuite) createUser(username string) *models.User {
	u := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		Password:    "x",
		FirstName:   username,
		LastName:    "Test",
		YearOfBirth: 1990,
	}
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u
}

func (s *PostgresSuite) TestEmailUniqueIgnoresCase() {
	s.createUser("alice")
	u := &models.User{Username: "alice2", Email: "ALICE@example.com", Password: "x", FirstName: "Alice", LastName: "Test", YearOfBirth: 1990}
	err := s.users.Create(context.Background(), u)
	s.Require().Error(err)
	s.True(apperrors.Is(err, apperrors.KindConflict))
}

func (s *PostgresSuite) count(query string, args ...any) int {
	var n int
	s.Require().NoError(s.pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

type fixture struct {
	group   *models.Group
	event   *models.Event
	o1, o2  *models.EventOption
	poll    *models.Poll
	creator *models.User
}

func (s *PostgresSuite) brunch() fixture {
	ctx := context.Background()
	alice := s.createUser("alice")
	g, err := s.groups.CreateGroup(ctx, alice.ID, "Weekend", "")
	s.Require().NoError(err)
	e, err := s.events.CreateEvent(ctx, alice.ID, events.CreateEventInput{GroupID: g.ID, Title: "Brunch", EventType: "dinner"})
	s.Require().NoError(err)
	o1, err := s.events.AddOption(ctx, e.ID, alice.ID, events.OptionInput{OptionType: "place", Title: "CafeA"})
	s.Require().NoError(err)
	o2, err := s.events.AddOption(ctx, e.ID, alice.ID, events.OptionInput{OptionType: "place", Title: "CafeB"})
	s.Require().NoError(err)
	p, err := s.polls.CreatePoll(ctx, e.ID, alice.ID, "Where to eat?", "")
	s.Require().NoError(err)
	return fixture{group: g, event: e, o1: o1, o2: o2, poll: p, creator: alice}
}

func (s *PostgresSuite) TestEndToEndScenario() {
	ctx := context.Background()
	f := s.brunch()

	update, err := s.polls.CastVote(ctx, f.poll.ID, f.o1.ID, f.creator.ID, nil)
	s.Require().NoError(err)
	s.Equal(1, update.VoteCount)

	_, err = s.polls.CastVote(ctx, f.poll.ID, f.o1.ID, f.creator.ID, nil)
	s.True(apperrors.Is(err, apperrors.KindDuplicateVote))

	tally, err := s.polls.Tally(ctx, f.poll.ID)
	s.Require().NoError(err)
	s.Equal([]models.OptionTally{
		{OptionID: f.o1.ID, Title: "CafeA", Votes: 1},
		{OptionID: f.o2.ID, Title: "CafeB", Votes: 0},
	}, tally)
}

func (s *PostgresSuite) TestSecondVoteWithOtherOptionLeavesOneRow() {
	ctx := context.Background()
	f := s.brunch()

	_, err := s.polls.CastVote(ctx, f.poll.ID, f.o1.ID, f.creator.ID, nil)
	s.Require().NoError(err)
	_, err = s.polls.CastVote(ctx, f.poll.ID, f.o2.ID, f.creator.ID, nil)
	s.True(apperrors.Is(err, apperrors.KindDuplicateVote))

	s.Equal(1, s.count(`SELECT COUNT(*) FROM votes WHERE poll_id = $1 AND user_id = $2`, f.poll.ID, f.creator.ID))
	s.Equal(1, s.count(`SELECT COUNT(*) FROM votes WHERE option_id = $1`, f.o1.ID))
}

func (s *PostgresSuite) TestTallyMatchesVoteRows() {
	ctx := context.Background()
	f := s.brunch()
	bob := s.createUser("bob")
	_, err := s.groups.AddMember(ctx, f.group.ID, f.creator.ID, "bob", "")
	s.Require().NoError(err)

	_, err = s.polls.CastVote(ctx, f.poll.ID, f.o1.ID, f.creator.ID, nil)
	s.Require().NoError(err)
	_, err = s.polls.CastVote(ctx, f.poll.ID, f.o2.ID, bob.ID, nil)
	s.Require().NoError(err)

	tally, err := s.polls.Tally(ctx, f.poll.ID)
	s.Require().NoError(err)
	for _, t := range tally {
		s.Equal(s.count(`SELECT COUNT(*) FROM votes WHERE poll_id = $1 AND option_id = $2`, f.poll.ID, t.OptionID), t.Votes)
		s.Equal(1, t.Votes)
	}
}

func (s *PostgresSuite) TestConcurrentVotesFromOneUser() {
	f := s.brunch()

	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			option := f.o1.ID
			if i%2 == 1 {
				option = f.o2.ID
			}
			_, err := s.polls.CastVote(context.Background(), f.poll.ID, option, f.creator.ID, nil)
			switch {
			case err == nil:
				ok.Add(1)
			case apperrors.Is(err, apperrors.KindDuplicateVote):
				dup.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(9), dup.Load())
	s.Equal(1, s.count(`SELECT COUNT(*) FROM votes WHERE poll_id = $1`, f.poll.ID))
}

func (s *PostgresSuite) TestGroupCreationAddsCreatorAsAdmin() {
	alice := s.createUser("alice")
	g, err := s.groups.CreateGroup(context.Background(), alice.ID, "Trip", "")
	s.Require().NoError(err)

	s.Equal(1, s.count(`SELECT COUNT(*) FROM groups`))
	s.Equal(1, s.count(`SELECT COUNT(*) FROM group_members WHERE group_id = $1 AND user_id = $2 AND role = 'admin'`, g.ID, alice.ID))
	s.Equal(1, s.count(`SELECT COUNT(*) FROM group_members`))
}

func (s *PostgresSuite) TestDeleteGroupCascades() {
	ctx := context.Background()
	f := s.brunch()
	bob := s.createUser("bob")
	_, err := s.groups.AddMember(ctx, f.group.ID, f.creator.ID, "bob", "")
	s.Require().NoError(err)
	_, err = s.polls.CastVote(ctx, f.poll.ID, f.o1.ID, f.creator.ID, nil)
	s.Require().NoError(err)
	_, err = s.polls.CastVote(ctx, f.poll.ID, f.o2.ID, bob.ID, nil)
	s.Require().NoError(err)
	_, err = s.events.RecordDecision(ctx, f.event.ID, f.o1.ID, f.creator.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.groups.DeleteGroup(ctx, f.group.ID, f.creator.ID))

	s.Zero(s.count(`SELECT COUNT(*) FROM groups WHERE id = $1`, f.group.ID))
	s.Zero(s.count(`SELECT COUNT(*) FROM group_members WHERE group_id = $1`, f.group.ID))
	s.Zero(s.count(`SELECT COUNT(*) FROM events WHERE id = $1`, f.event.ID))
	s.Zero(s.count(`SELECT COUNT(*) FROM event_options WHERE id = ANY($1)`, []int64{f.o1.ID, f.o2.ID}))
	s.Zero(s.count(`SELECT COUNT(*) FROM polls WHERE id = $1`, f.poll.ID))
	s.Zero(s.count(`SELECT COUNT(*) FROM votes WHERE poll_id = $1`, f.poll.ID))
	s.Equal(2, s.count(`SELECT COUNT(*) FROM users`))
}

func (s *PostgresSuite) TestOutsiderCannotCreateEvent() {
	ctx := context.Background()
	f := s.brunch()
	mallory := s.createUser("mallory")

	_, err := s.events.CreateEvent(ctx, mallory.ID, events.CreateEventInput{GroupID: f.group.ID, Title: "Party", EventType: "party"})
	s.True(apperrors.Is(err, apperrors.KindAuthorization))
	_, err = s.polls.CastVote(ctx, f.poll.ID, f.o1.ID, mallory.ID, nil)
	s.True(apperrors.Is(err, apperrors.KindAuthorization))
}
