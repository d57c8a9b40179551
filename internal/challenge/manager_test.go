package challenge

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "idverse/pkg/domain-errors"
)

type ManagerSuite struct {
	suite.Suite
	now     time.Time
	manager *Manager
}

func (s *ManagerSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.manager = NewManager(NewInMemoryStore(), 5*time.Minute, slog.Default(), WithClock(func() time.Time {
		return s.now
	}))
}

func (s *ManagerSuite) TestIssue_NoncesAreUnique() {
	first, err := s.manager.Issue(context.Background())
	s.Require().NoError(err)
	second, err := s.manager.Issue(context.Background())
	s.Require().NoError(err)

	s.NotEqual(first.Nonce, second.Nonce)
	s.Equal(s.now.Add(5*time.Minute), first.ExpiresAt)
}

func (s *ManagerSuite) TestConsume_SingleUse() {
	ch, err := s.manager.Issue(context.Background())
	s.Require().NoError(err)

	s.Require().NoError(s.manager.Consume(context.Background(), ch.Nonce))

	err = s.manager.Consume(context.Background(), ch.Nonce)
	s.True(dErrors.HasCode(err, dErrors.CodeReplayedChallenge))
}

func (s *ManagerSuite) TestConsume_UnknownNonce() {
	err := s.manager.Consume(context.Background(), "chal-never-issued")
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownChallenge))
}

func (s *ManagerSuite) TestConsume_ExpiredNonce() {
	ch, err := s.manager.Issue(context.Background())
	s.Require().NoError(err)

	s.now = s.now.Add(5*time.Minute + time.Second)
	err = s.manager.Consume(context.Background(), ch.Nonce)
	s.True(dErrors.HasCode(err, dErrors.CodeExpiredChallenge))
}

func (s *ManagerSuite) TestConsume_ConcurrentOneWinner() {
	ch, err := s.manager.Issue(context.Background())
	s.Require().NoError(err)

	const callers = 32
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.manager.Consume(context.Background(), ch.Nonce)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			s.True(dErrors.HasCode(err, dErrors.CodeReplayedChallenge))
		}
	}
	s.Equal(1, winners)
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}
