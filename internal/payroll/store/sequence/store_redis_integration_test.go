//go:build integration

package sequence_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"roadbook/internal/payroll/store/sequence"
	"roadbook/pkg/testutil/containers"
)

type RedisAllocatorSuite struct {
	suite.Suite
	redis     *containers.RedisContainer
	allocator *sequence.RedisAllocator
}

func TestRedisAllocatorSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisAllocatorSuite))
}

func (s *RedisAllocatorSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.allocator = sequence.NewRedisAllocator(s.redis.Client)
}

func (s *RedisAllocatorSuite) SetupTest() {
	err := s.redis.FlushAll(context.Background())
	s.Require().NoError(err)
}

func (s *RedisAllocatorSuite) TestNext() {
	ctx := context.Background()

	s.Run("first INCR creates the counter at one", func() {
		got, err := s.allocator.Next(ctx, 2026)
		s.Require().NoError(err)
		s.Equal(int64(1), got)
	})

	s.Run("subsequent calls increment", func() {
		got, err := s.allocator.Next(ctx, 2026)
		s.Require().NoError(err)
		s.Equal(int64(2), got)
	})

	s.Run("counts each year under its own key", func() {
		got, err := s.allocator.Next(ctx, 2027)
		s.Require().NoError(err)
		s.Equal(int64(1), got)
	})
}

// TestConcurrentAllocation verifies server-side INCR atomicity across
// many clients hammering one year.
func (s *RedisAllocatorSuite) TestConcurrentAllocation() {
	ctx := context.Background()
	const goroutines = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			seq, err := s.allocator.Next(ctx, 2026)
			s.Require().NoError(err)

			mu.Lock()
			defer mu.Unlock()
			s.False(seen[seq], "sequence %d allocated twice", seq)
			seen[seq] = true
		}()
	}

	wg.Wait()

	s.Len(seen, goroutines)
	for i := int64(1); i <= goroutines; i++ {
		s.True(seen[i], "sequence %d missing", i)
	}
}
