package purchase

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g11-iic2173/frontend-iic2173-g11/internal/domain"
)

func TestCommitGuardSingleOwner(t *testing.T) {
	guard := NewCommitGuard()

	_, owned := guard.begin("abc:42")
	require.True(t, owned)

	// While the attempt is in flight nobody else owns the key.
	cached, owned := guard.begin("abc:42")
	assert.False(t, owned)
	assert.Nil(t, cached)

	guard.succeed("abc:42", &domain.CommitResult{Message: "ok"})
	assert.True(t, guard.Done("abc:42"))

	// Completed attempts replay the stored result.
	cached, owned = guard.begin("abc:42")
	assert.False(t, owned)
	require.NotNil(t, cached)
	assert.Equal(t, "ok", cached.Message)
}

func TestCommitGuardFailAllowsRetry(t *testing.T) {
	guard := NewCommitGuard()

	_, owned := guard.begin("abc:42")
	require.True(t, owned)
	guard.fail("abc:42")

	assert.False(t, guard.Done("abc:42"))
	_, owned = guard.begin("abc:42")
	assert.True(t, owned, "a cleared marker must accept a new attempt")
}

func TestCommitGuardConcurrentClaims(t *testing.T) {
	guard := NewCommitGuard()

	const attempts = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	owners := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, owned := guard.begin("abc:42"); owned {
				mu.Lock()
				owners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, owners, "exactly one goroutine may own the commit")
}
