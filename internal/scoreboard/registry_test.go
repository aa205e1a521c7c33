package scoreboard

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressRegistry_IssueCode_RetriesOnCollision(t *testing.T) {
	r := NewAddressRegistry()

	// rigged generator: always tries a taken code first
	draws := []string{"AAAAAA", "AAAAAA", "AAAAAA", "BBBBBB"}
	i := 0
	r.newCode = func() string {
		code := draws[i%len(draws)]
		i++
		return code
	}

	first := r.IssueCode()
	require.Equal(t, "AAAAAA", first)

	second := r.IssueCode()
	require.Equal(t, "BBBBBB", second, "collision must retry with a new draw")
	require.Equal(t, 4, i, "expected the duplicate draws to be consumed")
}

func TestAddressRegistry_IssueCode_ConcurrentDistinct(t *testing.T) {
	r := NewAddressRegistry()

	const n = 64
	codes := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- r.IssueCode()
		}()
	}
	wg.Wait()
	close(codes)

	seen := make(map[string]bool)
	for code := range codes {
		if seen[code] {
			t.Fatalf("duplicate code issued: %s", code)
		}
		seen[code] = true
		if len(code) != CodeLength {
			t.Fatalf("code %q has wrong length", code)
		}
	}
	require.Len(t, seen, n)
}

func TestAddressRegistry_ResolveIsCaseInsensitiveForCodes(t *testing.T) {
	r := NewAddressRegistry()
	code := r.IssueCode()
	require.NoError(t, r.Bind(code, "m1"))

	id, err := r.Resolve(strings.ToLower(code))
	require.NoError(t, err)
	assert.Equal(t, "m1", id)
}

func TestAddressRegistry_ReleaseIsPermanent(t *testing.T) {
	r := NewAddressRegistry()

	code := r.IssueCode()
	require.NoError(t, r.Bind(code, "m1"))

	matchID, err := r.Release(code)
	require.NoError(t, err)
	assert.Equal(t, "m1", matchID)

	_, err = r.Resolve(code)
	require.ErrorIs(t, err, ErrAddressNotFound)

	_, err = r.Release(code)
	require.ErrorIs(t, err, ErrAddressNotFound)

	require.ErrorIs(t, r.Bind(code, "m2"), ErrAddressNotFound, "a released address never resurrects")
}

func TestAddressRegistry_Sessions(t *testing.T) {
	r := NewAddressRegistry()

	id := r.IssueSession()
	bound, err := r.Resolve(id)
	require.NoError(t, err)
	assert.Empty(t, bound, "fresh session has no match")

	require.NoError(t, r.Bind(id, "m9"))
	bound, err = r.Resolve(id)
	require.NoError(t, err)
	assert.Equal(t, "m9", bound)
}

func TestAddressRegistry_ExpiredBefore(t *testing.T) {
	r := NewAddressRegistry()
	code := r.IssueCode()
	sess := r.IssueSession()

	assert.Empty(t, r.ExpiredBefore(time.Now().Add(-time.Minute)))

	expired := r.ExpiredBefore(time.Now().Add(time.Minute))
	assert.ElementsMatch(t, []string{code, sess}, expired)
}
