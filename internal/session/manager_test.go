package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rcabanilla/lapida/internal/logger"
	"github.com/rcabanilla/lapida/internal/wizard"
)

func testFactory() Factory {
	return func(token, visitorKey string) *wizard.Wizard {
		return wizard.New(wizard.Config{
			Log:        logger.New("test"),
			VisitorKey: visitorKey,
		})
	}
}

func TestVisitorKey(t *testing.T) {
	key := VisitorKey("secret-token")

	assert.Equal(t, key, VisitorKey("secret-token"), "the derived key is stable")
	assert.NotEqual(t, key, VisitorKey("other-token"))
	assert.NotContains(t, key, "secret-token", "the raw token never appears in storage keys")
	assert.Len(t, key, 36, "the key is a UUID string")
}

func TestManagerGetIsolatesTokens(t *testing.T) {
	m := NewManager(testFactory(), time.Minute, logger.New("test"))
	defer m.Close()

	w1 := m.Get("token-a")
	w2 := m.Get("token-b")
	assert.NotSame(t, w1, w2, "each token gets its own wizard")

	assert.Same(t, w1, m.Get("token-a"), "repeat lookups reuse the session")
	assert.Equal(t, 2, m.Len())
}

func TestManagerEvictsIdleSessions(t *testing.T) {
	m := NewManager(testFactory(), 50*time.Millisecond, logger.New("test"))
	defer m.Close()

	m.Get("token-a")
	assert.Equal(t, 1, m.Len())

	// The janitor runs at most once per second; give it room.
	assert.Eventually(t, func() bool {
		return m.Len() == 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestManagerCloseDropsAllSessions(t *testing.T) {
	m := NewManager(testFactory(), time.Minute, logger.New("test"))

	m.Get("token-a")
	m.Get("token-b")
	m.Close()

	assert.Equal(t, 0, m.Len())
}

func TestVisitorKeyFormat(t *testing.T) {
	// Sanity check the UUID shape so draft filenames stay filesystem safe.
	key := VisitorKey("any")
	assert.Equal(t, 4, strings.Count(key, "-"))
	assert.NotContains(t, key, "/")
}
