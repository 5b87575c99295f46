package postgres_test

import (
	"testing"

	"jobengine/internal/infra/postgres"

	"github.com/stretchr/testify/assert"
)

// Every replica must derive the same advisory-lock key from the same job
// name; distinct names must map to distinct keys.
func TestLockKey_DeterministicAndDistinct(t *testing.T) {
	names := []string{"digest", "email", "history-cleanup", "digest-v2"}

	seen := make(map[int64]string, len(names))
	for _, name := range names {
		key := postgres.LockKey(name)
		assert.Equal(t, key, postgres.LockKey(name), "key for %q must be stable", name)
		if prev, ok := seen[key]; ok {
			t.Fatalf("names %q and %q collide on key %d", prev, name, key)
		}
		seen[key] = name
	}
}
