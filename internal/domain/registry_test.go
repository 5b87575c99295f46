package domain_test

import (
	"context"
	"fmt"
	"testing"

	"jobengine/internal/domain"
	"jobengine/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopRunner() domain.Runner {
	return domain.RunnerFunc(func(context.Context, *domain.JobContext) error { return nil })
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := domain.NewRegistry()

	err := r.Register(&domain.Job{Name: "email", Spec: "0 0 8 * * *", Runner: noopRunner()})
	require.NoError(t, err)

	entry, err := r.Get("email")
	require.NoError(t, err)
	assert.Equal(t, "email", entry.Job.Name)
	assert.Equal(t, "0 0 8 * * *", entry.Schedule.String())
}

func TestRegistry_DuplicateNameRejected(t *testing.T) {
	r := domain.NewRegistry()

	require.NoError(t, r.Register(&domain.Job{Name: "email", Spec: "* * * * * *", Runner: noopRunner()}))

	err := r.Register(&domain.Job{Name: "email", Spec: "0 * * * * *", Runner: noopRunner()})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateJob)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_InvalidScheduleRejected(t *testing.T) {
	r := domain.NewRegistry()

	err := r.Register(&domain.Job{Name: "bad", Spec: "* * * * *", Runner: noopRunner()})
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrInvalidExpression)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_IncompleteDefinitionRejected(t *testing.T) {
	r := domain.NewRegistry()

	assert.Error(t, r.Register(&domain.Job{Name: "", Spec: "* * * * * *", Runner: noopRunner()}))
	assert.Error(t, r.Register(&domain.Job{Name: "no-spec", Spec: "", Runner: noopRunner()}))
	assert.Error(t, r.Register(&domain.Job{Name: "no-runner", Spec: "* * * * * *"}))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := domain.NewRegistry()
	_, err := r.Get("nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestRegistry_AllPreservesInsertionOrder(t *testing.T) {
	r := domain.NewRegistry()

	var names []string
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("job-%02d", i)
		names = append(names, name)
		require.NoError(t, r.Register(&domain.Job{Name: name, Spec: "* * * * * *", Runner: noopRunner()}))
	}

	entries := r.All()
	require.Len(t, entries, 10)
	for i, entry := range entries {
		assert.Equal(t, names[i], entry.Job.Name)
	}
}
