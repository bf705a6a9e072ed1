package outcomerunner

import (
	"testing"
	"time"

	"github.com/opencampus/gradeflow/config"
	"github.com/opencampus/gradeflow/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestNewRunner_RequiresStore(t *testing.T) {
	t.Parallel()

	_, err := NewRunner(RunnerOptions{})
	require.ErrorContains(t, err, "either DB or Repo must be provided")
}

// TestNewRunner_WiresInjectedDependencies verifies injected repo and client
// take precedence over database wiring.
func TestNewRunner_WiresInjectedDependencies(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	runner, err := NewRunner(RunnerOptions{
		Repo:   mocks.NewMockOutcomeRepository(ctrl),
		Client: mocks.NewMockLMSOutcomeClient(ctrl),
		Config: config.OutcomesConfig{
			Concurrency:    1,
			MaxAttempts:    3,
			BackoffBase:    10 * time.Second,
			BackoffCap:     time.Minute,
			PollInterval:   time.Second,
			Lease:          time.Minute,
			RequestTimeout: 5 * time.Second,
		},
	})
	require.NoError(t, err)
	assert.NotNil(t, runner.Service())
}

// TestNewRunner_RejectsBadCredentials verifies client wiring surfaces the
// missing-credential error when no client is injected.
func TestNewRunner_RejectsBadCredentials(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	_, err := NewRunner(RunnerOptions{
		Repo:   mocks.NewMockOutcomeRepository(ctrl),
		Config: config.OutcomesConfig{},
	})
	require.ErrorContains(t, err, "wire outcome sync service")
}
