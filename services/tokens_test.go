package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenServiceLoadFromEnv(t *testing.T) {
	t.Setenv("MASTER_TOKEN", " master-secret ")
	t.Setenv("TRIAL_TOKENS", "trial-1, trial-2 ,,trial-3")

	svc := &TokenService{}
	require.NoError(t, svc.loadFromEnv())

	assert.True(t, svc.IsMasterToken("master-secret"))
	assert.False(t, svc.IsTrialToken("master-secret"))

	for _, token := range []string{"trial-1", "trial-2", "trial-3"} {
		assert.True(t, svc.IsTrialToken(token), token)
		assert.True(t, svc.IsKnownToken(token), token)
	}

	assert.False(t, svc.IsKnownToken(""))
	assert.False(t, svc.IsKnownToken("unknown"))
	assert.ElementsMatch(t, []string{"trial-1", "trial-2", "trial-3"}, svc.TrialTokens())
}

func TestTokenServiceRejectsOverlap(t *testing.T) {
	t.Setenv("MASTER_TOKEN", "shared-token")
	t.Setenv("TRIAL_TOKENS", "trial-1,shared-token")

	svc := &TokenService{}
	assert.Error(t, svc.loadFromEnv())
}

func TestTokenServiceEmptyConfig(t *testing.T) {
	t.Setenv("MASTER_TOKEN", "")
	t.Setenv("TRIAL_TOKENS", "")

	svc := &TokenService{}
	require.NoError(t, svc.loadFromEnv())

	// An empty master token never matches, even against an empty credential.
	assert.False(t, svc.IsMasterToken(""))
	assert.Empty(t, svc.TrialTokens())
}
