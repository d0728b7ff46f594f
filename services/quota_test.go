package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/outreach_api/model"
)

func newQuotaFixture() (*QuotaService, *UsageService) {
	tokenSvc := &TokenService{
		masterToken: "master-secret",
		trialTokens: map[string]bool{"trial-1": true, "trial-2": true},
	}
	usageSvc := newTestUsageService()

	quotaSvc := &QuotaService{
		tokenSvc: tokenSvc,
		usageSvc: usageSvc,
		limits: QuotaLimits{
			MaxArticles: defaultMaxArticles,
			MaxTopics:   defaultMaxTopics,
			MaxImages:   defaultMaxImages,
		},
	}
	return quotaSvc, usageSvc
}

func TestCanConsumeEmptyTokenAllowed(t *testing.T) {
	quotaSvc, _ := newQuotaFixture()

	decision := quotaSvc.CanConsume("", model.ResourceArticles, 1)
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reason)
}

func TestCanConsumeMasterUnlimited(t *testing.T) {
	quotaSvc, usageSvc := newQuotaFixture()

	for i := 0; i < 10; i++ {
		decision := quotaSvc.CanConsume("master-secret", model.ResourceImages, 1)
		assert.True(t, decision.Allowed)
	}

	// The master token never touches the ledger.
	usageSvc.fallback.mu.Lock()
	defer usageSvc.fallback.mu.Unlock()
	assert.Empty(t, usageSvc.fallback.records)
}

func TestCanConsumeUnknownTokenDenied(t *testing.T) {
	quotaSvc, _ := newQuotaFixture()

	decision := quotaSvc.CanConsume("bogus", model.ResourceArticles, 1)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "invalid trial token", decision.Reason)
}

func TestCanConsumeArticleBoundary(t *testing.T) {
	quotaSvc, usageSvc := newQuotaFixture()

	// 0 and 1 used of 2: allowed.
	assert.True(t, quotaSvc.CanConsume("trial-1", model.ResourceArticles, 1).Allowed)
	usageSvc.Increment("trial-1", model.ResourceArticles)
	assert.True(t, quotaSvc.CanConsume("trial-1", model.ResourceArticles, 1).Allowed)
	usageSvc.Increment("trial-1", model.ResourceArticles)

	// At the limit the next unit is denied.
	decision := quotaSvc.CanConsume("trial-1", model.ResourceArticles, 1)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "Trial limit reached: maximum 2 articles allowed, 2 already used", decision.Reason)

	// Other classes and other tokens are unaffected.
	assert.True(t, quotaSvc.CanConsume("trial-1", model.ResourceTopics, 1).Allowed)
	assert.True(t, quotaSvc.CanConsume("trial-2", model.ResourceArticles, 1).Allowed)
}

func TestCanConsumeImageLimit(t *testing.T) {
	quotaSvc, usageSvc := newQuotaFixture()

	assert.True(t, quotaSvc.CanConsume("trial-1", model.ResourceImages, 1).Allowed)
	usageSvc.Increment("trial-1", model.ResourceImages)

	decision := quotaSvc.CanConsume("trial-1", model.ResourceImages, 1)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "maximum 1 image")
}

func TestCanConsumeMultiUnitRequest(t *testing.T) {
	quotaSvc, usageSvc := newQuotaFixture()

	// Two units fit an untouched two-unit allowance exactly.
	assert.True(t, quotaSvc.CanConsume("trial-1", model.ResourceArticles, 2).Allowed)

	usageSvc.Increment("trial-1", model.ResourceArticles)
	assert.False(t, quotaSvc.CanConsume("trial-1", model.ResourceArticles, 2).Allowed)

	// Non-positive unit counts are treated as a single unit.
	assert.True(t, quotaSvc.CanConsume("trial-1", model.ResourceArticles, 0).Allowed)
}

func TestLimitFor(t *testing.T) {
	quotaSvc, _ := newQuotaFixture()

	assert.Equal(t, 2, quotaSvc.LimitFor(model.ResourceArticles))
	assert.Equal(t, 2, quotaSvc.LimitFor(model.ResourceTopics))
	assert.Equal(t, 1, quotaSvc.LimitFor(model.ResourceImages))
	assert.Equal(t, 0, quotaSvc.LimitFor(model.ResourceClass("unknown")))
}

func TestEnvInt(t *testing.T) {
	key := "TEST_QUOTA_ENV_INT"

	t.Setenv(key, "")
	assert.Equal(t, 5, envInt(key, 5))

	t.Setenv(key, "3")
	assert.Equal(t, 3, envInt(key, 5))

	t.Setenv(key, "0")
	assert.Equal(t, 0, envInt(key, 5))

	t.Setenv(key, "-1")
	assert.Equal(t, 5, envInt(key, 5))

	t.Setenv(key, "not-a-number")
	assert.Equal(t, 5, envInt(key, 5))
}

func TestClassNoun(t *testing.T) {
	require.Equal(t, "articles", classNoun(model.ResourceArticles))
	require.Equal(t, "topic discovery runs", classNoun(model.ResourceTopics))
	require.Equal(t, "images", classNoun(model.ResourceImages))
}

func TestDenialReasonFormat(t *testing.T) {
	quotaSvc, usageSvc := newQuotaFixture()

	usageSvc.Increment("trial-1", model.ResourceTopics)
	usageSvc.Increment("trial-1", model.ResourceTopics)

	decision := quotaSvc.CanConsume("trial-1", model.ResourceTopics, 1)
	require.False(t, decision.Allowed)
	assert.Equal(t,
		fmt.Sprintf("Trial limit reached: maximum %d topic discovery runs allowed, %d already used", 2, 2),
		decision.Reason)
}
