package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/outreach_api/model"
)

func newTestUsageService() *UsageService {
	// No primary store: exercises the in-memory fallback path, which is also
	// what production degrades to when Redis is unreachable.
	return &UsageService{fallback: newMemoryUsageStore()}
}

func TestUsageGetLazilyCreatesZeroRecord(t *testing.T) {
	svc := newTestUsageService()

	record := svc.Get("trial-1")
	require.NotNil(t, record)
	assert.Zero(t, record.ArticlesGenerated)
	assert.Zero(t, record.TopicDiscoveryRuns)
	assert.Zero(t, record.ImagesGenerated)
	assert.Nil(t, record.LastReset)

	// The zero record is persisted, not recomputed.
	_, found, err := svc.fallback.Load(t.Context(), "trial-1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestUsageIncrementIsolatesClassesAndTokens(t *testing.T) {
	svc := newTestUsageService()

	svc.Increment("trial-1", model.ResourceArticles)
	svc.Increment("trial-1", model.ResourceArticles)
	svc.Increment("trial-1", model.ResourceImages)
	svc.Increment("trial-2", model.ResourceTopics)

	first := svc.Get("trial-1")
	assert.Equal(t, 2, first.Count(model.ResourceArticles))
	assert.Equal(t, 0, first.Count(model.ResourceTopics))
	assert.Equal(t, 1, first.Count(model.ResourceImages))

	second := svc.Get("trial-2")
	assert.Equal(t, 1, second.Count(model.ResourceTopics))
	assert.Equal(t, 0, second.Count(model.ResourceArticles))
}

func TestUsageReset(t *testing.T) {
	svc := newTestUsageService()

	svc.Increment("trial-1", model.ResourceArticles)
	svc.Increment("trial-1", model.ResourceImages)

	svc.Reset("trial-1")

	record := svc.Get("trial-1")
	assert.Zero(t, record.Count(model.ResourceArticles))
	assert.Zero(t, record.Count(model.ResourceImages))
	require.NotNil(t, record.LastReset)
}

func TestUsageSnapshot(t *testing.T) {
	svc := newTestUsageService()

	svc.Increment("trial-1", model.ResourceArticles)

	snapshot := svc.Snapshot([]string{"trial-1", "trial-2"})
	require.Len(t, snapshot, 2)
	assert.Equal(t, 1, snapshot["trial-1"].ArticlesGenerated)
	assert.Zero(t, snapshot["trial-2"].ArticlesGenerated)
}

func TestMeterTrialUsageOnlyCountsTrialTokens(t *testing.T) {
	tokens := &TokenService{
		masterToken: "master-secret",
		trialTokens: map[string]bool{"trial-1": true},
	}
	ledger := newTestUsageService()

	// Master and un-tokened callers are unmetered: no record may ever be
	// written under their key.
	meterTrialUsage(tokens, ledger, "master-secret", model.ResourceArticles)
	meterTrialUsage(tokens, ledger, "", model.ResourceArticles)

	ledger.fallback.mu.Lock()
	assert.Empty(t, ledger.fallback.records)
	ledger.fallback.mu.Unlock()

	meterTrialUsage(tokens, ledger, "trial-1", model.ResourceArticles)
	assert.Equal(t, 1, ledger.Get("trial-1").ArticlesGenerated)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := newMemoryUsageStore()
	ctx := t.Context()

	require.NoError(t, store.Save(ctx, "trial-1", &model.UsageRecord{ArticlesGenerated: 1}))

	record, found, err := store.Load(ctx, "trial-1")
	require.NoError(t, err)
	require.True(t, found)

	// Mutating the loaded record must not leak back into the store.
	record.ArticlesGenerated = 99

	again, _, err := store.Load(ctx, "trial-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.ArticlesGenerated)
}
