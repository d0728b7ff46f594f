package services

import (
	"context"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/draftforge/outreach_api/model"
)

// usageStore is the persistence contract for trial usage records. Both tiers
// implement it so every ledger operation goes through the same
// try-primary/fall-back path.
type usageStore interface {
	Load(ctx context.Context, token string) (*model.UsageRecord, bool, error)
	Save(ctx context.Context, token string, record *model.UsageRecord) error
}

const usageKeyPrefix = "trial:usage:"

type redisUsageStore struct {
	redisSvc *RedisService
}

func (s *redisUsageStore) Load(ctx context.Context, token string) (*model.UsageRecord, bool, error) {
	var record model.UsageRecord
	found, err := s.redisSvc.GetJSON(ctx, usageKeyPrefix+token, &record)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return &record, true, nil
}

func (s *redisUsageStore) Save(ctx context.Context, token string, record *model.UsageRecord) error {
	// No TTL: trial usage survives for the lifetime of the token.
	return s.redisSvc.Set(ctx, usageKeyPrefix+token, record, 0)
}

type memoryUsageStore struct {
	mu      sync.Mutex
	records map[string]model.UsageRecord
}

func newMemoryUsageStore() *memoryUsageStore {
	return &memoryUsageStore{records: make(map[string]model.UsageRecord)}
}

func (s *memoryUsageStore) Load(_ context.Context, token string) (*model.UsageRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[token]
	if !ok {
		return nil, false, nil
	}
	copied := record
	return &copied, true, nil
}

func (s *memoryUsageStore) Save(_ context.Context, token string, record *model.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[token] = *record
	return nil
}

// UsageService is the trial usage ledger. Records live in Redis when it is
// reachable; any store failure degrades that single operation to the
// process-local map without surfacing an error to the caller. The fallback
// map does not survive restarts and is not shared between instances, so it
// is best-effort only.
type UsageService struct {
	appContext.DefaultService

	redisSvc *RedisService

	primary  usageStore
	fallback *memoryUsageStore
}

const USAGE_SVC = "usage_svc"

func (svc UsageService) Id() string {
	return USAGE_SVC
}

func (svc *UsageService) Configure(ctx *appContext.Context) error {
	svc.fallback = newMemoryUsageStore()
	return svc.DefaultService.Configure(ctx)
}

func (svc *UsageService) Start() error {
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	if svc.redisSvc.Available() {
		svc.primary = &redisUsageStore{redisSvc: svc.redisSvc}
	} else {
		log.Warn("Usage ledger running on in-memory store only")
	}
	return nil
}

// Get returns the usage record for token, lazily creating a zeroed record
// the first time a token is seen. It never fails; store errors degrade to
// the fallback map.
func (svc *UsageService) Get(token string) *model.UsageRecord {
	ctx := context.Background()

	record, found := svc.load(ctx, token)
	if found {
		return record
	}

	record = &model.UsageRecord{}
	svc.save(ctx, token, record)
	return record
}

// Increment bumps one counter by exactly one unit. Read-modify-write with
// last-write-wins: two simultaneous increments for the same token can lose
// an update. The limits are abuse thresholds, not billing, and the intended
// call pattern is one increment per user action.
func (svc *UsageService) Increment(token string, class model.ResourceClass) {
	ctx := context.Background()

	record, found := svc.load(ctx, token)
	if !found {
		record = &model.UsageRecord{}
	}
	record.Add(class, 1)
	svc.save(ctx, token, record)

	log.WithFields(log.Fields{
		"token": token,
		"class": class,
		"count": record.Count(class),
	}).Debug("Trial usage incremented")

	usageIncrementsTotal.WithLabelValues(string(class)).Inc()
}

// meterTrialUsage bumps the ledger for trial callers only. Master and
// un-tokened identities are unmetered: the ledger must never hold a record
// keyed by the master token.
func meterTrialUsage(tokens *TokenService, ledger *UsageService, token string, class model.ResourceClass) {
	if !tokens.IsTrialToken(token) {
		return
	}
	ledger.Increment(token, class)
}

// Reset zeroes all counters for token and stamps the reset time.
func (svc *UsageService) Reset(token string) {
	now := time.Now().UTC()
	record := &model.UsageRecord{LastReset: &now}
	svc.save(context.Background(), token, record)
}

func (svc *UsageService) load(ctx context.Context, token string) (*model.UsageRecord, bool) {
	if svc.primary != nil {
		record, found, err := svc.primary.Load(ctx, token)
		if err == nil {
			return record, found
		}
		log.WithError(err).WithField("token", token).Warn("Durable usage read failed, using fallback")
	}

	record, found, _ := svc.fallback.Load(ctx, token)
	return record, found
}

func (svc *UsageService) save(ctx context.Context, token string, record *model.UsageRecord) {
	if svc.primary != nil {
		err := svc.primary.Save(ctx, token, record)
		if err == nil {
			return
		}
		log.WithError(err).WithField("token", token).Warn("Durable usage write failed, using fallback")
	}

	_ = svc.fallback.Save(ctx, token, record)
}

// Snapshot returns usage for every provided token, for the admin listing.
func (svc *UsageService) Snapshot(tokens []string) map[string]model.UsageRecord {
	out := make(map[string]model.UsageRecord, len(tokens))
	for _, token := range tokens {
		out[token] = *svc.Get(token)
	}
	return out
}
