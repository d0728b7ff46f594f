package services

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/draftforge/outreach_api/dto"
	"github.com/draftforge/outreach_api/model"
)

// QuotaLimits is the process-wide maximum per resource class, read-only
// after Configure.
type QuotaLimits struct {
	MaxArticles int
	MaxTopics   int
	MaxImages   int
}

const (
	defaultMaxArticles = 2
	defaultMaxTopics   = 2
	defaultMaxImages   = 1
)

// QuotaService answers "may this token consume N more units of class R".
// It never mutates counters; callers increment through the usage ledger
// only after the metered action succeeds.
type QuotaService struct {
	context.DefaultService

	tokenSvc *TokenService
	usageSvc *UsageService

	limits QuotaLimits
}

const QUOTA_SVC = "quota_svc"

func (svc QuotaService) Id() string {
	return QUOTA_SVC
}

func (svc *QuotaService) Configure(ctx *context.Context) error {
	svc.limits = QuotaLimits{
		MaxArticles: envInt("TRIAL_MAX_ARTICLES", defaultMaxArticles),
		MaxTopics:   envInt("TRIAL_MAX_TOPICS", defaultMaxTopics),
		MaxImages:   envInt("TRIAL_MAX_IMAGES", defaultMaxImages),
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *QuotaService) Start() error {
	svc.tokenSvc = svc.Service(TOKEN_SVC).(*TokenService)
	svc.usageSvc = svc.Service(USAGE_SVC).(*UsageService)
	return nil
}

// Limits exposes the configured maxima in response shape.
func (svc *QuotaService) Limits() dto.UsageCounters {
	return dto.UsageCounters{
		Articles: svc.limits.MaxArticles,
		Topics:   svc.limits.MaxTopics,
		Images:   svc.limits.MaxImages,
	}
}

func (svc *QuotaService) LimitFor(class model.ResourceClass) int {
	switch class {
	case model.ResourceArticles:
		return svc.limits.MaxArticles
	case model.ResourceTopics:
		return svc.limits.MaxTopics
	case model.ResourceImages:
		return svc.limits.MaxImages
	}
	return 0
}

// CanConsume applies the quota rules in order: an absent token is trusted
// (the un-tokened entry points already passed the gate's stricter rules),
// the master token is unlimited and never touches the ledger, unknown
// tokens are hard-denied, and trial tokens are checked against their
// counters.
func (svc *QuotaService) CanConsume(token string, class model.ResourceClass, units int) dto.QuotaDecision {
	if units <= 0 {
		units = 1
	}

	if token == "" {
		return dto.QuotaDecision{Allowed: true}
	}

	if svc.tokenSvc.IsMasterToken(token) {
		return dto.QuotaDecision{Allowed: true}
	}

	if !svc.tokenSvc.IsTrialToken(token) {
		return dto.QuotaDecision{Allowed: false, Reason: "invalid trial token"}
	}

	used := svc.usageSvc.Get(token).Count(class)
	limit := svc.LimitFor(class)

	if used+units > limit {
		reason := fmt.Sprintf("Trial limit reached: maximum %d %s allowed, %d already used", limit, classNoun(class), used)
		log.WithFields(log.Fields{
			"token": token,
			"class": class,
			"used":  used,
			"limit": limit,
		}).Info("Trial quota denied")
		quotaDenialsTotal.WithLabelValues(string(class)).Inc()
		return dto.QuotaDecision{Allowed: false, Reason: reason}
	}

	return dto.QuotaDecision{Allowed: true}
}

func classNoun(class model.ResourceClass) string {
	switch class {
	case model.ResourceArticles:
		return "articles"
	case model.ResourceTopics:
		return "topic discovery runs"
	case model.ResourceImages:
		return "images"
	}
	return string(class)
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return fallback
}
