package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/draftforge/outreach_api/dto"
	"github.com/draftforge/outreach_api/model"
	"github.com/draftforge/outreach_api/shared"
)

type TokenServiceInterface interface {
	IsMasterToken(token string) bool
	IsTrialToken(token string) bool
	TrialTokens() []string
}

type UsageServiceInterface interface {
	Get(token string) *model.UsageRecord
	Reset(token string)
	Snapshot(tokens []string) map[string]model.UsageRecord
}

type QuotaServiceInterface interface {
	Limits() dto.UsageCounters
	CanConsume(token string, class model.ResourceClass, units int) dto.QuotaDecision
}

type ArticleServiceInterface interface {
	Generate(ctx context.Context, token string, req dto.GenerateArticleRequest) (*model.Article, error)
	Humanize(ctx context.Context, token, articleID string, req dto.HumanizeArticleRequest) (*model.Article, error)
	Get(token, articleID string) (*model.Article, error)
	List(token string, limit int) ([]model.Article, error)
}

type TopicServiceInterface interface {
	Discover(ctx context.Context, token string, req dto.DiscoverTopicsRequest) (*dto.DiscoverTopicsResponse, error)
}

type ImageServiceInterface interface {
	Generate(ctx context.Context, token string, req dto.GenerateImageRequest) (*model.GeneratedImage, error)
}

// callerToken returns the validated token the access gate attached, empty
// for master-IP, basic-auth and anonymous callers.
func callerToken(c *fiber.Ctx) string {
	if token, ok := c.Locals(shared.TrialToken).(string); ok {
		return token
	}
	return ""
}

func callerKind(c *fiber.Ctx) string {
	if kind, ok := c.Locals(shared.IdentityKind).(string); ok {
		return kind
	}
	return ""
}
