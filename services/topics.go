package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/draftforge/outreach_api/dto"
	"github.com/draftforge/outreach_api/model"
	"github.com/draftforge/outreach_api/shared"
)

// TopicService runs topic discovery: a web search for fresh sources, then a
// chat-provider pass that classifies the sources into outreach angles.
type TopicService struct {
	appContext.DefaultService

	tokenSvc    *TokenService
	quotaSvc    *QuotaService
	usageSvc    *UsageService
	providerSvc *ProviderService
}

const TOPIC_SVC = "topic_svc"

func (svc TopicService) Id() string {
	return TOPIC_SVC
}

func (svc *TopicService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *TopicService) Start() error {
	svc.tokenSvc = svc.Service(TOKEN_SVC).(*TokenService)
	svc.quotaSvc = svc.Service(QUOTA_SVC).(*QuotaService)
	svc.usageSvc = svc.Service(USAGE_SVC).(*UsageService)
	svc.providerSvc = svc.Service(PROVIDER_SVC).(*ProviderService)
	return nil
}

func (svc *TopicService) Discover(ctx context.Context, token string, req dto.DiscoverTopicsRequest) (*dto.DiscoverTopicsResponse, error) {
	decision := svc.quotaSvc.CanConsume(token, model.ResourceTopics, 1)
	if !decision.Allowed {
		return nil, shared.NewTooManyRequestsError(fmt.Errorf("quota denied: %s", decision.Reason), decision.Reason)
	}

	count := req.Count
	if count == 0 {
		count = 5
	}

	query := req.Query
	if req.Industry != "" {
		query = fmt.Sprintf("%s %s", req.Query, req.Industry)
	}

	results, cached, err := svc.providerSvc.SearchWeb(ctx, query, count)
	if err != nil {
		return nil, shared.NewServiceUnavailableError(err, "Topic discovery failed")
	}

	topics, err := svc.classifySources(ctx, req.Query, results, count)
	if err != nil {
		return nil, shared.NewServiceUnavailableError(err, "Topic discovery failed")
	}

	meterTrialUsage(svc.tokenSvc, svc.usageSvc, token, model.ResourceTopics)

	log.WithFields(log.Fields{
		"query":  req.Query,
		"topics": len(topics),
		"cached": cached,
	}).Info("Topic discovery completed")

	return &dto.DiscoverTopicsResponse{
		Query:  req.Query,
		Topics: topics,
		Cached: cached,
	}, nil
}

// classifySources asks the chat provider to turn raw search results into
// outreach topic suggestions with a source classification per entry.
func (svc *TopicService) classifySources(ctx context.Context, query string, results []SearchResult, count int) ([]dto.TopicSuggestion, error) {
	var sources strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sources, "%d. %s (%s): %s\n", i+1, r.Title, r.URL, r.Snippet)
	}

	system := "You classify web sources and propose outreach article topics. " +
		"Respond with a JSON array of objects with keys: title, angle, source_url, source_kind " +
		"(one of: news, blog, research, vendor, community)."
	user := fmt.Sprintf("Query: %s\nPropose up to %d topics from these sources:\n%s", query, count, sources.String())

	content, err := svc.providerSvc.CompleteChat(ctx, system, user)
	if err != nil {
		return nil, err
	}

	var topics []dto.TopicSuggestion
	if err := json.Unmarshal([]byte(extractJSONArray(content)), &topics); err != nil {
		return nil, fmt.Errorf("failed to parse topic suggestions: %w", err)
	}

	if len(topics) > count {
		topics = topics[:count]
	}
	return topics, nil
}

// extractJSONArray trims any prose the model wrapped around the array.
func extractJSONArray(content string) string {
	start := strings.IndexByte(content, '[')
	end := strings.LastIndexByte(content, ']')
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
