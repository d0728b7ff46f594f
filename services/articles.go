package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/draftforge/outreach_api/dto"
	"github.com/draftforge/outreach_api/model"
	"github.com/draftforge/outreach_api/shared"
)

// ArticleService orchestrates outreach article generation: quota check,
// chat-provider call, archive write, then the usage increment. The
// increment only happens after the provider call succeeds so a failed
// generation does not consume trial quota.
type ArticleService struct {
	appContext.DefaultService

	tokenSvc    *TokenService
	quotaSvc    *QuotaService
	usageSvc    *UsageService
	providerSvc *ProviderService
	sqlSvc      *SqliteService
}

const ARTICLE_SVC = "article_svc"

func (svc ArticleService) Id() string {
	return ARTICLE_SVC
}

func (svc *ArticleService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *ArticleService) Start() error {
	svc.tokenSvc = svc.Service(TOKEN_SVC).(*TokenService)
	svc.quotaSvc = svc.Service(QUOTA_SVC).(*QuotaService)
	svc.usageSvc = svc.Service(USAGE_SVC).(*UsageService)
	svc.providerSvc = svc.Service(PROVIDER_SVC).(*ProviderService)
	svc.sqlSvc = svc.Service(SQLITE_SVC).(*SqliteService)
	return nil
}

func (svc *ArticleService) Generate(ctx context.Context, token string, req dto.GenerateArticleRequest) (*model.Article, error) {
	decision := svc.quotaSvc.CanConsume(token, model.ResourceArticles, 1)
	if !decision.Allowed {
		return nil, shared.NewTooManyRequestsError(fmt.Errorf("quota denied: %s", decision.Reason), decision.Reason)
	}

	system := "You are an outreach copywriter. Write a complete outreach article with a title on the first line."
	user := fmt.Sprintf("Topic: %s", req.Topic)
	if req.Audience != "" {
		user += fmt.Sprintf("\nAudience: %s", req.Audience)
	}
	if req.Tone != "" {
		user += fmt.Sprintf("\nTone: %s", req.Tone)
	}
	if req.Keywords != "" {
		user += fmt.Sprintf("\nKeywords to include: %s", req.Keywords)
	}

	content, err := svc.providerSvc.CompleteChat(ctx, system, user)
	if err != nil {
		return nil, shared.NewServiceUnavailableError(err, "Article generation failed")
	}

	title, body := splitTitle(content)
	now := time.Now().UTC()

	article := &model.Article{
		ID:        uuid.New().String(),
		Token:     token,
		Topic:     req.Topic,
		Audience:  req.Audience,
		Tone:      req.Tone,
		Title:     title,
		Body:      body,
		WordCount: len(strings.Fields(body)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := svc.sqlSvc.SaveArticle(article); err != nil {
		return nil, shared.NewInternalError(err, "Failed to store article")
	}

	meterTrialUsage(svc.tokenSvc, svc.usageSvc, token, model.ResourceArticles)

	log.WithFields(log.Fields{
		"article_id": article.ID,
		"words":      article.WordCount,
	}).Info("Article generated")

	return article, nil
}

func (svc *ArticleService) Humanize(ctx context.Context, token, articleID string, req dto.HumanizeArticleRequest) (*model.Article, error) {
	article, err := svc.sqlSvc.GetArticle(articleID)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "Article not found")
	}

	// Trial callers can only touch their own archive; master sees all.
	if article.Token != "" && article.Token != token && !svc.tokenSvc.IsMasterToken(token) {
		return nil, shared.NewNotFoundError(fmt.Errorf("article %s not owned by caller", articleID), "Article not found")
	}

	text, err := svc.providerSvc.Humanize(ctx, article.Body, req.Strength)
	if err != nil {
		return nil, shared.NewServiceUnavailableError(err, "Humanization failed")
	}

	article.Humanized = true
	article.HumanizedBody = text
	article.UpdatedAt = time.Now().UTC()

	if err := svc.sqlSvc.SaveArticle(article); err != nil {
		return nil, shared.NewInternalError(err, "Failed to store humanized article")
	}

	return article, nil
}

func (svc *ArticleService) Get(token, articleID string) (*model.Article, error) {
	article, err := svc.sqlSvc.GetArticle(articleID)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "Article not found")
	}

	if article.Token != "" && article.Token != token && !svc.tokenSvc.IsMasterToken(token) {
		return nil, shared.NewNotFoundError(fmt.Errorf("article %s not owned by caller", articleID), "Article not found")
	}

	return article, nil
}

func (svc *ArticleService) List(token string, limit int) ([]model.Article, error) {
	scope := token
	if svc.tokenSvc.IsMasterToken(token) {
		scope = ""
	}

	articles, err := svc.sqlSvc.ListArticles(scope, limit)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to list articles")
	}
	return articles, nil
}

func splitTitle(content string) (string, string) {
	content = strings.TrimSpace(content)
	idx := strings.IndexByte(content, '\n')
	if idx < 0 {
		return "", content
	}

	title := strings.TrimSpace(strings.TrimLeft(content[:idx], "# "))
	body := strings.TrimSpace(content[idx+1:])
	return title, body
}
