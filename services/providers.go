package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// ProviderService wraps the external chat, web-search, humanizer and image
// providers as opaque HTTP endpoints. Wire formats are whatever the
// configured provider speaks; this service only reshapes the minimal fields
// the application consumes.
type ProviderService struct {
	appContext.DefaultService

	httpClient *http.Client
	redisSvc   *RedisService

	chatURL      string
	chatKey      string
	chatModel    string
	searchURL    string
	searchKey    string
	humanizerURL string
	humanizerKey string

	searchCacheTTL time.Duration
}

type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

const PROVIDER_SVC = "provider_svc"

func (svc ProviderService) Id() string {
	return PROVIDER_SVC
}

func (svc *ProviderService) Configure(ctx *appContext.Context) error {
	svc.httpClient = &http.Client{
		Timeout: 90 * time.Second,
	}

	svc.chatURL = os.Getenv("CHAT_API_URL")
	svc.chatKey = os.Getenv("CHAT_API_KEY")
	svc.chatModel = os.Getenv("CHAT_MODEL")
	if svc.chatModel == "" {
		svc.chatModel = "gpt-4o-mini"
	}

	svc.searchURL = os.Getenv("SEARCH_API_URL")
	svc.searchKey = os.Getenv("SEARCH_API_KEY")

	svc.humanizerURL = os.Getenv("HUMANIZER_API_URL")
	svc.humanizerKey = os.Getenv("HUMANIZER_API_KEY")

	svc.searchCacheTTL = 1 * time.Hour

	return svc.DefaultService.Configure(ctx)
}

func (svc *ProviderService) Start() error {
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	return nil
}

// CompleteChat sends one system+user exchange to the chat provider and
// returns the assistant text.
func (svc *ProviderService) CompleteChat(ctx context.Context, system, user string) (string, error) {
	if svc.chatURL == "" {
		return "", fmt.Errorf("chat provider not configured")
	}

	payload := map[string]interface{}{
		"model": svc.chatModel,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := svc.postJSON(ctx, svc.chatURL+"/v1/chat/completions", svc.chatKey, payload, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat provider returned no choices")
	}

	return result.Choices[0].Message.Content, nil
}

// SearchWeb queries the search provider, caching results in Redis so
// repeated topic discovery for the same query does not burn provider quota.
func (svc *ProviderService) SearchWeb(ctx context.Context, query string, count int) ([]SearchResult, bool, error) {
	if svc.searchURL == "" {
		return nil, false, fmt.Errorf("search provider not configured")
	}
	if count <= 0 {
		count = 5
	}

	cacheKey := fmt.Sprintf("search:%s:%d", query, count)
	if svc.redisSvc.Available() {
		var cached []SearchResult
		if found, err := svc.redisSvc.GetJSON(ctx, cacheKey, &cached); err == nil && found {
			log.WithField("query", query).Debug("Search cache hit")
			return cached, true, nil
		}
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&count=%d", svc.searchURL, url.QueryEscape(query), count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	if svc.searchKey != "" {
		req.Header.Set("X-Subscription-Token", svc.searchKey)
	}

	resp, err := svc.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("search provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("search provider returned status %d", resp.StatusCode)
	}

	var result struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, fmt.Errorf("failed to decode search response: %w", err)
	}

	if svc.redisSvc.Available() {
		if err := svc.redisSvc.Set(ctx, cacheKey, result.Results, svc.searchCacheTTL); err != nil {
			log.WithError(err).Warn("Failed to cache search results")
		}
	}

	return result.Results, false, nil
}

// Humanize rewrites text through the humanizer provider.
func (svc *ProviderService) Humanize(ctx context.Context, text, strength string) (string, error) {
	if svc.humanizerURL == "" {
		return "", fmt.Errorf("humanizer provider not configured")
	}
	if strength == "" {
		strength = "medium"
	}

	payload := map[string]string{
		"text":     text,
		"strength": strength,
	}

	var result struct {
		Text string `json:"text"`
	}

	if err := svc.postJSON(ctx, svc.humanizerURL+"/humanize", svc.humanizerKey, payload, &result); err != nil {
		return "", err
	}

	if result.Text == "" {
		return "", fmt.Errorf("humanizer returned empty text")
	}

	return result.Text, nil
}

// GenerateImage asks the chat provider's image endpoint for one image and
// returns the decoded bytes.
func (svc *ProviderService) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	if svc.chatURL == "" {
		return nil, "", fmt.Errorf("image provider not configured")
	}

	payload := map[string]interface{}{
		"prompt":          prompt,
		"n":               1,
		"response_format": "b64_json",
	}

	var result struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}

	if err := svc.postJSON(ctx, svc.chatURL+"/v1/images/generations", svc.chatKey, payload, &result); err != nil {
		return nil, "", err
	}

	if len(result.Data) == 0 || result.Data[0].B64JSON == "" {
		return nil, "", fmt.Errorf("image provider returned no image data")
	}

	data, err := base64.StdEncoding.DecodeString(result.Data[0].B64JSON)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image payload: %w", err)
	}

	return data, "image/png", nil
}

func (svc *ProviderService) postJSON(ctx context.Context, endpoint, apiKey string, payload, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := svc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}

	return nil
}
