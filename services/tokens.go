package services

import (
	"fmt"
	"os"
	"strings"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// TokenService resolves the configured master token and trial token set.
// Pure lookups after Configure; no runtime mutation.
type TokenService struct {
	context.DefaultService

	masterToken string
	trialTokens map[string]bool
}

const TOKEN_SVC = "token_svc"

func (svc TokenService) Id() string {
	return TOKEN_SVC
}

func (svc *TokenService) Configure(ctx *context.Context) error {
	if err := svc.loadFromEnv(); err != nil {
		return err
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *TokenService) loadFromEnv() error {
	svc.masterToken = strings.TrimSpace(os.Getenv("MASTER_TOKEN"))

	svc.trialTokens = make(map[string]bool)
	for _, raw := range strings.Split(os.Getenv("TRIAL_TOKENS"), ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		svc.trialTokens[token] = true
	}

	// Master and trial sets must be disjoint; overlapping config would make
	// quota behavior depend on check ordering.
	if svc.masterToken != "" && svc.trialTokens[svc.masterToken] {
		return fmt.Errorf("MASTER_TOKEN must not appear in TRIAL_TOKENS")
	}

	log.WithField("trial_tokens", len(svc.trialTokens)).
		WithField("master_configured", svc.masterToken != "").
		Info("Token registry configured")

	return nil
}

func (svc *TokenService) Start() error {
	return nil
}

func (svc *TokenService) IsMasterToken(token string) bool {
	return svc.masterToken != "" && token == svc.masterToken
}

func (svc *TokenService) IsTrialToken(token string) bool {
	return svc.trialTokens[token]
}

// IsKnownToken reports whether token is the master token or a trial token.
func (svc *TokenService) IsKnownToken(token string) bool {
	return svc.IsMasterToken(token) || svc.IsTrialToken(token)
}

func (svc *TokenService) TrialTokens() []string {
	tokens := make([]string, 0, len(svc.trialTokens))
	for token := range svc.trialTokens {
		tokens = append(tokens, token)
	}
	return tokens
}
