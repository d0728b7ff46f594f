package main

import (
	"github.com/draftforge/outreach_api/middleware"
	"github.com/draftforge/outreach_api/services"

	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("No .env file loaded")
	}

	ctx, err := context.NewCtx(
		&services.TokenService{},
		&services.JWTService{},
		&services.RedisService{},
		&services.SqliteService{},
		&services.MinIOService{},
		&services.MonitoringService{},

		&services.UsageService{},
		&services.QuotaService{},
		&services.ProviderService{},
		&services.ArticleService{},
		&services.TopicService{},
		&services.ImageService{},

		&middleware.AccessGate{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build service context")
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("Service context exited")
		return
	}
}
