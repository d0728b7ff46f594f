package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/rs/zerolog/log"

	_ "github.com/draftforge/outreach_api/docs"
	"github.com/draftforge/outreach_api/services/handlers"
	"github.com/draftforge/outreach_api/shared"
)

// RequestGate is the access gate contract; declared here rather than
// importing the middleware package so the dependency only points one way.
type RequestGate interface {
	Gate() fiber.Handler
}

type HttpService struct {
	context.DefaultService

	tokenSvc      *TokenService
	usageSvc      *UsageService
	quotaSvc      *QuotaService
	articleSvc    *ArticleService
	topicSvc      *TopicService
	imageSvc      *ImageService
	monitoringSvc *MonitoringService

	port int
	app  *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.tokenSvc = svc.Service(TOKEN_SVC).(*TokenService)
	svc.usageSvc = svc.Service(USAGE_SVC).(*UsageService)
	svc.quotaSvc = svc.Service(QUOTA_SVC).(*QuotaService)
	svc.articleSvc = svc.Service(ARTICLE_SVC).(*ArticleService)
	svc.topicSvc = svc.Service(TOPIC_SVC).(*TopicService)
	svc.imageSvc = svc.Service(IMAGE_SVC).(*ImageService)
	svc.monitoringSvc = svc.Service(MONITORING_SVC).(*MonitoringService)

	gate, ok := svc.Service("access_gate").(RequestGate)
	if !ok {
		return fmt.Errorf("access gate service not registered")
	}

	svc.app = svc.BuildApp(gate)

	log.Info().Int("port", svc.port).Msg("HTTP listening")
	return svc.app.Listen(fmt.Sprintf(":%d", svc.port))
}

// BuildApp assembles the Fiber app; split from Start so tests can exercise
// the full route table without binding a port.
func (svc *HttpService) BuildApp(gate RequestGate) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          svc.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Trial-Token",
		AllowCredentials: false,
	}))
	app.Use(svc.monitoringSvc.Middleware())

	// Every request passes the access gate before any route logic.
	app.Use(gate.Gate())

	app.Get("/", svc.index)
	app.Get("/not-found", svc.notFound)
	app.Get("/ping", svc.ping)
	app.Get("/metrics", svc.monitoringSvc.MetricsHandler())
	app.Get("/swagger/*", swagger.HandlerDefault)

	trialHandler := handlers.NewTrialHandler(svc.tokenSvc, svc.usageSvc, svc.quotaSvc)
	articleHandler := handlers.NewArticleHandler(svc.articleSvc)
	topicHandler := handlers.NewTopicHandler(svc.topicSvc)
	imageHandler := handlers.NewImageHandler(svc.imageSvc)
	adminHandler := handlers.NewAdminHandler(svc.tokenSvc, svc.usageSvc)

	v1 := app.Group("/api/v1")

	v1.Get("/ping", svc.ping)
	v1.Get("/trial/usage", trialHandler.GetUsage)

	v1.Post("/articles/generate", articleHandler.Generate)
	v1.Get("/articles", articleHandler.List)
	v1.Get("/articles/:id", articleHandler.Get)
	v1.Post("/articles/:id/humanize", articleHandler.Humanize)

	v1.Post("/topics/discover", topicHandler.Discover)
	v1.Post("/images/generate", imageHandler.Generate)

	admin := v1.Group("/admin", adminHandler.RequireMaster())
	admin.Get("/trial", adminHandler.ListUsage)
	admin.Post("/trial/:token/reset", adminHandler.ResetUsage)

	app.Use(func(c *fiber.Ctx) error {
		return svc.notFound(c)
	})

	return app
}

func (svc *HttpService) Shutdown() {
	if svc.app != nil {
		_ = svc.app.Shutdown()
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", "pong")
}

// index serves the app shell; the maintenance overlay is client-rendered
// off the gate's response header.
func (svc *HttpService) index(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(`<!doctype html><html><head><title>Outreach Studio</title></head><body><div id="app"></div></body></html>`)
}

func (svc *HttpService) notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).SendString("Not Found")
}

func (svc *HttpService) handleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
	return shared.ResponseInternalError(c, err)
}
