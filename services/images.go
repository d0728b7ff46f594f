package services

import (
	"context"
	"fmt"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/draftforge/outreach_api/dto"
	"github.com/draftforge/outreach_api/model"
	"github.com/draftforge/outreach_api/shared"
)

// ImageService generates header images for articles and stores them in
// object storage. When a style reference URL is supplied, the vision side
// of the chat provider is asked for style notes first and those are folded
// into the image prompt.
type ImageService struct {
	appContext.DefaultService

	tokenSvc    *TokenService
	quotaSvc    *QuotaService
	usageSvc    *UsageService
	providerSvc *ProviderService
	minioSvc    *MinIOService
	sqlSvc      *SqliteService
}

const IMAGE_SVC = "image_svc"

func (svc ImageService) Id() string {
	return IMAGE_SVC
}

func (svc *ImageService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *ImageService) Start() error {
	svc.tokenSvc = svc.Service(TOKEN_SVC).(*TokenService)
	svc.quotaSvc = svc.Service(QUOTA_SVC).(*QuotaService)
	svc.usageSvc = svc.Service(USAGE_SVC).(*UsageService)
	svc.providerSvc = svc.Service(PROVIDER_SVC).(*ProviderService)
	svc.minioSvc = svc.Service(MINIO_SVC).(*MinIOService)
	svc.sqlSvc = svc.Service(SQLITE_SVC).(*SqliteService)
	return nil
}

func (svc *ImageService) Generate(ctx context.Context, token string, req dto.GenerateImageRequest) (*model.GeneratedImage, error) {
	decision := svc.quotaSvc.CanConsume(token, model.ResourceImages, 1)
	if !decision.Allowed {
		return nil, shared.NewTooManyRequestsError(fmt.Errorf("quota denied: %s", decision.Reason), decision.Reason)
	}

	prompt := req.Prompt
	styleNotes := ""

	if req.StyleImageURL != "" {
		notes, err := svc.analyzeStyle(ctx, req.StyleImageURL)
		if err != nil {
			// Style analysis is an enhancement; generation proceeds without it.
			log.WithError(err).Warn("Style analysis failed, generating without style notes")
		} else {
			styleNotes = notes
			prompt = fmt.Sprintf("%s\nStyle: %s", prompt, notes)
		}
	}

	data, contentType, err := svc.providerSvc.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, shared.NewServiceUnavailableError(err, "Image generation failed")
	}

	objectKey, objectURL, err := svc.minioSvc.UploadImage(ctx, data, contentType)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to store generated image")
	}

	image := &model.GeneratedImage{
		ID:          uuid.New().String(),
		Token:       token,
		Prompt:      req.Prompt,
		StyleNotes:  styleNotes,
		ObjectKey:   objectKey,
		URL:         objectURL,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		CreatedAt:   time.Now().UTC(),
	}

	if err := svc.sqlSvc.SaveImage(image); err != nil {
		return nil, shared.NewInternalError(err, "Failed to record generated image")
	}

	meterTrialUsage(svc.tokenSvc, svc.usageSvc, token, model.ResourceImages)

	log.WithFields(log.Fields{
		"image_id": image.ID,
		"bytes":    image.SizeBytes,
	}).Info("Image generated")

	return image, nil
}

func (svc *ImageService) analyzeStyle(ctx context.Context, styleURL string) (string, error) {
	system := "You describe the visual style of an image in one short paragraph usable as an image-generation style hint."
	user := fmt.Sprintf("Describe the style of the image at: %s", styleURL)
	return svc.providerSvc.CompleteChat(ctx, system, user)
}
