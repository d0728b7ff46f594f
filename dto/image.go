package dto

import "github.com/draftforge/outreach_api/model"

type GenerateImageRequest struct {
	Prompt        string `json:"prompt" validate:"required,min=3,max=1000"`
	StyleImageURL string `json:"style_image_url" validate:"omitempty,url"`
}

func (r GenerateImageRequest) Validate() error {
	return GetValidator().Struct(r)
}

type ImageResponse struct {
	Image *model.GeneratedImage `json:"image"`
}
