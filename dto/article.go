package dto

import "github.com/draftforge/outreach_api/model"

type GenerateArticleRequest struct {
	Topic    string `json:"topic" validate:"required,min=3,max=300"`
	Audience string `json:"audience" validate:"max=200"`
	Tone     string `json:"tone" validate:"omitempty,oneof=professional casual friendly persuasive"`
	Keywords string `json:"keywords" validate:"max=500"`
}

func (r GenerateArticleRequest) Validate() error {
	return GetValidator().Struct(r)
}

type ArticleResponse struct {
	Article *model.Article `json:"article"`
}

type ArticleListResponse struct {
	Articles []model.Article `json:"articles"`
	Total    int             `json:"total"`
}

type HumanizeArticleRequest struct {
	Strength string `json:"strength" validate:"omitempty,oneof=light medium strong"`
}

func (r HumanizeArticleRequest) Validate() error {
	return GetValidator().Struct(r)
}
