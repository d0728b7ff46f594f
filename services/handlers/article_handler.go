package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/draftforge/outreach_api/dto"
	"github.com/draftforge/outreach_api/shared"
)

type ArticleHandler struct {
	articleSvc ArticleServiceInterface
}

func NewArticleHandler(articleSvc ArticleServiceInterface) *ArticleHandler {
	return &ArticleHandler{articleSvc: articleSvc}
}

// @Summary Generate Article
// @Description Generates an outreach article for the given topic. Metered against the trial article quota.
// @Tags articles
// @Accept  json
// @Produce json
// @Param generateArticleRequest body dto.GenerateArticleRequest true "Generation request"
// @Success 200 {object} shared.Response{data=dto.ArticleResponse}
// @Router /api/v1/articles/generate [post]
func (h *ArticleHandler) Generate(c *fiber.Ctx) error {
	var req dto.GenerateArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	article, err := h.articleSvc.Generate(c.UserContext(), callerToken(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, dto.ArticleResponse{Article: article})
}

// @Summary List Articles
// @Description Lists the caller's generated articles, newest first.
// @Tags articles
// @Accept  json
// @Produce json
// @Param limit query int false "Max articles to return"
// @Success 200 {object} shared.Response{data=dto.ArticleListResponse}
// @Router /api/v1/articles [get]
func (h *ArticleHandler) List(c *fiber.Ctx) error {
	articles, err := h.articleSvc.List(callerToken(c), c.QueryInt("limit"))
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, dto.ArticleListResponse{
		Articles: articles,
		Total:    len(articles),
	})
}

// @Summary Get Article
// @Description Fetches one article from the caller's archive.
// @Tags articles
// @Accept  json
// @Produce json
// @Param id path string true "Article ID"
// @Success 200 {object} shared.Response{data=dto.ArticleResponse}
// @Router /api/v1/articles/{id} [get]
func (h *ArticleHandler) Get(c *fiber.Ctx) error {
	article, err := h.articleSvc.Get(callerToken(c), c.Params("id"))
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, dto.ArticleResponse{Article: article})
}

// @Summary Humanize Article
// @Description Rewrites a stored article through the humanizer provider. Not metered.
// @Tags articles
// @Accept  json
// @Produce json
// @Param id path string true "Article ID"
// @Param humanizeArticleRequest body dto.HumanizeArticleRequest false "Humanization options"
// @Success 200 {object} shared.Response{data=dto.ArticleResponse}
// @Router /api/v1/articles/{id}/humanize [post]
func (h *ArticleHandler) Humanize(c *fiber.Ctx) error {
	var req dto.HumanizeArticleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return shared.NewBadRequestError(err, "Invalid request")
		}
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	article, err := h.articleSvc.Humanize(c.UserContext(), callerToken(c), c.Params("id"), req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, dto.ArticleResponse{Article: article})
}
