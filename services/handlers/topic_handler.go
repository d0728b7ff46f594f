package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/draftforge/outreach_api/dto"
	"github.com/draftforge/outreach_api/shared"
)

type TopicHandler struct {
	topicSvc TopicServiceInterface
}

func NewTopicHandler(topicSvc TopicServiceInterface) *TopicHandler {
	return &TopicHandler{topicSvc: topicSvc}
}

// @Summary Discover Topics
// @Description Searches the web for fresh sources and proposes outreach topics. Metered against the trial topic-discovery quota.
// @Tags topics
// @Accept  json
// @Produce json
// @Param discoverTopicsRequest body dto.DiscoverTopicsRequest true "Discovery request"
// @Success 200 {object} shared.Response{data=dto.DiscoverTopicsResponse}
// @Router /api/v1/topics/discover [post]
func (h *TopicHandler) Discover(c *fiber.Ctx) error {
	var req dto.DiscoverTopicsRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.topicSvc.Discover(c.UserContext(), callerToken(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}
