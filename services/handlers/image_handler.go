package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/draftforge/outreach_api/dto"
	"github.com/draftforge/outreach_api/shared"
)

type ImageHandler struct {
	imageSvc ImageServiceInterface
}

func NewImageHandler(imageSvc ImageServiceInterface) *ImageHandler {
	return &ImageHandler{imageSvc: imageSvc}
}

// @Summary Generate Image
// @Description Generates a header image, optionally matching the style of a reference image. Metered against the trial image quota.
// @Tags images
// @Accept  json
// @Produce json
// @Param generateImageRequest body dto.GenerateImageRequest true "Image request"
// @Success 200 {object} shared.Response{data=dto.ImageResponse}
// @Router /api/v1/images/generate [post]
func (h *ImageHandler) Generate(c *fiber.Ctx) error {
	var req dto.GenerateImageRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	image, err := h.imageSvc.Generate(c.UserContext(), callerToken(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, dto.ImageResponse{Image: image})
}
