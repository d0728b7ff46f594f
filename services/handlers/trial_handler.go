package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/draftforge/outreach_api/dto"
	"github.com/draftforge/outreach_api/shared"
)

type TrialHandler struct {
	tokenSvc TokenServiceInterface
	usageSvc UsageServiceInterface
	quotaSvc QuotaServiceInterface
}

func NewTrialHandler(tokenSvc TokenServiceInterface, usageSvc UsageServiceInterface, quotaSvc QuotaServiceInterface) *TrialHandler {
	return &TrialHandler{
		tokenSvc: tokenSvc,
		usageSvc: usageSvc,
		quotaSvc: quotaSvc,
	}
}

// @Summary Get Trial Usage
// @Description Returns usage counters, limits and remaining quota for the resolved identity. Limits are null for unmetered identities.
// @Tags trial
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=dto.TrialUsageResponse}
// @Router /api/v1/trial/usage [get]
func (h *TrialHandler) GetUsage(c *fiber.Ctx) error {
	token := callerToken(c)
	kind := callerKind(c)

	resp := dto.TrialUsageResponse{Kind: kind}

	if token == "" || h.tokenSvc.IsMasterToken(token) {
		// Master and anonymous identities are unmetered: counters stay
		// zero and limits/remaining are null (unlimited).
		return shared.ResponseOK(c, resp)
	}

	if !h.tokenSvc.IsTrialToken(token) {
		return shared.NewNotFoundError(nil, "Not Found")
	}

	record := h.usageSvc.Get(token)
	limits := h.quotaSvc.Limits()

	resp.Usage = dto.UsageCounters{
		Articles: record.ArticlesGenerated,
		Topics:   record.TopicDiscoveryRuns,
		Images:   record.ImagesGenerated,
	}
	resp.Limits = &limits
	resp.Remaining = &dto.UsageCounters{
		Articles: remaining(limits.Articles, record.ArticlesGenerated),
		Topics:   remaining(limits.Topics, record.TopicDiscoveryRuns),
		Images:   remaining(limits.Images, record.ImagesGenerated),
	}

	return shared.ResponseOK(c, resp)
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
