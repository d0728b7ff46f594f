package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/draftforge/outreach_api/dto"
	"github.com/draftforge/outreach_api/shared"
)

type AdminHandler struct {
	tokenSvc TokenServiceInterface
	usageSvc UsageServiceInterface
}

func NewAdminHandler(tokenSvc TokenServiceInterface, usageSvc UsageServiceInterface) *AdminHandler {
	return &AdminHandler{
		tokenSvc: tokenSvc,
		usageSvc: usageSvc,
	}
}

// RequireMaster guards admin routes. Cookies are client-controlled, so this
// re-validates the token instead of trusting gate annotations alone.
func (h *AdminHandler) RequireMaster() fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind := callerKind(c)
		if kind == shared.KindMasterIP {
			return c.Next()
		}
		if token := callerToken(c); token != "" && h.tokenSvc.IsMasterToken(token) {
			return c.Next()
		}
		return shared.NewForbiddenError(nil, "Forbidden")
	}
}

// @Summary List Trial Usage
// @Description Returns usage counters for every configured trial token. Master only.
// @Tags admin
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=dto.TrialUsageListResponse}
// @Router /api/v1/admin/trial [get]
func (h *AdminHandler) ListUsage(c *fiber.Ctx) error {
	tokens := h.tokenSvc.TrialTokens()
	snapshot := h.usageSvc.Snapshot(tokens)

	entries := make([]dto.TrialUsageEntry, 0, len(snapshot))
	for _, token := range tokens {
		entries = append(entries, dto.TrialUsageEntry{
			Token: token,
			Usage: snapshot[token],
		})
	}

	return shared.ResponseOK(c, dto.TrialUsageListResponse{Tokens: entries})
}

// @Summary Reset Trial Usage
// @Description Zeroes all usage counters for one trial token. Master only.
// @Tags admin
// @Accept  json
// @Produce json
// @Param token path string true "Trial token"
// @Success 200
// @Router /api/v1/admin/trial/{token}/reset [post]
func (h *AdminHandler) ResetUsage(c *fiber.Ctx) error {
	token := c.Params("token")
	if !h.tokenSvc.IsTrialToken(token) {
		return shared.NewNotFoundError(nil, "Not Found")
	}

	h.usageSvc.Reset(token)
	return shared.ResponseOK(c, nil)
}
