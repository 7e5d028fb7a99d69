package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classnotex/internal/application/usage/usecases"
	"classnotex/internal/domain/quota"
	"classnotex/internal/interfaces/http/middleware"
	"classnotex/internal/shared/logger"
	"classnotex/internal/shared/utils"
)

// UsageHandler handles HTTP requests for usage reporting
type UsageHandler struct {
	getUsageUC            *usecases.GetUsageUseCase
	recordServerSessionUC *usecases.RecordServerSessionUseCase
	logger                logger.Interface
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(
	getUsageUC *usecases.GetUsageUseCase,
	recordServerSessionUC *usecases.RecordServerSessionUseCase,
	logger logger.Interface,
) *UsageHandler {
	return &UsageHandler{
		getUsageUC:            getUsageUC,
		recordServerSessionUC: recordServerSessionUC,
		logger:                logger,
	}
}

// GetMyUsage handles GET /me/usage
// Returns the current month's counters with the plan's ceilings.
func (h *UsageHandler) GetMyUsage(c *gin.Context) {
	report, err := h.getUsageUC.Execute(c.Request.Context(), middleware.AccountID(c), middleware.AccountPlan(c))
	if err != nil {
		h.logger.Errorw("failed to build usage report",
			"account_id", middleware.AccountID(c),
			"error", err,
		)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", report)
}

// RecordServerSession handles POST /me/server-sessions
// Books one realtime session against the monthly counter.
func (h *UsageHandler) RecordServerSession(c *gin.Context) {
	err := h.recordServerSessionUC.Execute(c.Request.Context(), middleware.AccountID(c), middleware.AccountPlan(c))
	if err != nil {
		var denied *quota.DeniedError
		if errors.As(err, &denied) {
			c.JSON(http.StatusTooManyRequests, utils.APIResponse{
				Success: false,
				Error: &utils.ErrorInfo{
					Type:    "quota_exceeded",
					Message: denied.Error(),
				},
				Data: gin.H{
					"limit_id": denied.LimitID,
					"plan":     denied.Plan,
					"ceiling":  denied.Ceiling,
					"used":     denied.Used,
				},
			})
			return
		}
		h.logger.Errorw("failed to record server session",
			"account_id", middleware.AccountID(c),
			"error", err,
		)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", nil)
}
