package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classnotex/internal/application/asset/usecases"
	"classnotex/internal/domain/asset"
	"classnotex/internal/domain/quota"
	"classnotex/internal/interfaces/http/middleware"
	"classnotex/internal/shared/logger"
	"classnotex/internal/shared/utils"
)

// AssetHandler handles HTTP requests for the audio asset lifecycle
type AssetHandler struct {
	registerAudioUC *usecases.RegisterAudioUseCase
	commitAudioUC   *usecases.CommitAudioUseCase
	logger          logger.Interface
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(
	registerAudioUC *usecases.RegisterAudioUseCase,
	commitAudioUC *usecases.CommitAudioUseCase,
	logger logger.Interface,
) *AssetHandler {
	return &AssetHandler{
		registerAudioUC: registerAudioUC,
		commitAudioUC:   commitAudioUC,
		logger:          logger,
	}
}

type registerAudioRequest struct {
	SessionID string `json:"session_id" binding:"required,max=64"`
}

// RegisterAudio handles POST /assets
// Registers an upload slot for a session recording. The monthly session
// counter is billed here, before any bytes are accepted.
func (h *AssetHandler) RegisterAudio(c *gin.Context) {
	var req registerAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := h.registerAudioUC.Execute(c.Request.Context(), usecases.RegisterAudioCommand{
		AccountID: middleware.AccountID(c),
		Plan:      middleware.AccountPlan(c),
		SessionID: req.SessionID,
	})
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
		h.logger.Errorw("failed to register audio asset",
			"account_id", middleware.AccountID(c),
			"session_id", req.SessionID,
			"error", err,
		)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"asset_id":    result.AssetSID,
		"storage_key": result.StorageKey,
		"expires_at":  result.ExpiresAt,
	}, "")
}

type commitAudioRequest struct {
	SizeBytes int64 `json:"size_bytes" binding:"required,gt=0"`
}

// CommitAudio handles POST /assets/:id/commit
// Confirms a finished upload and makes the asset available for
// transcription.
func (h *AssetHandler) CommitAudio(c *gin.Context) {
	var req commitAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	a, err := h.commitAudioUC.Execute(c.Request.Context(), usecases.CommitAudioCommand{
		AccountID: middleware.AccountID(c),
		AssetSID:  c.Param("id"),
		SizeBytes: req.SizeBytes,
	})
	if err != nil {
		if errors.Is(err, asset.ErrAssetNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "asset not found")
			return
		}
		var invalid *asset.InvalidTransitionError
		if errors.As(err, &invalid) {
			utils.ErrorResponse(c, http.StatusConflict, invalid.Error())
			return
		}
		h.logger.Errorw("failed to commit audio upload",
			"asset_sid", c.Param("id"),
			"error", err,
		)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"asset_id":   a.SID(),
		"status":     a.Status(),
		"size_bytes": a.SizeBytes(),
	})
}
