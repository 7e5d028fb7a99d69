package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classnotex/internal/application/artifact/usecases"
	"classnotex/internal/domain/artifact"
	"classnotex/internal/interfaces/http/middleware"
	"classnotex/internal/shared/logger"
	"classnotex/internal/shared/utils"
)

// ArtifactHandler handles HTTP requests for generated artifacts
type ArtifactHandler struct {
	getArtifactUC *usecases.GetArtifactUseCase
	logger        logger.Interface
}

// NewArtifactHandler creates a new artifact handler
func NewArtifactHandler(getArtifactUC *usecases.GetArtifactUseCase, logger logger.Interface) *ArtifactHandler {
	return &ArtifactHandler{getArtifactUC: getArtifactUC, logger: logger}
}

// GetArtifact handles GET /sessions/:id/artifacts/:type
// Query parameters:
//   - format: "html" renders the stored Markdown to sanitized HTML
func (h *ArtifactHandler) GetArtifact(c *gin.Context) {
	asHTML := c.Query("format") == "html"

	view, err := h.getArtifactUC.Execute(
		c.Request.Context(),
		middleware.AccountID(c),
		c.Param("id"),
		artifact.Type(c.Param("type")),
		asHTML,
	)
	if err != nil {
		if errors.Is(err, artifact.ErrArtifactNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "artifact not found")
			return
		}
		h.logger.Errorw("failed to get artifact",
			"session_id", c.Param("id"),
			"artifact_type", c.Param("type"),
			"error", err,
		)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}
