package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classnotex/internal/application/job/usecases"
	"classnotex/internal/domain/job"
	"classnotex/internal/shared/logger"
	"classnotex/internal/shared/utils"
)

// TaskCallbackHandler receives worker progress and completion callbacks on
// the internal API surface.
type TaskCallbackHandler struct {
	completeJobUC *usecases.CompleteJobUseCase
	jobRepo       job.Repository
	logger        logger.Interface
}

// NewTaskCallbackHandler creates a new task callback handler
func NewTaskCallbackHandler(
	completeJobUC *usecases.CompleteJobUseCase,
	jobRepo job.Repository,
	logger logger.Interface,
) *TaskCallbackHandler {
	return &TaskCallbackHandler{
		completeJobUC: completeJobUC,
		jobRepo:       jobRepo,
		logger:        logger,
	}
}

type completeTaskRequest struct {
	JobID           string  `json:"job_id" binding:"required"`
	Outcome         string  `json:"outcome" binding:"required,oneof=completed failed retry"`
	ErrorReason     string  `json:"error_reason" binding:"omitempty,max=1024"`
	ArtifactContent string  `json:"artifact_content"`
	Language        string  `json:"language" binding:"omitempty,bcp47_language_tag"`
	FinalAmount     float64 `json:"final_amount" binding:"omitempty,gte=0"`
	DurationSec     float64 `json:"duration_sec" binding:"omitempty,gte=0"`
}

// CompleteTask handles POST /tasks/complete
// Workers may redeliver this callback; terminal jobs absorb duplicates.
func (h *TaskCallbackHandler) CompleteTask(c *gin.Context) {
	var req completeTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Outcome == string(usecases.OutcomeCompleted) && req.ArtifactContent == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "artifact_content is required on completion")
		return
	}
	if req.Outcome != string(usecases.OutcomeCompleted) && req.ErrorReason == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "error_reason is required for failed and retry outcomes")
		return
	}

	result, err := h.completeJobUC.Execute(c.Request.Context(), usecases.CompleteJobCommand{
		JobSID:          req.JobID,
		Outcome:         usecases.Outcome(req.Outcome),
		ErrorReason:     req.ErrorReason,
		ArtifactContent: req.ArtifactContent,
		Language:        req.Language,
		FinalAmount:     req.FinalAmount,
		DurationSec:     req.DurationSec,
	})
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Errorw("task completion failed",
			"job_sid", req.JobID,
			"outcome", req.Outcome,
			"error", err,
		)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"job_id":    result.JobSID,
		"status":    result.Status.String(),
		"duplicate": result.Duplicate,
	})
}

type reportProgressRequest struct {
	JobID    string  `json:"job_id" binding:"required"`
	Progress float64 `json:"progress" binding:"gte=0,lte=1"`
}

// ReportProgress handles POST /tasks/progress
// Progress on a job that is no longer running is dropped silently.
func (h *TaskCallbackHandler) ReportProgress(c *gin.Context) {
	var req reportProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if err := h.jobRepo.UpdateProgress(c.Request.Context(), req.JobID, req.Progress); err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "job not found")
			return
		}
		if errors.Is(err, job.ErrStaleTransition) {
			utils.SuccessResponse(c, http.StatusOK, "", gin.H{"dropped": true})
			return
		}
		h.logger.Errorw("failed to record progress", "job_sid", req.JobID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"dropped": false})
}
