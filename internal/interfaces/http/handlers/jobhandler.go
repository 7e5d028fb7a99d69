package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classnotex/internal/application/job/usecases"
	"classnotex/internal/domain/idempotency"
	"classnotex/internal/domain/job"
	"classnotex/internal/domain/quota"
	"classnotex/internal/interfaces/http/middleware"
	"classnotex/internal/shared/constants"
	"classnotex/internal/shared/logger"
	"classnotex/internal/shared/utils"
)

// JobHandler handles HTTP requests for job submission and retrieval
type JobHandler struct {
	submitJobUC       *usecases.SubmitJobUseCase
	getJobUC          *usecases.GetJobUseCase
	listSessionJobsUC *usecases.ListSessionJobsUseCase
	logger            logger.Interface
}

// NewJobHandler creates a new job handler
func NewJobHandler(
	submitJobUC *usecases.SubmitJobUseCase,
	getJobUC *usecases.GetJobUseCase,
	listSessionJobsUC *usecases.ListSessionJobsUseCase,
	logger logger.Interface,
) *JobHandler {
	return &JobHandler{
		submitJobUC:       submitJobUC,
		getJobUC:          getJobUC,
		listSessionJobsUC: listSessionJobsUC,
		logger:            logger,
	}
}

type submitJobRequest struct {
	SessionID        string          `json:"session_id" binding:"required,max=64"`
	JobType          string          `json:"job_type" binding:"required,jobtype"`
	EstimatedSeconds float64         `json:"estimated_seconds" binding:"omitempty,gt=0"`
	Payload          json.RawMessage `json:"payload"`
}

type submitJobResponse struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Replayed bool   `json:"replayed,omitempty"`
}

// SubmitJob handles POST /jobs
// The Idempotency-Key header deduplicates client retries of the same
// submission.
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req submitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := h.submitJobUC.Execute(c.Request.Context(), usecases.SubmitJobCommand{
		AccountID:        middleware.AccountID(c),
		Plan:             middleware.AccountPlan(c),
		SessionID:        req.SessionID,
		JobType:          job.Type(req.JobType),
		IdempotencyKey:   c.GetHeader(constants.HeaderIdempotencyKey),
		EstimatedSeconds: req.EstimatedSeconds,
		Payload:          req.Payload,
	})
	if err != nil {
		h.respondSubmitError(c, err)
		return
	}

	body := submitJobResponse{
		JobID:    result.JobSID,
		Status:   result.Status.String(),
		Replayed: result.Replayed,
	}
	if result.Replayed {
		utils.SuccessResponse(c, http.StatusOK, "", body)
		return
	}
	utils.SuccessResponse(c, http.StatusAccepted, "", body)
}

func (h *JobHandler) respondSubmitError(c *gin.Context, err error) {
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
	if errors.Is(err, idempotency.ErrInFlight) {
		utils.ErrorResponse(c, http.StatusConflict, "a submission with this idempotency key is already in progress")
		return
	}

	h.logger.Errorw("job submission failed",
		"account_id", middleware.AccountID(c),
		"error", err,
	)
	utils.ErrorResponseWithError(c, err)
}

// GetJob handles GET /jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	view, err := h.getJobUC.Execute(c.Request.Context(), middleware.AccountID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Errorw("failed to get job", "job_sid", c.Param("id"), "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}

// ListSessionJobs handles GET /sessions/:id/jobs
func (h *JobHandler) ListSessionJobs(c *gin.Context) {
	views, err := h.listSessionJobsUC.Execute(c.Request.Context(), middleware.AccountID(c), c.Param("id"))
	if err != nil {
		h.logger.Errorw("failed to list session jobs", "session_id", c.Param("id"), "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"jobs": views})
}
