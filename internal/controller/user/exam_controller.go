package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Quolls/internal/dto"
	"github.com/lshigami/Quolls/internal/middleware"
	"github.com/lshigami/Quolls/internal/service"
	"github.com/rs/zerolog/log"
)

// ExamController is the student-facing surface of the attempt engine:
// listing open tests, fetching the shuffled questions, and the
// init/save/submit lifecycle calls.
type ExamController struct {
	testService    service.TestService
	attemptService service.AttemptService
}

func NewExamController(testService service.TestService, attemptService service.AttemptService) *ExamController {
	return &ExamController{testService: testService, attemptService: attemptService}
}

// GetAvailableTests godoc
// @Summary List tests open to the caller
// @Description Returns ENABLED tests with question counts and the caller's own attempt status on each.
// @Tags Exams
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.TestSummaryDTO
// @Failure 401 {object} dto.ErrorResponse
// @Router /tests [get]
func (c *ExamController) GetAvailableTests(ctx *gin.Context) {
	claims := middleware.Session(ctx)
	tests, err := c.testService.GetAvailableTests(claims.UserID)
	if err != nil {
		log.Error().Err(err).Uint("userID", claims.UserID).Msg("GetAvailableTests: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to retrieve tests"})
		return
	}
	ctx.JSON(http.StatusOK, tests)
}

// GetQuestions godoc
// @Summary Get the shuffled question set for a test
// @Description Questions and options are deterministically shuffled per user; correct flags are never included.
// @Tags Exams
// @Produce json
// @Security BearerAuth
// @Param test_id path int true "Test ID"
// @Success 200 {object} dto.QuestionsResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid test ID"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Test not found or not enabled"
// @Router /tests/{test_id}/questions [get]
func (c *ExamController) GetQuestions(ctx *gin.Context) {
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}
	claims := middleware.Session(ctx)

	questions, err := c.testService.GetShuffledQuestions(claims.UserID, testID)
	if err != nil {
		respondError(ctx, err, "Failed to fetch questions")
		return
	}
	ctx.JSON(http.StatusOK, questions)
}

// InitAttempt godoc
// @Summary Create or resume the caller's attempt on a test
// @Description Idempotent: an in-progress attempt is returned unchanged with its original started_at. A completed attempt is rejected.
// @Tags Exams
// @Produce json
// @Security BearerAuth
// @Param test_id path int true "Test ID"
// @Success 200 {object} dto.InitAttemptResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Test already completed"
// @Failure 404 {object} dto.ErrorResponse "Test not found or not enabled"
// @Router /tests/{test_id}/attempts/init [post]
func (c *ExamController) InitAttempt(ctx *gin.Context) {
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}
	claims := middleware.Session(ctx)

	resp, err := c.attemptService.Initiate(claims.UserID, testID)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyCompleted) {
			// The original contract reports a finished test as 403 on init.
			ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Message: "Test already completed"})
			return
		}
		respondError(ctx, err, "Failed to initialize attempt")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// SaveProgress godoc
// @Summary Save in-progress answers
// @Description Merges the submitted sheet (last writer wins per question) and updates the advisory time cache. Fails with 409 once the attempt is completed.
// @Tags Exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param test_id path int true "Test ID"
// @Param attempt_id path int true "Attempt ID"
// @Param progress body dto.SaveProgressRequest true "Answer sheet and optional advisory time remaining"
// @Success 200 {object} dto.SaveProgressResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid ids or body"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt already completed"
// @Router /tests/{test_id}/attempts/{attempt_id} [put]
func (c *ExamController) SaveProgress(ctx *gin.Context) {
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "attempt_id")
	if !ok {
		return
	}
	claims := middleware.Session(ctx)

	var req dto.SaveProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	if err := c.attemptService.SaveProgress(claims.UserID, testID, attemptID, req); err != nil {
		respondError(ctx, err, "Failed to save progress")
		return
	}
	ctx.JSON(http.StatusOK, dto.SaveProgressResponse{Success: true})
}

// SubmitAttempt godoc
// @Summary Finalize and grade the attempt
// @Description Grades the submitted sheet atomically and locks the attempt. A second submit returns 409 without re-grading.
// @Tags Exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param test_id path int true "Test ID"
// @Param attempt_id path int true "Attempt ID"
// @Param submission body dto.SubmitRequest true "Final answer sheet"
// @Success 200 {object} dto.SubmitResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid ids or body"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt already completed"
// @Router /tests/{test_id}/attempts/{attempt_id}/submit [post]
func (c *ExamController) SubmitAttempt(ctx *gin.Context) {
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "attempt_id")
	if !ok {
		return
	}
	claims := middleware.Session(ctx)

	var req dto.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	resp, err := c.attemptService.Submit(claims.UserID, testID, attemptID, req)
	if err != nil {
		respondError(ctx, err, "Failed to submit attempt")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(id), true
}

func respondError(ctx *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrAlreadyCompleted):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "Attempt already completed"})
	case errors.Is(err, service.ErrValidation):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrForbidden):
		ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Message: "Forbidden"})
	default:
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg("request failed")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: fallback})
	}
}
