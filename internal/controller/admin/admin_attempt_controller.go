package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Quolls/internal/dto"
	"github.com/lshigami/Quolls/internal/service"
	"github.com/rs/zerolog/log"
)

type AdminAttemptController struct {
	attemptService service.AttemptService
	exportService  service.ExportService
}

func NewAdminAttemptController(attemptService service.AttemptService, exportService service.ExportService) *AdminAttemptController {
	return &AdminAttemptController{attemptService: attemptService, exportService: exportService}
}

// ListAttempts godoc
// @Summary (Admin) List all attempts on a test
// @Tags Admin - Attempts
// @Produce json
// @Security BearerAuth
// @Param test_id path int true "Test ID"
// @Success 200 {array} dto.AttemptSummaryDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Admin role required"
// @Router /admin/tests/{test_id}/attempts [get]
func (c *AdminAttemptController) ListAttempts(ctx *gin.Context) {
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}
	attempts, err := c.attemptService.ListAttempts(testID)
	if err != nil {
		respondError(ctx, err, "Failed to list attempts")
		return
	}
	ctx.JSON(http.StatusOK, attempts)
}

// ResetAttempt godoc
// @Summary (Admin) Reset one user's attempt on a test
// @Description Deletes the answer records first, then the attempt rows, returning the user to a clean slate.
// @Tags Admin - Attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param test_id path int true "Test ID"
// @Param reset body dto.ResetAttemptRequest true "User to reset"
// @Success 200 {object} dto.ResetResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Admin role required"
// @Router /admin/tests/{test_id}/attempts/reset [post]
func (c *AdminAttemptController) ResetAttempt(ctx *gin.Context) {
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}
	var req dto.ResetAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	if err := c.attemptService.Reset(testID, req.UserID); err != nil {
		respondError(ctx, err, "Failed to reset attempt")
		return
	}
	log.Info().Uint("testID", testID).Uint("userID", req.UserID).Msg("Admin ResetAttempt: attempt cleared")
	ctx.JSON(http.StatusOK, dto.ResetResponse{Success: true})
}

// ExportAttempts godoc
// @Summary (Admin) Export all attempts on a test as CSV
// @Description One row per attempt: student identity, totals, score percentage, timestamps and status.
// @Tags Admin - Attempts
// @Produce text/csv
// @Security BearerAuth
// @Param test_id path int true "Test ID"
// @Success 200 {string} string "CSV attachment"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Admin role required"
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Router /admin/tests/{test_id}/export [get]
func (c *AdminAttemptController) ExportAttempts(ctx *gin.Context) {
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}
	filename, data, err := c.exportService.ExportAttemptsCSV(testID)
	if err != nil {
		respondError(ctx, err, "Failed to export attempts")
		return
	}
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Data(http.StatusOK, "text/csv", data)
}
