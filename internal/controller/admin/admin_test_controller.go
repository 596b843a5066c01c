package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Quolls/internal/dto"
	"github.com/lshigami/Quolls/internal/service"
	"github.com/rs/zerolog/log"
)

type AdminTestController struct {
	adminTestService service.AdminTestService
}

func NewAdminTestController(adminTestService service.AdminTestService) *AdminTestController {
	return &AdminTestController{adminTestService: adminTestService}
}

// CreateTest godoc
// @Summary (Admin) Create a new test with questions and options
// @Description Each question needs at least two options and exactly one flagged correct. Tests start DISABLED unless a status is given.
// @Tags Admin - Tests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param test_data body dto.TestCreateDTO true "Test, questions and options"
// @Success 201 {object} dto.AdminTestDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Admin role required"
// @Router /admin/tests [post]
func (c *AdminTestController) CreateTest(ctx *gin.Context) {
	var req dto.TestCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Admin CreateTest: failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	resp, err := c.adminTestService.CreateTest(req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
			return
		}
		log.Error().Err(err).Msg("Admin CreateTest: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to create test"})
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// UpdateTestStatus godoc
// @Summary (Admin) Enable or disable a test
// @Tags Admin - Tests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param test_id path int true "Test ID"
// @Param status body dto.UpdateTestStatusRequest true "ENABLED or DISABLED"
// @Success 200 {object} dto.AdminTestDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Router /admin/tests/{test_id}/status [put]
func (c *AdminTestController) UpdateTestStatus(ctx *gin.Context) {
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}
	var req dto.UpdateTestStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Status must be either ENABLED or DISABLED"})
		return
	}

	if err := c.adminTestService.UpdateStatus(testID, req.Status); err != nil {
		respondError(ctx, err, "Failed to update test status")
		return
	}
	resp, err := c.adminTestService.GetTest(testID)
	if err != nil {
		respondError(ctx, err, "Failed to reload test")
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
	case errors.Is(err, service.ErrValidation):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
	default:
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg("admin request failed")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: fallback})
	}
}
