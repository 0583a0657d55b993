package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/datasprint/datasprint-api/internal/dto"
	"github.com/datasprint/datasprint-api/internal/repository"
	"github.com/datasprint/datasprint-api/internal/service"
	"github.com/datasprint/datasprint-api/internal/utils"
)

// AdminSubmissionHandler wires the grading and export routes.
type AdminSubmissionHandler struct {
	submissions service.SubmissionService
	exports     service.ExportService
	logger      zerolog.Logger
}

// NewAdminSubmissionHandler constructs the handler.
func NewAdminSubmissionHandler(submissions service.SubmissionService, exports service.ExportService, logger zerolog.Logger) *AdminSubmissionHandler {
	return &AdminSubmissionHandler{
		submissions: submissions,
		exports:     exports,
		logger:      logger.With().Str("component", "admin_submission_handler").Logger(),
	}
}

// Register attaches the administrator submission endpoints.
func (h *AdminSubmissionHandler) Register(router fiber.Router) {
	router.Get("/export.csv", h.exportCSV)
	router.Patch("/:id", h.grade)
}

func (h *AdminSubmissionHandler) grade(c *fiber.Ctx) error {
	var payload dto.SubmissionGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.submissions.Grade(c.Context(), c.Params("id"), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			return h.internalError(c, err)
		}
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *AdminSubmissionHandler) exportCSV(c *fiber.Ctx) error {
	filter := repository.SubmissionFilter{}
	if v := strings.TrimSpace(c.Query("challenge_id")); v != "" {
		filter.ChallengeID = &v
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		filter.Status = &v
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="submissions.csv"`)

	if err := h.exports.SubmissionsCSV(c.Context(), filter, c.Response().BodyWriter()); err != nil {
		return h.internalError(c, err)
	}

	return nil
}

func (h *AdminSubmissionHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("admin submission handler failure")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
