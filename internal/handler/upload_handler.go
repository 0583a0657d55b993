package handler

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/datasprint/datasprint-api/internal/service"
)

// UploadHandler exposes the raw relay endpoint. Its response shape predates
// the API envelope and is kept as clients already depend on it.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

type uploadResponse struct {
	Success bool   `json:"success"`
	FileID  string `json:"fileId,omitempty"`
	FileURL string `json:"fileUrl,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewUploadHandler constructs the relay handler.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register wires the relay route. Any method other than POST is refused.
func (h *UploadHandler) Register(app *fiber.App) {
	app.Post("/upload", h.upload)
	app.All("/upload", h.methodNotAllowed)
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(uploadResponse{Success: false, Error: "file is required"})
	}

	// Spool to disk so the provider call reads a plain file, then remove the
	// temp copy no matter how forwarding went.
	tempPath := filepath.Join(os.TempDir(), "datasprint-upload-"+uuid.NewString())
	if err := c.SaveFile(file, tempPath); err != nil {
		h.logger.Error().Err(err).Msg("failed to spool upload to disk")
		return c.Status(fiber.StatusInternalServerError).JSON(uploadResponse{Success: false, Error: "upload failed"})
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil {
			h.logger.Warn().Err(err).Str("path", tempPath).Msg("failed to remove temp upload file")
		}
	}()

	spooled, err := os.Open(tempPath)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to reopen spooled upload")
		return c.Status(fiber.StatusInternalServerError).JSON(uploadResponse{Success: false, Error: "upload failed"})
	}
	defer func() { _ = spooled.Close() }()

	result, err := h.service.Forward(c.Context(), file.Filename, file.Size, spooled)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadTooLarge):
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(uploadResponse{Success: false, Error: err.Error()})
		case errors.Is(err, service.ErrUploadTypeNotAllowed), errors.Is(err, service.ErrFileRequired):
			return c.Status(fiber.StatusBadRequest).JSON(uploadResponse{Success: false, Error: err.Error()})
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("upload relay failed")
			return c.Status(fiber.StatusInternalServerError).JSON(uploadResponse{Success: false, Error: "upload failed"})
		}
	}

	return c.JSON(uploadResponse{Success: true, FileID: result.FileID, FileURL: result.FileURL})
}

func (h *UploadHandler) methodNotAllowed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusMethodNotAllowed).JSON(uploadResponse{Success: false, Error: "method not allowed"})
}
