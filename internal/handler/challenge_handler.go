package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/datasprint/datasprint-api/internal/dto"
	"github.com/datasprint/datasprint-api/internal/service"
	"github.com/datasprint/datasprint-api/internal/utils"
)

// ChallengeHandler wires challenge HTTP routes.
type ChallengeHandler struct {
	challenges  service.ChallengeService
	users       service.UserService
	submissions service.SubmissionService
	logger      zerolog.Logger
}

// NewChallengeHandler constructs the handler.
func NewChallengeHandler(
	challenges service.ChallengeService,
	users service.UserService,
	submissions service.SubmissionService,
	logger zerolog.Logger,
) *ChallengeHandler {
	return &ChallengeHandler{
		challenges:  challenges,
		users:       users,
		submissions: submissions,
		logger:      logger.With().Str("component", "challenge_handler").Logger(),
	}
}

// Register attaches the challenge routes. Reads are public; acceptance and
// submission need an authenticated caller, curation needs the admin role.
func (h *ChallengeHandler) Register(router fiber.Router, auth, adminOnly fiber.Handler) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", auth, adminOnly, h.create)
	router.Patch("/:id", auth, adminOnly, h.update)
	router.Delete("/:id", auth, adminOnly, h.delete)
	router.Post("/:id/accept", auth, h.accept)
	router.Post("/:id/submissions", auth, h.submit)
}

func (h *ChallengeHandler) list(c *fiber.Ctx) error {
	challenges, err := h.challenges.List(c.Context())
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "challenges retrieved", challenges)
}

func (h *ChallengeHandler) get(c *fiber.Ctx) error {
	challenge, err := h.challenges.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrChallengeNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "challenge not found")
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "challenge retrieved", challenge)
}

func (h *ChallengeHandler) create(c *fiber.Ctx) error {
	var payload dto.ChallengeCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	challenge, err := h.challenges.Create(c.Context(), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "challenge created", challenge)
}

func (h *ChallengeHandler) update(c *fiber.Ctx) error {
	var payload dto.ChallengeUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	challenge, err := h.challenges.Update(c.Context(), c.Params("id"), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChallengeNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "challenge not found")
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			return h.internalError(c, err)
		}
	}

	return utils.SendSuccess(c, "challenge updated", challenge)
}

func (h *ChallengeHandler) delete(c *fiber.Ctx) error {
	if err := h.challenges.Delete(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, service.ErrChallengeNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "challenge not found")
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "challenge deleted", nil)
}

func (h *ChallengeHandler) accept(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	profile, err := h.users.AcceptChallenge(c.Context(), userID, c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChallengeNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "challenge not found")
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrChallengeNotStarted), errors.Is(err, service.ErrChallengeClosed):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			return h.internalError(c, err)
		}
	}

	return utils.SendSuccess(c, "challenge accepted", profile)
}

func (h *ChallengeHandler) submit(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.UserID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	opened, err := file.Open()
	if err != nil {
		return h.internalError(c, err)
	}
	defer func() { _ = opened.Close() }()

	submission, err := h.submissions.Submit(c.Context(), c.Params("id"), actor, file.Filename, file.Size, opened)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChallengeNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "challenge not found")
		case errors.Is(err, service.ErrChallengeNotStarted), errors.Is(err, service.ErrChallengeClosed):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, service.ErrFileRequired), errors.Is(err, service.ErrUploadTypeNotAllowed):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUploadTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		default:
			return h.internalError(c, err)
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission accepted", submission)
}

func (h *ChallengeHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("challenge handler failure")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
