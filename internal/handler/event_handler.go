package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/datasprint/datasprint-api/internal/dto"
	"github.com/datasprint/datasprint-api/internal/service"
)

// EventHandler streams collection change events to subscribed clients over SSE.
type EventHandler struct {
	service   service.EventService
	keepAlive time.Duration
	logger    zerolog.Logger
}

// NewEventHandler constructs the change-feed handler.
func NewEventHandler(service service.EventService, keepAlive time.Duration, logger zerolog.Logger) *EventHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}

	return &EventHandler{
		service:   service,
		keepAlive: keepAlive,
		logger:    logger.With().Str("component", "event_handler").Logger(),
	}
}

// Register attaches the change-feed endpoint.
func (h *EventHandler) Register(router fiber.Router) {
	router.Get("", h.stream)
}

func (h *EventHandler) stream(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	stream, cleanup := h.service.Subscribe()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
		}()

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-stream:
				if !ok {
					return
				}
				if err := writeChangeEvent(w, event); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write change event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func writeChangeEvent(w *bufio.Writer, event dto.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: change\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
