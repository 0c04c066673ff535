package handler

import (
	"context"
	"errors"

	"cargo-watcher/internal/core/scheduler"
	"cargo-watcher/internal/features/tracking/domain"
	"cargo-watcher/internal/features/tracking/ports"

	"github.com/gofiber/fiber/v2"
)

// Runner triggers a reconciliation cycle on demand.
type Runner interface {
	TryRunNow(ctx context.Context) error
}

// WatchHandler handles HTTP requests for the watch command surface.
type WatchHandler struct {
	runner Runner
	store  ports.ItemStore
}

// NewWatchHandler creates a new WatchHandler.
func NewWatchHandler(runner Runner, store ports.ItemStore) *WatchHandler {
	return &WatchHandler{
		runner: runner,
		store:  store,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// RunResponse acknowledges a triggered cycle.
type RunResponse struct {
	// Status reports the outcome of the trigger.
	Status string `json:"status"`
}

// RunCycle triggers a reconciliation cycle immediately. Responds 409 when a
// cycle is already running; the caller retries later instead of queueing.
func (h *WatchHandler) RunCycle(c *fiber.Ctx) error {
	err := h.runner.TryRunNow(c.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrRunInProgress) {
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
				Message: "a cycle is already running",
				RayID:   c.Locals("requestid").(string),
			})
		}

		// The cycle failed but the failure is contained; the next trigger
		// retries. Surface it to the caller for visibility.
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   c.Locals("requestid").(string),
		})
	}

	return c.JSON(RunResponse{Status: "completed"})
}

// ListItems returns the persisted items. With ?arrived=true only items that
// reached the warehouse are returned.
func (h *WatchHandler) ListItems(c *fiber.Ctx) error {
	arrivedOnly := c.QueryBool("arrived", false)

	items, err := h.store.ListItems(c.Context(), arrivedOnly)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   c.Locals("requestid").(string),
		})
	}

	if items == nil {
		items = []domain.Item{}
	}
	return c.JSON(items)
}
