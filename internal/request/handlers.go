package request

import (
	"errors"

	"github.com/SilentFURY-x/RideAlong/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			RideID string `json:"ride_id"`
		}
		if err := c.BodyParser(&body); err != nil || body.RideID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "ride_id required")
		}

		req, err := svc.Submit(c.Context(), body.RideID, auth.UserID(c))
		if err != nil {
			return requestError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(req)
	})

	r.Post("/:id/accept", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Accept(c.Context(), c.Params("id"), auth.UserID(c)); err != nil {
			return requestError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/reject", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Reject(c.Context(), c.Params("id"), auth.UserID(c)); err != nil {
			return requestError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/mine", authMiddleware, func(c *fiber.Ctx) error {
		reqs, err := svc.Mine(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if reqs == nil {
			reqs = []JoinRequest{}
		}
		return c.JSON(reqs)
	})

	r.Get("/ride/:rideId", authMiddleware, func(c *fiber.Ctx) error {
		reqs, err := svc.Inbox(c.Context(), c.Params("rideId"), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if reqs == nil {
			reqs = []JoinRequest{}
		}
		return c.JSON(reqs)
	})
}

func requestError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrRideNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotHost):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrRideFull), errors.Is(err, ErrRideClosed), errors.Is(err, ErrRideExpired),
		errors.Is(err, ErrOwnRide), errors.Is(err, ErrAlreadyPassenger), errors.Is(err, ErrBusy),
		errors.Is(err, ErrDuplicate), errors.Is(err, ErrNotPending):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
