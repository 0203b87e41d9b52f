package ride

import (
	"errors"

	"github.com/SilentFURY-x/RideAlong/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Ride
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Source == "" || req.Destination == "" || req.Date == "" || req.Time == "" || req.Contact == "" {
			return fiber.NewError(fiber.StatusBadRequest, "source, destination, date, time and contact required")
		}
		if req.Seats < 1 || req.Seats > MaxSeats {
			return fiber.NewError(fiber.StatusBadRequest, "seats must be between 1 and 6")
		}
		req.HostID = auth.UserID(c)

		ride, err := svc.Create(c.Context(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(ride)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		rides, err := svc.List(c.Context(), Filters{
			Search:      c.Query("q"),
			Date:        c.Query("date"),
			ExcludeHost: auth.UserID(c),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		viewer := auth.UserID(c)
		views := make([]Ride, 0, len(rides))
		for _, ride := range rides {
			views = append(views, ride.View(viewer))
		}
		return c.JSON(views)
	})

	r.Get("/active", authMiddleware, func(c *fiber.Ctx) error {
		ride, ok, err := svc.ActiveRide(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if !ok {
			return c.JSON(fiber.Map{"ride": nil})
		}
		return c.JSON(fiber.Map{"ride": ride})
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		ride, err := svc.Get(c.Context(), c.Params("id"))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "ride not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(ride.View(auth.UserID(c)))
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		err := svc.Cancel(c.Context(), c.Params("id"), auth.UserID(c))
		if err != nil {
			return rideError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/leave", authMiddleware, func(c *fiber.Ctx) error {
		err := svc.Leave(c.Context(), c.Params("id"), auth.UserID(c))
		if err != nil {
			return rideError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Delete("/:id/passengers/:userId", authMiddleware, func(c *fiber.Ctx) error {
		err := svc.RemovePassenger(c.Context(), c.Params("id"), auth.UserID(c), c.Params("userId"))
		if err != nil {
			return rideError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func rideError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotHost):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotPassenger):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
