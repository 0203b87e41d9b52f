package server

import (
	"github.com/SilentFURY-x/RideAlong/internal/auth"
	"github.com/SilentFURY-x/RideAlong/internal/config"
	"github.com/SilentFURY-x/RideAlong/internal/events"
	"github.com/SilentFURY-x/RideAlong/internal/request"
	"github.com/SilentFURY-x/RideAlong/internal/ride"
	"github.com/SilentFURY-x/RideAlong/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Events *events.Publisher
	Rides  *ride.Service
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, pub *events.Publisher) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
		Events: pub,
	}
	s.Rides = ride.NewService(db, s.Stream, pub)

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	ride.RegisterRoutes(s.App.Group("/rides"), s.Rides, jwtMiddleware)
	request.RegisterRoutes(s.App.Group("/requests"), request.NewService(s.DB, s.Stream, s.Events), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
