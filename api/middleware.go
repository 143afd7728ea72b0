package api

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const requestIDKey = "requestid"

// ApplyStandardMiddleware installs panic recovery, request ids, request
// logging and CORS on app.
func ApplyStandardMiddleware(app *fiber.App, cfg ServerConfig, log *slog.Logger) {
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{ContextKey: requestIDKey}))
	app.Use(requestLogger(log))

	allowed := parseOrigins(cfg.CORSOrigins, log)
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			_, ok := allowed[strings.ToLower(origin)]
			return ok
		},
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Authorization,Accept,Content-Type",
		AllowCredentials: true,
	}))
}

// parseOrigins keeps the origins that are scheme://host[:port]. With none
// left, no cross-origin request is allowed.
func parseOrigins(origins []string, log *slog.Logger) map[string]struct{} {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		u, err := url.Parse(strings.TrimSpace(o))
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") || (u.Path != "" && u.Path != "/") {
			log.Warn("skipping invalid cors origin", "origin", o)
			continue
		}
		allowed[strings.ToLower(u.Scheme+"://"+u.Host)] = struct{}{}
	}
	return allowed
}

func requestLogger(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = StatusFor(err)
		}

		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.Log(c.Context(), level, "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start),
			"request_id", c.Locals(requestIDKey),
		)
		return err
	}
}
