package routes

import (
	"github.com/gofiber/fiber/v2"
)

// Guards are the auth middlewares routes attach per group.
type Guards struct {
	Student          fiber.Handler
	Admin            fiber.Handler
	AdminOrPrincipal fiber.Handler
}

func Register(app *fiber.App, g Guards) {
	PublicRoutes(app)
	PaymentRoutes(app, g)
	ProfileRoutes(app, g)
	MessagingRoutes(app, g)
	AuthRoutes(app, g)
	AdminRoutes(app, g)
}
