package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wavemandarin/mandarin_school/handlers"
)

// AuthRoutes are the staff account endpoints. They share the /api/admin prefix with the
// console but carry their own guards, so the console group must not use a prefix-wide Use.
func AuthRoutes(app *fiber.App, g Guards) {
	api := app.Group("/api")

	api.Post("/admin/login", handlers.AdminLogin)
	api.Post("/admin/create", g.AdminOrPrincipal, handlers.AdminCreate)
	api.Post("/admin/toggle-active", g.AdminOrPrincipal, handlers.AdminToggleActive)
	api.Get("/admin/list", g.AdminOrPrincipal, handlers.AdminList)
	api.Delete("/admin/delete", g.AdminOrPrincipal, handlers.AdminDelete)

	api.Post("/principal/verify", handlers.PrincipalVerify)
}
