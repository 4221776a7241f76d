package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wavemandarin/mandarin_school/handlers"
)

func ProfileRoutes(app *fiber.App, g Guards) {
	api := app.Group("/api")

	api.Get("/profile/me", g.Student, handlers.GetProfile)
	api.Put("/profile/me", g.Student, handlers.UpdateProfile)
	api.Get("/dashboard", g.Student, handlers.GetStudentDashboard)
	api.Get("/schedules/me", g.Student, handlers.GetMySchedules)
}
