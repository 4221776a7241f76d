package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wavemandarin/mandarin_school/handlers"
)

func PublicRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/courses", handlers.ListCourses)
	api.Get("/courses/:courseKey", handlers.GetCourse)

	api.Post("/booking-inquiries", handlers.CreateBookingInquiry)
	api.Get("/locales/:lang", handlers.GetLocale)
	api.Get("/currency/rate", handlers.GetConversionRate)
	api.Get("/config", handlers.GetClientConfig)
}
