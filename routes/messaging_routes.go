package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/wavemandarin/mandarin_school/handlers"
)

func MessagingRoutes(app *fiber.App, g Guards) {
	api := app.Group("/api")

	messages := api.Group("/messages", g.Student)
	messages.Get("", handlers.ListMessages)
	messages.Post("", handlers.SendMessage)
	messages.Put("/:id/read", handlers.MarkMessageRead)

	api.Get("/teachers", g.Student, handlers.ListTeachers)

	api.Use("/ws", handlers.WebsocketUpgrade)
	api.Get("/ws", websocket.New(handlers.ServeWs))
}
