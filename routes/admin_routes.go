package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wavemandarin/mandarin_school/handlers"
)

func AdminRoutes(app *fiber.App, g Guards) {
	admin := app.Group("/api/admin")

	admin.Get("/dashboard", g.Admin, handlers.AdminDashboard)
	admin.Get("/teachers", g.Admin, handlers.AdminListTeachers)
	admin.Get("/users", g.Admin, handlers.AdminListUsers)
	admin.Get("/uploads/signature", g.Admin, handlers.GenerateUploadSignature)

	packages := admin.Group("/packages", g.Admin)
	packages.Get("", handlers.AdminListPackages)
	packages.Post("", handlers.AdminCreatePackage)
	packages.Put("/:id", handlers.AdminUpdatePackage)
	packages.Put("/:id/status", handlers.AdminSetPackageStatus)

	schedules := admin.Group("/schedules", g.Admin)
	schedules.Get("", handlers.AdminListSchedules)
	schedules.Post("", handlers.AdminCreateSchedule)
	schedules.Put("/:id", handlers.AdminUpdateSchedule)
	schedules.Delete("/:id", handlers.AdminDeleteSchedule)

	orders := admin.Group("/orders", g.Admin)
	orders.Get("", handlers.AdminListOrders)
	orders.Put("/:id", handlers.AdminUpdateOrder)
	orders.Delete("/:id", handlers.AdminDeleteOrder)
	orders.Post("/:id/recredit", handlers.AdminRecreditOrder)

	students := admin.Group("/students", g.Admin)
	students.Get("", handlers.AdminListStudents)
	students.Post("", handlers.AdminAddStudent)
	students.Put("/:id/balance", handlers.AdminUpdateBalance)
	students.Get("/:id/orders", handlers.AdminStudentOrders)
	students.Delete("/:id", handlers.AdminDeleteStudent)

	inquiries := admin.Group("/inquiries", g.Admin)
	inquiries.Get("", handlers.AdminListInquiries)
	inquiries.Put("/:id/status", handlers.AdminUpdateInquiryStatus)

	messages := admin.Group("/messages", g.Admin)
	messages.Get("", handlers.ListMessages)
	messages.Post("", handlers.SendMessage)
	messages.Put("/:id/read", handlers.MarkMessageRead)

	admin.Get("/reports/orders", g.Admin, handlers.AdminOrderReport)
}
