package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/middleware"
	"github.com/wavemandarin/mandarin_school/models"
	"gorm.io/gorm"
)

type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=255"`
	Phone *string `json:"phone" validate:"omitempty,max=50"`
}

func GetProfile(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)
	full, err := deps.Profiles.FindByID(c.UserContext(), profile.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(full)
}

func UpdateProfile(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	name, phone := "", profile.Phone
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		phone = strings.TrimSpace(*req.Phone)
	}
	if err := deps.Profiles.Update(c.UserContext(), profile, name, phone); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(profile)
}

// GetStudentDashboard returns the class balance, today's classes (school time) and the latest orders.
func GetStudentDashboard(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)
	ctx := c.UserContext()

	balance := models.StudentClassBalance{StudentID: profile.ID}
	err := database.DB.WithContext(ctx).Where("student_id = ?", profile.ID).First(&balance).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return serviceError(c, database.Classify(err))
	}

	today := models.SchoolDate(time.Now())
	var schedules []models.ClassSchedule
	err = database.DB.WithContext(ctx).Preload("Course").
		Where("student_id = ? AND scheduled_date = ?", profile.ID, today).
		Order("start_time asc").Find(&schedules).Error
	if err != nil {
		if !errors.Is(database.Classify(err), database.ErrTableNotFound) {
			return serviceError(c, database.Classify(err))
		}
		logrus.Warn("class_schedules table missing, dashboard shows no classes")
		schedules = []models.ClassSchedule{}
	}

	orders, err := deps.Orders.ListForStudent(ctx, profile.ID, 5)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"profile": profile,
		"balance": fiber.Map{
			"total_classes":     balance.TotalClasses,
			"used_classes":      balance.UsedClasses,
			"remaining_classes": balance.TotalClasses - balance.UsedClasses,
		},
		"today":           today,
		"today_schedules": schedules,
		"recent_orders":   orders,
	})
}

func GetMySchedules(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)

	q := database.DB.WithContext(c.UserContext()).Preload("Course").
		Where("student_id = ?", profile.ID).
		Order("scheduled_date asc, start_time asc")
	if from := c.Query("from"); from != "" {
		q = q.Where("scheduled_date >= ?", from)
	}
	if to := c.Query("to"); to != "" {
		q = q.Where("scheduled_date <= ?", to)
	}

	var schedules []models.ClassSchedule
	if err := q.Find(&schedules).Error; err != nil {
		err = database.Classify(err)
		if errors.Is(err, database.ErrTableNotFound) {
			return c.JSON([]models.ClassSchedule{})
		}
		return serviceError(c, err)
	}
	return c.JSON(schedules)
}
