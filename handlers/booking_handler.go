package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/models"
	"github.com/wavemandarin/mandarin_school/notifications"
)

// sendEmail is swapped in tests.
var sendEmail = notifications.SendEmail

type BookingInquiryRequest struct {
	Name          string `json:"name" validate:"required,max=255"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,max=50"`
	CourseID      string `json:"course_id" validate:"max=50"`
	Level         string `json:"level" validate:"max=30"`
	PreferredDate string `json:"preferred_date" validate:"omitempty,datetime=2006-01-02"`
	PreferredTime string `json:"preferred_time" validate:"omitempty,datetime=15:04"`
	Message       string `json:"message"`
}

// CreateBookingInquiry stores a public booking form submission and notifies staff.
func CreateBookingInquiry(c *fiber.Ctx) error {
	var req BookingInquiryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "Name, email and phone are required",
			"error_zh": "请填写姓名、邮箱和电话",
		})
	}

	inquiry := models.BookingInquiry{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		CourseID:      req.CourseID,
		Level:         req.Level,
		PreferredDate: req.PreferredDate,
		PreferredTime: req.PreferredTime,
		Message:       req.Message,
		Status:        models.InquiryPending,
	}
	if err := database.DB.WithContext(c.UserContext()).Create(&inquiry).Error; err != nil {
		return serviceError(c, database.Classify(err))
	}

	logrus.WithFields(logrus.Fields{"inquiry_id": inquiry.ID, "course": inquiry.CourseID}).Info("Booking inquiry received")
	if staff := deps.Config.EmailSender; staff != "" {
		subject, body := notifications.BookingInquiryEmail(
			inquiry.Name, inquiry.Email, inquiry.Phone, inquiry.CourseID,
			inquiry.PreferredDate, inquiry.PreferredTime, inquiry.Message,
		)
		go sendEmail(deps.Config.EmailSenderName, staff, subject, body)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      inquiry.ID,
		"message": "Thank you, we will contact you shortly.",
	})
}
