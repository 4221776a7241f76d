package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/middleware"
	"github.com/wavemandarin/mandarin_school/models"
	"github.com/wavemandarin/mandarin_school/services"
)

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AdminResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
}

func AdminLogin(c *fiber.Ctx) error {
	var req AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username and password are required"})
	}

	admin, token, err := deps.AdminAuth.Login(c.UserContext(), req.Username, req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid username or password"})
	case errors.Is(err, services.ErrAccountInactive):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Account is deactivated"})
	case err != nil:
		logrus.WithError(err).WithField("username", req.Username).Error("Admin login failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"admin":   AdminResponse{ID: admin.ID, Username: admin.Username, Name: admin.Name},
		"token":   token,
	})
}

type AdminCreateRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
}

// AdminCreate runs behind AdminOrPrincipal, so principalPassword in the body is ignored here.
func AdminCreate(c *fiber.Ctx) error {
	var req AdminCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	if req.Username == "" || req.Password == "" || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username, password and name are required"})
	}
	if len(req.Password) < services.MinPasswordLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Password must be at least 8 characters"})
	}

	hash, err := services.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}

	admin := models.AdminAccount{
		Username:     req.Username,
		PasswordHash: hash,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		IsActive:     true,
	}
	if err := database.DB.WithContext(c.UserContext()).Create(&admin).Error; err != nil {
		if errors.Is(database.Classify(err), database.ErrDuplicate) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Username already exists"})
		}
		logrus.WithError(err).Error("Failed to create admin account")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create admin"})
	}

	logrus.WithField("username", admin.Username).Info("Admin account created")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"admin":   AdminResponse{ID: admin.ID, Username: admin.Username, Name: admin.Name},
	})
}

func AdminToggleActive(c *fiber.Ctx) error {
	var req struct {
		ID       uuid.UUID `json:"id"`
		IsActive *bool     `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if req.ID == uuid.Nil || req.IsActive == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id and is_active are required"})
	}
	if self := middleware.CurrentAdmin(c); self != nil && self.ID == req.ID && !*req.IsActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You cannot deactivate your own account"})
	}

	res := database.DB.WithContext(c.UserContext()).Model(&models.AdminAccount{}).
		Where("id = ?", req.ID).Update("is_active", *req.IsActive)
	if res.Error != nil {
		return serviceError(c, database.Classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Admin not found"})
	}
	return c.JSON(fiber.Map{"success": true})
}

func PrincipalVerify(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if !services.CheckPrincipalPassword(deps.Config.PrincipalPassword, req.Password) {
		logrus.WithField("ip", c.IP()).Warn("Principal password rejected")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "Incorrect password"})
	}
	return c.JSON(fiber.Map{"success": true})
}

func AdminList(c *fiber.Ctx) error {
	var admins []models.AdminAccount
	if err := database.DB.WithContext(c.UserContext()).Order("created_at asc").Find(&admins).Error; err != nil {
		return serviceError(c, database.Classify(err))
	}
	return c.JSON(fiber.Map{"admins": admins})
}

func AdminDelete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Query("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid admin ID"})
	}
	if self := middleware.CurrentAdmin(c); self != nil && self.ID == id {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You cannot delete your own account"})
	}
	res := database.DB.WithContext(c.UserContext()).Delete(&models.AdminAccount{}, "id = ?", id)
	if res.Error != nil {
		return serviceError(c, database.Classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Admin not found"})
	}
	return c.JSON(fiber.Map{"success": true})
}
