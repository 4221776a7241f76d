package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/models"
	"github.com/wavemandarin/mandarin_school/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ---- schedules ----

type ScheduleRequest struct {
	CourseID      *uuid.UUID `json:"course_id"`
	TeacherName   *string    `json:"teacher_name"`
	ScheduledDate string     `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	StartTime     string     `json:"start_time" validate:"required,datetime=15:04"`
	EndTime       string     `json:"end_time" validate:"required,datetime=15:04"`
	Timezone      string     `json:"timezone"`
	StudentID     *uuid.UUID `json:"student_id"`
	Status        string     `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
	Notes         *string    `json:"notes"`
}

func (r ScheduleRequest) apply(s *models.ClassSchedule) error {
	if r.EndTime <= r.StartTime {
		return errors.New("end_time must be after start_time")
	}
	tz := r.Timezone
	if tz == "" {
		tz = models.DefaultScheduleTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("unknown timezone %q", tz)
	}
	s.CourseID = r.CourseID
	s.TeacherName = r.TeacherName
	s.ScheduledDate = r.ScheduledDate
	s.StartTime = r.StartTime
	s.EndTime = r.EndTime
	s.Timezone = tz
	s.StudentID = r.StudentID
	s.Notes = r.Notes
	if r.Status != "" {
		s.Status = r.Status
	} else if s.Status == "" {
		s.Status = models.ScheduleScheduled
	}
	return nil
}

func parseScheduleRequest(c *fiber.Ctx) (*ScheduleRequest, error) {
	var req ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, errors.New("Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func AdminListSchedules(c *fiber.Ctx) error {
	q := database.DB.WithContext(c.UserContext()).
		Preload("Course").Preload("Student").
		Order("scheduled_date asc, start_time asc")
	if from := c.Query("from"); from != "" {
		q = q.Where("scheduled_date >= ?", from)
	}
	if to := c.Query("to"); to != "" {
		q = q.Where("scheduled_date <= ?", to)
	}
	if student := c.Query("student_id"); student != "" {
		q = q.Where("student_id = ?", student)
	}

	var schedules []models.ClassSchedule
	if err := q.Find(&schedules).Error; err != nil {
		err = database.Classify(err)
		if errors.Is(err, database.ErrTableNotFound) {
			logrus.Warn("class_schedules table missing, returning empty list")
			return c.JSON([]models.ClassSchedule{})
		}
		return serviceError(c, err)
	}
	return c.JSON(schedules)
}

func AdminCreateSchedule(c *fiber.Ctx) error {
	req, err := parseScheduleRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	var schedule models.ClassSchedule
	if err := req.apply(&schedule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := database.DB.WithContext(c.UserContext()).Create(&schedule).Error; err != nil {
		return serviceError(c, database.Classify(err))
	}
	return c.Status(fiber.StatusCreated).JSON(schedule)
}

func AdminUpdateSchedule(c *fiber.Ctx) error {
	var schedule models.ClassSchedule
	if err := database.DB.WithContext(c.UserContext()).First(&schedule, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Schedule not found"})
	}
	req, err := parseScheduleRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	startChanged := schedule.ScheduledDate != req.ScheduledDate || schedule.StartTime != req.StartTime
	if err := req.apply(&schedule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if startChanged {
		schedule.ReminderSentAt = nil
	}
	if err := database.DB.WithContext(c.UserContext()).Save(&schedule).Error; err != nil {
		return serviceError(c, database.Classify(err))
	}
	return c.JSON(schedule)
}

func AdminDeleteSchedule(c *fiber.Ctx) error {
	res := database.DB.WithContext(c.UserContext()).Delete(&models.ClassSchedule{}, "id = ?", c.Params("id"))
	if res.Error != nil {
		return serviceError(c, database.Classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Schedule not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminListTeachers feeds the teacher-name suggestions in the schedule form.
func AdminListTeachers(c *fiber.Ctx) error {
	var names []string
	err := database.DB.WithContext(c.UserContext()).Model(&models.AdminAccount{}).
		Where("is_active = ?", true).Order("name asc").Pluck("name", &names).Error
	if err != nil {
		return serviceError(c, database.Classify(err))
	}
	return c.JSON(names)
}

// ---- orders ----

func AdminListOrders(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)

	q := database.DB.WithContext(c.UserContext()).Model(&models.StudentOrder{})
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if student := c.Query("student_id"); student != "" {
		q = q.Where("student_id = ?", student)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return serviceError(c, database.Classify(err))
	}
	var orders []models.StudentOrder
	if err := q.Preload("Student").Order("created_at desc").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return serviceError(c, database.Classify(err))
	}
	return c.JSON(fiber.Map{"data": orders, "meta": pageMeta(total, page, limit)})
}

type AdminOrderRequest struct {
	Status    models.OrderStatus `json:"status" validate:"required"`
	StudentID *uuid.UUID         `json:"student_id"`
}

func AdminUpdateOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}
	var req AdminOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil || !req.Status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
	}

	if req.StudentID != nil {
		// the console may send either a profile id or an auth user id
		profile, err := deps.Profiles.FindForOrder(c.UserContext(), *req.StudentID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Student profile not found"})
		}
		req.StudentID = &profile.ID
	}

	result, err := deps.Reconciler.ApplyAdminUpdate(c.UserContext(), orderID, services.AdminOrderUpdate{
		Status:    req.Status,
		StudentID: req.StudentID,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"order": result.Order, "credited": result.Credited, "balance": result.Balance})
}

func AdminRecreditOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}
	result, err := deps.Reconciler.Recredit(c.UserContext(), orderID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"order": result.Order, "credited": result.Credited, "balance": result.Balance})
}

func AdminDeleteOrder(c *fiber.Ctx) error {
	res := database.DB.WithContext(c.UserContext()).Delete(&models.StudentOrder{}, "id = ?", c.Params("id"))
	if res.Error != nil {
		return serviceError(c, database.Classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- students ----

func AdminListStudents(c *fiber.Ctx) error {
	var students []models.UserProfile
	err := database.DB.WithContext(c.UserContext()).Preload("ClassBalance").
		Where("role = ?", models.RoleStudent).Order("created_at desc").Find(&students).Error
	if err != nil {
		return serviceError(c, database.Classify(err))
	}
	return c.JSON(students)
}

func AdminListUsers(c *fiber.Ctx) error {
	var users []models.UserProfile
	q := database.DB.WithContext(c.UserContext()).Order("created_at desc")
	if search := c.Query("search"); search != "" {
		term := "%" + search + "%"
		q = q.Where("name ILIKE ? OR email ILIKE ?", term, term)
	}
	if err := q.Find(&users).Error; err != nil {
		return serviceError(c, database.Classify(err))
	}
	return c.JSON(users)
}

// AdminAddStudent enrolls an existing profile: role becomes student and a zero balance is ensured.
func AdminAddStudent(c *fiber.Ctx) error {
	var req struct {
		ProfileID uuid.UUID `json:"profile_id" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if req.ProfileID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "profile_id is required"})
	}

	var profile models.UserProfile
	err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&profile, "id = ?", req.ProfileID).Error; err != nil {
			return err
		}
		if err := tx.Model(&profile).Update("role", models.RoleStudent).Error; err != nil {
			return err
		}
		balance := models.StudentClassBalance{StudentID: profile.ID}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}},
			DoNothing: true,
		}).Create(&balance).Error
	})
	if err != nil {
		return serviceError(c, database.Classify(err))
	}
	deps.Profiles.Invalidate(c.UserContext(), profile.UserID)
	return c.JSON(fiber.Map{"message": "Student added successfully.", "student": profile})
}

func AdminUpdateBalance(c *fiber.Ctx) error {
	studentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}
	var req struct {
		TotalClasses int `json:"total_classes" validate:"gte=0"`
		UsedClasses  int `json:"used_classes" validate:"gte=0,ltefield=TotalClasses"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "used_classes must be between 0 and total_classes"})
	}

	if _, err := deps.Profiles.FindByID(c.UserContext(), studentID); err != nil {
		return serviceError(c, err)
	}

	var balance models.StudentClassBalance
	err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("student_id = ?", studentID).First(&balance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			balance = models.StudentClassBalance{StudentID: studentID}
		} else if err != nil {
			return err
		}
		balance.TotalClasses = req.TotalClasses
		balance.UsedClasses = req.UsedClasses
		if balance.ID == uuid.Nil {
			return tx.Create(&balance).Error
		}
		return tx.Save(&balance).Error
	})
	if err != nil {
		return serviceError(c, database.Classify(err))
	}
	return c.JSON(balance)
}

func AdminStudentOrders(c *fiber.Ctx) error {
	studentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}
	orders, err := deps.Orders.ListForStudent(c.UserContext(), studentID, 0)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(orders)
}

// AdminDeleteStudent removes the profile and everything hanging off it in one transaction.
func AdminDeleteStudent(c *fiber.Ctx) error {
	var profile models.UserProfile
	if err := database.DB.WithContext(c.UserContext()).First(&profile, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}

	err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", profile.ID).Delete(&models.StudentClassBalance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("student_id = ?", profile.ID).Delete(&models.StudentOrder{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", profile.UserID).Delete(&models.UserCourseEnrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("student_id = ?", profile.ID).Delete(&models.ClassSchedule{}).Error; err != nil {
			return err
		}
		return tx.Delete(&profile).Error
	})
	if err != nil {
		return serviceError(c, database.Classify(err))
	}
	deps.Profiles.Invalidate(c.UserContext(), profile.UserID)
	logrus.WithField("profile_id", profile.ID).Info("Student and related records deleted")
	return c.JSON(fiber.Map{"message": "Student and all related data deleted successfully."})
}

// ---- inquiries ----

func AdminListInquiries(c *fiber.Ctx) error {
	var inquiries []models.BookingInquiry
	q := database.DB.WithContext(c.UserContext()).Order("created_at desc")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&inquiries).Error; err != nil {
		return serviceError(c, database.Classify(err))
	}
	return c.JSON(inquiries)
}

func AdminUpdateInquiryStatus(c *fiber.Ctx) error {
	var req struct {
		Status string `json:"status" validate:"required,oneof=pending contacted completed"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	res := database.DB.WithContext(c.UserContext()).Model(&models.BookingInquiry{}).
		Where("id = ?", c.Params("id")).Update("status", req.Status)
	if res.Error != nil {
		return serviceError(c, database.Classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Inquiry not found"})
	}
	return c.JSON(fiber.Map{"message": "Inquiry status updated successfully."})
}

// ---- dashboard & reports ----

func AdminDashboard(c *fiber.Ctx) error {
	db := database.DB.WithContext(c.UserContext())
	var students, pendingOrders, pendingConfirmations, paidOrders, newInquiries, upcoming int64
	var revenue decimal.NullDecimal

	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{db.Model(&models.UserProfile{}).Where("role = ?", models.RoleStudent), &students},
		{db.Model(&models.StudentOrder{}).Where("status = ?", models.OrderPending), &pendingOrders},
		{db.Model(&models.StudentOrder{}).Where("status = ?", models.OrderPendingConfirmation), &pendingConfirmations},
		{db.Model(&models.StudentOrder{}).Where("status = ?", models.OrderPaid), &paidOrders},
		{db.Model(&models.BookingInquiry{}).Where("status = ?", models.InquiryPending), &newInquiries},
		{db.Model(&models.ClassSchedule{}).
			Where("status = ? AND scheduled_date >= ?", models.ScheduleScheduled, models.SchoolDate(time.Now())), &upcoming},
	}
	for _, q := range counts {
		if err := q.query.Count(q.dest).Error; err != nil {
			return serviceError(c, database.Classify(err))
		}
	}
	if err := db.Model(&models.StudentOrder{}).Where("status = ?", models.OrderPaid).
		Select("SUM(amount)").Scan(&revenue).Error; err != nil {
		return serviceError(c, database.Classify(err))
	}

	total := decimal.Zero
	if revenue.Valid {
		total = revenue.Decimal
	}
	return c.JSON(fiber.Map{
		"students":              students,
		"pending_orders":        pendingOrders,
		"pending_confirmations": pendingConfirmations,
		"paid_orders":           paidOrders,
		"revenue_cny":           total.StringFixed(2),
		"new_inquiries":         newInquiries,
		"upcoming_classes":      upcoming,
	})
}

func AdminOrderReport(c *fiber.Ctx) error {
	startDateStr := c.Query("start_date", time.Now().AddDate(0, -1, 0).Format("2006-01-02"))
	endDateStr := c.Query("end_date", time.Now().Format("2006-01-02"))

	startDate, err := time.Parse("2006-01-02", startDateStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start_date format. Use YYYY-MM-DD."})
	}
	endDate, err := time.Parse("2006-01-02", endDateStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end_date format. Use YYYY-MM-DD."})
	}
	endDate = endDate.Add(24*time.Hour - time.Second)

	q := database.DB.WithContext(c.UserContext()).Preload("Student").
		Where("created_at BETWEEN ? AND ?", startDate, endDate).Order("created_at desc")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.StudentOrder
	if err := q.Find(&orders).Error; err != nil {
		return serviceError(c, database.Classify(err))
	}

	filename := fmt.Sprintf("orders_%s_to_%s", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if c.Query("format", "csv") == "xlsx" {
		data, err := services.BuildOrdersXLSX(orders)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build spreadsheet"})
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename+".xlsx"))
		return c.Send(data)
	}

	b := new(bytes.Buffer)
	if err := services.WriteOrdersCSV(b, orders); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write CSV"})
	}
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename+".csv"))
	return c.Send(b.Bytes())
}
