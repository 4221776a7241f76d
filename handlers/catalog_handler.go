package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/models"
)

func ListCourses(c *fiber.Ctx) error {
	courses, err := deps.Catalog.ActiveCourses(c.UserContext())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(courses)
}

func GetCourse(c *fiber.Ctx) error {
	course, err := deps.Catalog.CourseWithPackages(c.UserContext(), c.Params("courseKey"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(course)
}

type PackageRequest struct {
	CourseKey     string          `json:"course_key" validate:"required"`
	PackageKey    string          `json:"package_key" validate:"required"`
	NameZh        string          `json:"name_zh" validate:"required"`
	NameEn        string          `json:"name_en" validate:"required"`
	DescriptionZh string          `json:"description_zh"`
	DescriptionEn string          `json:"description_en"`
	Price         decimal.Decimal `json:"price"`
	ClassCount    int             `json:"class_count" validate:"required,gt=0"`
	ValidityDays  int             `json:"validity_days" validate:"required,gt=0"`
	Discount      string          `json:"discount"`
	Popular       bool            `json:"popular"`
	SortOrder     int             `json:"sort_order"`
}

func (r PackageRequest) apply(p *models.CoursePackage) {
	p.CourseKey = r.CourseKey
	p.PackageKey = r.PackageKey
	p.NameZh = r.NameZh
	p.NameEn = r.NameEn
	p.DescriptionZh = r.DescriptionZh
	p.DescriptionEn = r.DescriptionEn
	p.Price = r.Price
	p.ClassCount = r.ClassCount
	p.ValidityDays = r.ValidityDays
	p.Discount = r.Discount
	p.Popular = r.Popular
	p.SortOrder = r.SortOrder
}

func parsePackageRequest(c *fiber.Ctx) (*PackageRequest, error) {
	var req PackageRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Price.IsNegative() {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Price cannot be negative"})
	}
	return &req, nil
}

func AdminListPackages(c *fiber.Ctx) error {
	var packages []models.CoursePackage
	q := database.DB.WithContext(c.UserContext()).Order("course_key asc, sort_order asc")
	if course := c.Query("course_key"); course != "" {
		q = q.Where("course_key = ?", course)
	}
	if err := q.Find(&packages).Error; err != nil {
		return serviceError(c, database.Classify(err))
	}
	return c.JSON(packages)
}

func AdminCreatePackage(c *fiber.Ctx) error {
	req, err := parsePackageRequest(c)
	if req == nil {
		return err
	}
	pkg := models.CoursePackage{Currency: "CNY", IsActive: true}
	req.apply(&pkg)
	if err := database.DB.WithContext(c.UserContext()).Create(&pkg).Error; err != nil {
		return serviceError(c, database.Classify(err))
	}
	return c.Status(fiber.StatusCreated).JSON(pkg)
}

func AdminUpdatePackage(c *fiber.Ctx) error {
	var pkg models.CoursePackage
	if err := database.DB.WithContext(c.UserContext()).First(&pkg, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Package not found"})
	}
	req, err := parsePackageRequest(c)
	if req == nil {
		return err
	}
	req.apply(&pkg)
	if err := database.DB.WithContext(c.UserContext()).Save(&pkg).Error; err != nil {
		return serviceError(c, database.Classify(err))
	}
	return c.JSON(pkg)
}

func AdminSetPackageStatus(c *fiber.Ctx) error {
	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	res := database.DB.WithContext(c.UserContext()).Model(&models.CoursePackage{}).
		Where("id = ?", c.Params("id")).Update("is_active", req.IsActive)
	if res.Error != nil {
		return serviceError(c, database.Classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Package not found"})
	}
	return c.JSON(fiber.Map{"message": "Package status updated successfully."})
}
