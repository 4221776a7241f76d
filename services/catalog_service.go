package services

import (
	"context"
	"errors"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/models"
	"gorm.io/gorm"
)

type packageSeed struct {
	key      string
	nameZh   string
	nameEn   string
	price    int64
	classes  int
	validity int
	discount string
	popular  bool
}

var trialPackage = packageSeed{key: "trial", nameZh: "体验课", nameEn: "Trial Class", price: 0, classes: 1, validity: 365}

var standardPackages = []packageSeed{
	trialPackage,
	{key: "10", nameZh: "10课时", nameEn: "10 Classes", price: 2800, classes: 10, validity: 105},
	{key: "35", nameZh: "35课时", nameEn: "35 Classes", price: 8330, classes: 35, validity: 364, discount: "15%", popular: true},
	{key: "65", nameZh: "65课时", nameEn: "65 Classes", price: 13650, classes: 65, validity: 560, discount: "25%"},
	{key: "95", nameZh: "95课时", nameEn: "95 Classes", price: 17290, classes: 95, validity: 728, discount: "35%"},
	{key: "125", nameZh: "125课时", nameEn: "125 Classes", price: 21000, classes: 125, validity: 728, discount: "40%"},
}

var kidsPackages = []packageSeed{
	trialPackage,
	{key: "10", nameZh: "10课时", nameEn: "10 Classes", price: 1860, classes: 10, validity: 365},
	{key: "30", nameZh: "30课时", nameEn: "30 Classes", price: 4760, classes: 30, validity: 365, popular: true},
	{key: "50", nameZh: "50课时", nameEn: "50 Classes", price: 6810, classes: 50, validity: 365},
	{key: "80", nameZh: "80课时", nameEn: "80 Classes", price: 9400, classes: 80, validity: 365},
	{key: "100", nameZh: "100课时", nameEn: "100 Classes", price: 10820, classes: 100, validity: 365},
}

var groupPackages = []packageSeed{
	trialPackage,
	{key: "package", nameZh: "标准课程包", nameEn: "Standard Package", price: 4200, classes: 40, validity: 365, popular: true},
}

type courseSeed struct {
	key      string
	titleZh  string
	titleEn  string
	color    string
	packages []packageSeed
}

var courseSeeds = []courseSeed{
	{key: "one-on-one", titleZh: "一对一中文课", titleEn: "One-on-One Chinese", color: "blue", packages: standardPackages},
	{key: "hsk", titleZh: "HSK备考课程", titleEn: "HSK Preparation", color: "red", packages: standardPackages},
	{key: "business", titleZh: "商务中文", titleEn: "Business Chinese", color: "green", packages: standardPackages},
	{key: "kids", titleZh: "少儿中文", titleEn: "Kids Chinese", color: "yellow", packages: kidsPackages},
	{key: "group", titleZh: "小班课", titleEn: "Group Classes", color: "purple", packages: groupPackages},
	{key: "culture", titleZh: "中国文化课", titleEn: "Chinese Culture", color: "orange", packages: []packageSeed{trialPackage}},
}

// DefaultCatalog returns the built-in courses with their packages, priced in CNY.
func DefaultCatalog() []models.Course {
	return lo.Map(courseSeeds, func(cs courseSeed, _ int) models.Course {
		return models.Course{
			CourseKey: cs.key,
			TitleZh:   cs.titleZh,
			TitleEn:   cs.titleEn,
			Color:     cs.color,
			IsActive:  true,
			Packages: lo.Map(cs.packages, func(ps packageSeed, i int) models.CoursePackage {
				return models.CoursePackage{
					CourseKey:    cs.key,
					PackageKey:   ps.key,
					NameZh:       ps.nameZh,
					NameEn:       ps.nameEn,
					Price:        decimal.NewFromInt(ps.price),
					Currency:     "CNY",
					ClassCount:   ps.classes,
					ValidityDays: ps.validity,
					Discount:     ps.discount,
					Popular:      ps.popular,
					SortOrder:    i,
					IsActive:     true,
				}
			}),
		}
	})
}

// FindPackage looks a package up in a catalog slice.
func FindPackage(catalog []models.Course, courseKey, packageKey string) (models.CoursePackage, bool) {
	course, ok := lo.Find(catalog, func(c models.Course) bool { return c.CourseKey == courseKey })
	if !ok {
		return models.CoursePackage{}, false
	}
	return lo.Find(course.Packages, func(p models.CoursePackage) bool { return p.PackageKey == packageKey })
}

// PackageLookup resolves the purchasable package for an order.
type PackageLookup interface {
	ActivePackage(ctx context.Context, courseKey, packageKey string) (*models.CoursePackage, error)
}

type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) ActiveCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("created_at asc").Find(&courses).Error
	return courses, database.Classify(err)
}

func (s *CatalogService) CourseWithPackages(ctx context.Context, courseKey string) (*models.Course, error) {
	var course models.Course
	err := s.db.WithContext(ctx).
		Preload("Packages", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("sort_order asc")
		}).
		Where("course_key = ? AND is_active = ?", courseKey, true).
		First(&course).Error
	if err != nil {
		return nil, database.Classify(err)
	}
	return &course, nil
}

func (s *CatalogService) ActivePackage(ctx context.Context, courseKey, packageKey string) (*models.CoursePackage, error) {
	var pkg models.CoursePackage
	err := s.db.WithContext(ctx).
		Where("course_key = ? AND package_key = ? AND is_active = ?", courseKey, packageKey, true).
		First(&pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return &pkg, nil
}
