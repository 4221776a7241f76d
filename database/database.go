package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	config "github.com/wavemandarin/mandarin_school/configs"
	"github.com/wavemandarin/mandarin_school/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB
var RedisClient *redis.Client

func ConnectDB(cfg *config.AppConfig) {
	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.AppEnv == "development" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		DB, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.DatabaseURL,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			SkipDefaultTransaction:                   true,
			DisableForeignKeyConstraintWhenMigrating: true,
			TranslateError:                           true,
			Logger:                                   gormLogger,
		})
		if err == nil {
			break
		}
		logrus.WithError(err).Warnf("Database connect attempt %d failed", attempt)
		time.Sleep(time.Duration(attempt*attempt) * 300 * time.Millisecond)
	}
	if err != nil {
		logrus.Fatalf("🔥 Failed to connect to database: %v", err)
	}

	logrus.Info("✅ Database connected successfully")
}

func Migrate() {
	err := DB.AutoMigrate(
		&models.UserProfile{},
		&models.AdminAccount{},
		&models.Course{},
		&models.CoursePackage{},
		&models.StudentOrder{},
		&models.StudentClassBalance{},
		&models.ClassSchedule{},
		&models.BookingInquiry{},
		&models.Message{},
		&models.UserCourseEnrollment{},
	)
	if err != nil {
		logrus.Fatalf("🔥 Failed to migrate database: %v", err)
	}
	logrus.Info("✅ Database migration successful")
}

// ConnectRedis leaves RedisClient nil when REDIS_URL is unset or unreachable;
// callers must treat the cache as optional.
func ConnectRedis(cfg *config.AppConfig) {
	if cfg.RedisURL == "" {
		logrus.Info("REDIS_URL not set, profile cache disabled")
		return
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Warn("Invalid REDIS_URL, profile cache disabled")
		return
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("Redis connection failed, continuing without cache")
		_ = client.Close()
		return
	}

	RedisClient = client
	logrus.Info("✅ Redis connected successfully")
}

func GetRedisClient() *redis.Client {
	return RedisClient
}

// SeedCatalog inserts the course catalog when the courses table is empty.
func SeedCatalog(courses []models.Course) {
	var count int64
	if err := DB.Model(&models.Course{}).Count(&count).Error; err != nil {
		logrus.Fatalf("🔥 Failed to check course catalog: %v", err)
	}
	if count > 0 {
		logrus.Debug("Course catalog already seeded")
		return
	}

	err := DB.Transaction(func(tx *gorm.DB) error {
		for i := range courses {
			if err := tx.Create(&courses[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logrus.Fatalf("🔥 Failed to seed course catalog: %v", err)
	}
	logrus.WithField("courses", len(courses)).Info("✅ Course catalog seeded")
}
