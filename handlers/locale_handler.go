package handlers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

var supportedLocales = []string{"en", "zh"}

func GetLocale(c *fiber.Ctx) error {
	lang := filepath.Base(filepath.Clean(c.Params("lang")))
	if !lo.Contains(supportedLocales, lang) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Language file not found"})
	}

	filePath := filepath.Join("locales", fmt.Sprintf("%s.json", lang))
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Language file not found"})
	}
	return c.SendFile(filePath)
}
