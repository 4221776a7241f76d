package middleware

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wavemandarin/mandarin_school/models"
	"github.com/wavemandarin/mandarin_school/services"
)

const (
	localsToken   = "user"
	localsProfile = "profile"
	localsAdmin   = "admin"

	PrincipalHeader = "X-Principal-Password"
)

// studentJWT verifies Supabase access tokens (HS256, signed with the project JWT secret)
// and hands verified requests to success, or to the next handler when success is nil.
func studentJWT(jwtSecret string, success fiber.Handler) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     []byte(jwtSecret),
		SigningMethod:  "HS256",
		ContextKey:     localsToken,
		ErrorHandler:   jwtError,
		SuccessHandler: success,
	})
}

// StudentRequired verifies the token and then loads the caller's profile.
func StudentRequired(jwtSecret string, profiles *services.ProfileService) fiber.Handler {
	return studentJWT(jwtSecret, ResolveProfile(profiles))
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// IdentityFromClaims reads the subject and sign-up metadata from a Supabase token.
func IdentityFromClaims(claims jwt.MapClaims) (services.Identity, error) {
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return services.Identity{}, services.ErrInvalidToken
	}
	id := services.Identity{UserID: userID}
	id.Email, _ = claims["email"].(string)
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		id.Name, _ = meta["name"].(string)
		if id.Name == "" {
			id.Name, _ = meta["full_name"].(string)
		}
		id.Phone, _ = meta["phone"].(string)
	}
	if id.Phone == "" {
		id.Phone, _ = claims["phone"].(string)
	}
	return id, nil
}

func CurrentIdentity(c *fiber.Ctx) (services.Identity, error) {
	token, ok := c.Locals(localsToken).(*jwt.Token)
	if !ok {
		return services.Identity{}, services.ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return services.Identity{}, services.ErrInvalidToken
	}
	return IdentityFromClaims(claims)
}

// ResolveProfile loads (or lazily creates) the caller's profile. Runs as the success handler of StudentRequired.
func ResolveProfile(profiles *services.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := CurrentIdentity(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
		}
		profile, err := profiles.Resolve(c.UserContext(), id)
		if err != nil {
			logrus.WithError(err).WithField("user_id", id.UserID).Error("Profile resolution failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":    "Failed to load user profile",
				"error_zh": "无法获取用户资料",
			})
		}
		c.Locals(localsProfile, profile)
		return c.Next()
	}
}

func CurrentProfile(c *fiber.Ctx) *models.UserProfile {
	p, _ := c.Locals(localsProfile).(*models.UserProfile)
	return p
}

func bearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func adminFromRequest(c *fiber.Ctx, auth *services.AdminAuth) (*models.AdminAccount, error) {
	token := bearerToken(c)
	if token == "" {
		return nil, services.ErrInvalidToken
	}
	return auth.VerifyToken(c.UserContext(), token)
}

func AdminRequired(auth *services.AdminAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := adminFromRequest(c, auth)
		if err != nil {
			return adminAuthError(c, err)
		}
		c.Locals(localsAdmin, admin)
		return c.Next()
	}
}

// AdminOrPrincipal admits a valid admin token or the principal password, given either
// in the X-Principal-Password header or as "principalPassword" in a JSON body.
func AdminOrPrincipal(auth *services.AdminAuth, principalPassword string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if services.CheckPrincipalPassword(principalPassword, c.Get(PrincipalHeader)) {
			return c.Next()
		}
		if body := c.Body(); len(body) > 0 {
			var req struct {
				PrincipalPassword string `json:"principalPassword"`
			}
			if json.Unmarshal(body, &req) == nil && services.CheckPrincipalPassword(principalPassword, req.PrincipalPassword) {
				return c.Next()
			}
		}

		admin, err := adminFromRequest(c, auth)
		if err != nil {
			return adminAuthError(c, err)
		}
		c.Locals(localsAdmin, admin)
		return c.Next()
	}
}

func CurrentAdmin(c *fiber.Ctx) *models.AdminAccount {
	a, _ := c.Locals(localsAdmin).(*models.AdminAccount)
	return a
}

func adminAuthError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrTokenExpired):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Session expired, please log in again"})
	case errors.Is(err, services.ErrAccountInactive):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Account is deactivated"})
	case errors.Is(err, services.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	logrus.WithError(err).Error("Admin token verification failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to verify admin session"})
}
