package handlers

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/sirupsen/logrus"
)

var errInvalidAdminToken = errors.New("invalid admin token")

// adminAuth requires "Authorization: Bearer <token>" on admin routes.
// An empty token leaves the routes open.
func adminAuth(token string) fiber.Handler {
	return keyauth.New(keyauth.Config{
		Next: func(c *fiber.Ctx) bool {
			return token == ""
		},
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1 {
				return true, nil
			}
			return false, errInvalidAdminToken
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if err == nil {
				err = errInvalidAdminToken
			}
			logrus.WithFields(logrus.Fields{
				"component": "admin_auth",
				"path":      c.Path(),
				"ip":        c.IP(),
			}).Warn("Rejected admin request")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})
}
