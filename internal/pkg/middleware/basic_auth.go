package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"golang.org/x/crypto/bcrypt"

	"github.com/ShiinaKin/random-img/internal/pkg/env"
)

// RequireBasicAuth guards the mutating routes. Credentials come from the
// environment: AUTH_USERNAME and AUTH_PASSWORD_BCRYPT (a bcrypt digest, so
// the secret never sits in plain text in the process environment).
func RequireBasicAuth() fiber.Handler {
	username := env.GetEnv("AUTH_USERNAME", "admin")
	passwordDigest := env.GetEnv("AUTH_PASSWORD_BCRYPT", "")

	return basicauth.New(basicauth.Config{
		Realm: "random-img",
		Authorizer: func(user, pass string) bool {
			if user != username || passwordDigest == "" {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(passwordDigest), []byte(pass)) == nil
		},
	})
}
