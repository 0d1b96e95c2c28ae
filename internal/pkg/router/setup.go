package router

import (
	"github.com/gofiber/fiber/v2"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers the public resolution routes and the
// basic-auth-guarded admin routes.
func InstallRouter(app *fiber.App) {
	setup(app, NewPublicRouter(), NewAdminRouter())
}

func setup(app *fiber.App, routers ...Router) {
	for _, r := range routers {
		r.InstallRouter(app)
	}
}
