package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ShiinaKin/random-img/app/controllers"
	"github.com/ShiinaKin/random-img/internal/pkg/middleware"
)

// AdminRouter owns every mutating route; all of them sit behind basic auth.
type AdminRouter struct {
}

func (AdminRouter) InstallRouter(app *fiber.App) {
	auth := middleware.RequireBasicAuth()

	app.Post("/", auth, controllers.HandleUpload)
	app.Put("/remote-upload", auth, controllers.HandleRemoteUpload)
	app.Delete("/", auth, controllers.HandleDeleteImage)
	app.Delete("/all", auth, controllers.HandleWipeAll)
	app.Delete("/cache", auth, controllers.HandleInvalidateCache)
	app.Get("/status", auth, controllers.HandleStatus)
	app.Post("/maintenance/purge", auth, controllers.HandlePurgeDeleted)
}

func NewAdminRouter() *AdminRouter {
	return &AdminRouter{}
}
