package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ShiinaKin/random-img/app/controllers"
)

type PublicRouter struct {
}

func (PublicRouter) InstallRouter(app *fiber.App) {
	app.Get("/", controllers.HandleSelectImage)
	app.Get("/random", controllers.HandleRandomImage)
}

func NewPublicRouter() *PublicRouter {
	return &PublicRouter{}
}
