package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ShiinaKin/random-img/internal/pkg/service"
)

var (
	imageService  *service.ImageService
	uploadService *service.UploadService
)

// Initialize hands the wired services to the handler package. Must run
// before InstallRouter.
func Initialize(images *service.ImageService, uploads *service.UploadService) {
	imageService = images
	uploadService = uploads
}

// HandleSelectImage resolves an exact asset id to its variant URL and
// redirects. GET /?id=<id>&th=<width>&quality=<q>
func HandleSelectImage(c *fiber.Ctx) error {
	id, err := int64Query(c, "id")
	if err != nil {
		return badRequest(c, "id must be an integer")
	}
	if id == nil {
		return badRequest(c, "id missing")
	}
	width, err := intQuery(c, "th")
	if err != nil {
		return badRequest(c, "th must be an integer")
	}
	quality, err := intQuery(c, "quality")
	if err != nil {
		return badRequest(c, "quality must be an integer")
	}

	url, err := imageService.SelectImage(service.SelectQuery{ID: *id, Width: width, Quality: quality})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return notFound(c)
		}
		log.Errorf("[ImageController] select failed: %v", err)
		return internalError(c)
	}
	return c.Redirect(url, fiber.StatusFound)
}

// HandleRandomImage resolves a random asset, optionally pinned to the
// referring page. GET /random?postId=<id>&uid=<owner>&th=<width>&quality=<q>
func HandleRandomImage(c *fiber.Ctx) error {
	uid, err := int64Query(c, "uid")
	if err != nil {
		return badRequest(c, "uid must be an integer")
	}
	width, err := intQuery(c, "th")
	if err != nil {
		return badRequest(c, "th must be an integer")
	}
	quality, err := intQuery(c, "quality")
	if err != nil {
		return badRequest(c, "quality must be an integer")
	}

	query := service.RandomQuery{
		Origin:  originFromReferer(c),
		PostID:  c.Query("postId"),
		UID:     uid,
		Width:   width,
		Quality: quality,
	}
	url, err := imageService.RandomSelectImage(query)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return notFound(c)
		}
		log.Errorf("[ImageController] random select failed: %v", err)
		return internalError(c)
	}
	return c.Redirect(url, fiber.StatusFound)
}
