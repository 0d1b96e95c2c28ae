package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ShiinaKin/random-img/internal/pkg/service"
	"github.com/ShiinaKin/random-img/internal/pkg/taskpool"
)

// HandleDeleteImage tombstones assets by exact id or by owner.
// DELETE /?id=<id> or DELETE /?uid=<owner>
func HandleDeleteImage(c *fiber.Ctx) error {
	id, err := int64Query(c, "id")
	if err != nil {
		return badRequest(c, "id must be an integer")
	}
	uid, err := int64Query(c, "uid")
	if err != nil {
		return badRequest(c, "uid must be an integer")
	}

	summary, err := imageService.DeleteImage(id, uid)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadRequest):
			return badRequest(c, "need id or uid")
		case errors.Is(err, service.ErrNotFound):
			return notFound(c)
		case errors.Is(err, taskpool.ErrSaturated):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":   "busy",
				"message": "delete queue full, retry later",
			})
		default:
			log.Errorf("[AdminController] delete failed: %v", err)
			return internalError(c)
		}
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "delete accepted",
		"matched": summary.Matched,
	})
}

// HandleWipeAll is the token-gated full wipe. DELETE /all?token=<token>.
// The confirmation token is never echoed in the response; it has to be
// read from the server logs.
func HandleWipeAll(c *fiber.Ctx) error {
	var token *string
	if raw := c.Query("token"); raw != "" {
		token = &raw
	}

	result, err := imageService.WipeAll(token)
	if err != nil {
		log.Errorf("[AdminController] wipe failed: %v", err)
		return internalError(c)
	}
	switch result.Outcome {
	case service.WipeAccepted:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "wipe accepted"})
	case service.WipeBusy:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "busy",
			"message": "a destructive operation is already running",
		})
	default:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "confirmation_required",
			"message": "confirmation token issued, check server logs",
		})
	}
}

// HandleInvalidateCache drops resolution cache entries by kind.
// DELETE /cache?kind=select|random
func HandleInvalidateCache(c *fiber.Ctx) error {
	var (
		dropped int
		err     error
	)
	switch kind := c.Query("kind"); kind {
	case "select":
		dropped, err = imageService.InvalidateSelectCache()
	case "random":
		dropped, err = imageService.InvalidateRandomCache()
	default:
		return badRequest(c, "kind must be select or random")
	}
	if err != nil {
		log.Errorf("[AdminController] cache invalidation failed: %v", err)
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "cache invalidated", "dropped": dropped})
}

// HandleStatus reports catalog and bucket sizes. GET /status
func HandleStatus(c *fiber.Ctx) error {
	status, err := imageService.Status()
	if err != nil {
		log.Errorf("[AdminController] status failed: %v", err)
		return internalError(c)
	}
	return c.JSON(fiber.Map{
		"images":  status.Images,
		"objects": status.Objects,
	})
}

// HandlePurgeDeleted hard-deletes tombstoned rows. POST /maintenance/purge
func HandlePurgeDeleted(c *fiber.Ctx) error {
	purged, err := imageService.PurgeDeleted()
	if err != nil {
		log.Errorf("[AdminController] purge failed: %v", err)
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "purge done", "purged": purged})
}
