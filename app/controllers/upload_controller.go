package controllers

import (
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ShiinaKin/random-img/internal/pkg/taskpool"
	"github.com/ShiinaKin/random-img/internal/pkg/upload"
)

// HandleUpload ingests a zip archive of images. POST / with the archive as
// multipart field "file" or as the raw request body.
func HandleUpload(c *fiber.Ctx) error {
	archive, err := archiveFromRequest(c)
	if err != nil {
		return badRequest(c, "archive missing")
	}

	if err := uploadService.HandleUpload(archive); err != nil {
		switch {
		case errors.Is(err, upload.ErrBadArchive):
			return badRequest(c, err.Error())
		case errors.Is(err, taskpool.ErrSaturated):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":   "busy",
				"message": "upload queue full, retry later",
			})
		default:
			log.Errorf("[UploadController] upload failed: %v", err)
			return internalError(c)
		}
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "upload accepted"})
}

// HandleRemoteUpload drains staged archives from the staging bucket.
// PUT /remote-upload?limit=<n>
func HandleRemoteUpload(c *fiber.Ctx) error {
	limit := 1
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = v
	}

	if err := uploadService.HandleRemoteUpload(limit); err != nil {
		if errors.Is(err, taskpool.ErrSaturated) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":   "busy",
				"message": "upload queue full, retry later",
			})
		}
		log.Errorf("[UploadController] remote upload failed: %v", err)
		return internalError(c)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "remote upload accepted"})
}

func archiveFromRequest(c *fiber.Ctx) ([]byte, error) {
	if fileHeader, err := c.FormFile("file"); err == nil {
		f, err := fileHeader.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	body := c.Body()
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	return body, nil
}
