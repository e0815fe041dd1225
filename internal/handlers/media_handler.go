package handlers

import (
	"io"

	"github.com/fathima-sithara/moms/internal/services"
	"github.com/gofiber/fiber/v2"
)

type MediaHandler struct {
	media    *services.MediaService
	maxBytes int64
}

func NewMediaHandler(media *services.MediaService, maxBytes int64) *MediaHandler {
	return &MediaHandler{media: media, maxBytes: maxBytes}
}

// POST /media/images (multipart/form-data: file, kind, houseId)
func (h *MediaHandler) UploadImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file missing")
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "image is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot open file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot read file")
	}

	kind := services.MediaKind(c.FormValue("kind", string(services.MediaPayment)))
	out, err := h.media.UploadImage(c.UserContext(), sess(c), services.Upload{
		Kind:        kind,
		HouseID:     c.FormValue("houseId"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	})
	if err != nil {
		return err
	}
	return created(c, out)
}
