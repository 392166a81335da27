package controllers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tlcshift/ShiftMarket/internal/pkg/middleware"
	"github.com/tlcshift/ShiftMarket/internal/pkg/storage"
)

// ImageController proxies image uploads and deletes to the storage provider
// so its credentials never reach the frontend.
type ImageController struct {
	store storage.ImageStore
}

func NewImageController(store storage.ImageStore) *ImageController {
	return &ImageController{store: store}
}

// HandleUpload accepts up to 8 multipart files under the "files" field and
// pushes them to remote storage.
func (ctl *ImageController) HandleUpload(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Not authenticated")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Expected multipart form data")
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "No files provided")
	}
	if len(fileHeaders) > storage.MaxUploadFiles {
		return jsonError(c, fiber.StatusBadRequest, "too_many_files", "At most 8 files per upload")
	}

	var listingID uint
	if raw := c.FormValue("listing_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid listing_id")
		}
		listingID = uint(parsed)
	}

	files := make([]storage.UploadInput, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		f, err := header.Open()
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "Could not read uploaded file")
		}
		defer f.Close()
		files = append(files, storage.UploadInput{
			Reader:      f,
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			SizeBytes:   header.Size,
		})
	}

	uploaded, err := ctl.store.UploadImages(c.Context(), userID, listingID, files)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedMedia) {
			return jsonError(c, fiber.StatusBadRequest, "unsupported_media", "Only image files are accepted")
		}
		if errors.Is(err, storage.ErrTooManyFiles) {
			return jsonError(c, fiber.StatusBadRequest, "too_many_files", "At most 8 files per upload")
		}
		log.Printf("images: upload failed for user %d: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Image upload failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"images": uploaded})
}

type deleteImagesRequest struct {
	PublicIDs []string `json:"public_ids"`
}

// HandleDelete removes up to 50 assets by public id and reports the per-id
// outcome.
func (ctl *ImageController) HandleDelete(c *fiber.Ctx) error {
	if _, ok := middleware.UserID(c); !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Not authenticated")
	}

	var req deleteImagesRequest
	if err := c.BodyParser(&req); err != nil || len(req.PublicIDs) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "public_ids is required")
	}

	results, err := ctl.store.DeleteImages(c.Context(), req.PublicIDs)
	if err != nil {
		if errors.Is(err, storage.ErrTooManyDeletes) {
			return jsonError(c, fiber.StatusBadRequest, "too_many_ids", "At most 50 ids per delete")
		}
		log.Printf("images: delete failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Image delete failed")
	}
	return c.JSON(fiber.Map{"results": results})
}
