package controllers

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/PetsSanta/internal/pkg/artifact"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/upload"
)

// UploadController stores source photos in the artifact store.
type UploadController struct {
	store artifact.Store
	now   func() time.Time
}

// NewUploadController creates a new upload controller
func NewUploadController(store artifact.Store) *UploadController {
	return &UploadController{store: store, now: time.Now}
}

// HandleUpload accepts a multipart "file" field and returns { url }.
func (uc *UploadController) HandleUpload(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, upload.ErrEmptyFile.Error())
	}
	if fh.Size > upload.MaxFileSize {
		return writeServiceError(c, upload.ErrFileTooLarge, "Upload failed")
	}

	f, err := fh.Open()
	if err != nil {
		return writeServiceError(c, err, "Upload failed")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, upload.MaxFileSize+1))
	if err != nil {
		return writeServiceError(c, err, "Upload failed")
	}

	info, err := upload.Inspect(fh.Filename, data)
	if err != nil {
		return writeServiceError(c, err, "Upload failed")
	}

	key := artifact.OriginalImageKey(userID, uc.now().UnixMilli(), uuid.NewString(), info.Ext)
	url, err := uc.store.Put(c.UserContext(), key, data, info.MimeType)
	if err != nil {
		fiberlog.Errorf("[Upload] Storing %s failed: %v", key, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to upload image")
	}

	fiberlog.Infof("[Upload] User %d uploaded %s (%dx%d)", userID, key, info.Width, info.Height)
	return c.JSON(fiber.Map{"url": url})
}
