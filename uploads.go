package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/utils"
	"github.com/sirupsen/logrus"
)

const maxUploadSizeBytes int64 = 5 * 1024 * 1024

var receiptMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

type uploadReceiptResponse struct {
	ObjectKey          string `json:"objectKey"`
	ImageURL           string `json:"imageUrl"`
	ThumbnailObjectKey string `json:"thumbnailObjectKey,omitempty"`
	ThumbnailURL       string `json:"thumbnailUrl,omitempty"`
}

// uploadReceiptHandler accepts one multipart receipt image, stores it under a
// per-employee key and generates a small thumbnail for list views. The
// returned objectKey is what the client submits as image_ref on the expense.
func uploadReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		employeeId, err := strconv.Atoi(strings.TrimSpace(c.PostForm("employee_id")))
		if err != nil || employeeId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "employee_id is required"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		if int64(len(data)) > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		mimeType := http.DetectContentType(data)
		if !receiptMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}

		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if ext == "" {
			ext = extensionFromMimeType(mimeType)
		}

		objectKey := path.Join("receipts", strconv.Itoa(employeeId),
			time.Now().UTC().Format("2006-01"), uuid.New().String()+ext)

		ctx := c.Request.Context()
		if err := utils.UploadBytesToGCS(ctx, objectKey, data, mimeType); err != nil {
			config.LogError(logger, "uploads.go", "uploadReceiptHandler", "receipt upload failed", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store receipt"})
			return
		}

		resp := uploadReceiptResponse{
			ObjectKey: objectKey,
			ImageURL:  utils.BuildObjectAccessURL(objectKey),
		}

		if config.ReceiptThumbnailsEnabled() {
			thumbnailKey, err := generateReceiptThumbnail(ctx, objectKey, data)
			if err != nil {
				// Thumbnail is cosmetic; the receipt itself is already stored.
				config.LogError(logger, "uploads.go", "uploadReceiptHandler", "thumbnail generation failed", objectKey, err)
			} else {
				resp.ThumbnailObjectKey = thumbnailKey
				resp.ThumbnailURL = utils.BuildObjectAccessURL(thumbnailKey)
			}
		}

		logger.WithFields(logrus.Fields{
			"employee_id": employeeId,
			"mime_type":   mimeType,
			"size":        len(data),
			"object_key":  objectKey,
		}).Info("[upload.receipt]")

		c.JSON(http.StatusOK, gin.H{"data": resp})
	}
}

// deleteReceiptHandler removes a stored receipt object (and its thumbnail if
// present). Missing objects are treated as already deleted.
func deleteReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req struct {
			ObjectKey string `json:"objectKey" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		objectKey := utils.ExtractObjectKeyFromURL(req.ObjectKey)
		if objectKey == "" || !strings.HasPrefix(objectKey, "receipts/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid object key"})
			return
		}

		ctx := c.Request.Context()
		if err := utils.DeleteObjectFromGCS(ctx, objectKey); err != nil {
			config.LogError(logger, "uploads.go", "deleteReceiptHandler", "receipt delete failed", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete receipt"})
			return
		}
		if err := utils.DeleteObjectFromGCS(ctx, thumbnailObjectKey(objectKey)); err != nil {
			config.LogError(logger, "uploads.go", "deleteReceiptHandler", "thumbnail delete failed", objectKey, err)
		}

		c.JSON(http.StatusOK, gin.H{"deleted": objectKey})
	}
}

func generateReceiptThumbnail(ctx context.Context, objectKey string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return "", err
	}

	thumbnailKey := thumbnailObjectKey(objectKey)
	if err := utils.UploadBytesToGCS(ctx, thumbnailKey, buf.Bytes(), "image/jpeg"); err != nil {
		return "", err
	}
	return thumbnailKey, nil
}

func thumbnailObjectKey(objectKey string) string {
	dir := path.Dir(objectKey)
	base := strings.TrimSuffix(path.Base(objectKey), path.Ext(objectKey))
	return path.Join(dir, "thumbs", base+".jpg")
}

func extensionFromMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}

// verifyReceiptRef confirms that a submitted image ref points at a stored
// object before the expense save proceeds.
func verifyReceiptRef(ctx context.Context, imageRef string) error {
	objectKey := utils.ExtractObjectKeyFromURL(imageRef)
	if objectKey == "" {
		return errors.New("invalid image ref")
	}
	ok, err := utils.ObjectExistsInGCS(ctx, objectKey)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("receipt object %s does not exist", objectKey)
	}
	return nil
}
