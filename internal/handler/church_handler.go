package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/maloba12/umutulo/internal/model"
	"github.com/maloba12/umutulo/internal/storage"
	"github.com/maloba12/umutulo/pkg/database"
	"github.com/maloba12/umutulo/pkg/logger"
	"github.com/maloba12/umutulo/prometheus"
)

// ListChurches returns the public id/name list used by member signup,
// sorted by name ascending.
func ListChurches(c echo.Context) error {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var churches []model.Church
	if result := database.GetDB().Select("id", "name").Order("LOWER(name) ASC").Find(&churches); result.Error != nil {
		log.Error("Failed to list churches", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve churches"})
	}

	type churchOption struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	options := make([]churchOption, 0, len(churches))
	for _, church := range churches {
		options = append(options, churchOption{ID: church.ID, Name: church.Name})
	}

	return c.JSON(http.StatusOK, options)
}

// GetChurch returns the caller's own church record.
func GetChurch(c echo.Context) error {
	log := logger.FromContext(c)
	churchID := c.Get("church_id").(string)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var church model.Church
	if result := database.GetDB().First(&church, "id = ?", churchID); result.Error != nil {
		log.Error("Church not found", zap.String("church_id", churchID), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "church not found"})
	}

	return c.JSON(http.StatusOK, church)
}

// UpdateChurch applies a partial update of name and SMS settings.
// Last write wins; there is no optimistic concurrency check.
func UpdateChurch(c echo.Context) error {
	log := logger.FromContext(c)
	churchID := c.Get("church_id").(string)

	var req struct {
		Name        *string `json:"name"`
		SMSProvider *string `json:"sms_provider"`
		SMSAPIKey   *string `json:"sms_api_key"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse church update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			prometheus.RecordValidationError("church_name")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
		}
		updates["name"] = *req.Name
	}
	if req.SMSProvider != nil {
		updates["sms_provider"] = *req.SMSProvider
	}
	if req.SMSAPIKey != nil {
		updates["sms_api_key"] = *req.SMSAPIKey
	}

	if len(updates) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var church model.Church
	if result := database.GetDB().First(&church, "id = ?", churchID); result.Error != nil {
		log.Error("Church not found", zap.String("church_id", churchID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "church not found"})
	}

	if result := database.GetDB().Model(&church).Updates(updates); result.Error != nil {
		log.Error("Failed to update church", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "church update failed"})
	}

	log.Info("Church updated", zap.String("church_id", churchID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Church updated successfully",
		"church":  church,
	})
}

// UploadLogo stores the church's logo image and records its serving URL.
func UploadLogo(c echo.Context) error {
	log := logger.FromContext(c)
	churchID := c.Get("church_id").(string)

	file, err := c.FormFile("logo")
	if err != nil {
		log.Error("Missing logo file", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "logo file is required"})
	}

	if file.Size > memberCfg.MaxLogoBytes {
		log.Warn("Logo exceeds size limit",
			zap.Int64("size", file.Size),
			zap.Int64("limit", memberCfg.MaxLogoBytes))
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "logo file exceeds the size limit"})
	}

	src, err := file.Open()
	if err != nil {
		log.Error("Failed to open uploaded logo", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, memberCfg.MaxLogoBytes))
	if err != nil {
		log.Error("Failed to read uploaded logo", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := blobs.Put(churchID, contentType, data); err != nil {
		log.Error("Failed to store logo", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload rejected"})
	}

	logoURL := "/logos/" + churchID
	if result := database.GetDB().Model(&model.Church{}).Where("id = ?", churchID).Update("logo_url", logoURL); result.Error != nil {
		log.Error("Failed to record logo URL", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}

	log.Info("Logo uploaded", zap.String("church_id", churchID), zap.Int("bytes", len(data)))
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Logo uploaded successfully",
		"logo_url": logoURL,
	})
}

// GetLogo serves a church's logo image.
func GetLogo(c echo.Context) error {
	log := logger.FromContext(c)
	churchID := c.Param("churchID")

	defer prometheus.TrackDBOperation("query")(time.Now())
	blob, err := blobs.Get(churchID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "logo not found"})
		}
		log.Error("Failed to load logo", zap.String("church_id", churchID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load logo"})
	}

	return c.Blob(http.StatusOK, blob.ContentType, blob.Data)
}

// churchByID loads a church row, distinguishing not-found from other errors.
func churchByID(id string) (*model.Church, error) {
	var church model.Church
	if result := database.GetDB().First(&church, "id = ?", id); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &church, nil
}
