package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/maloba12/umutulo/internal/identity"
	"github.com/maloba12/umutulo/internal/model"
	"github.com/maloba12/umutulo/pkg/database"
	"github.com/maloba12/umutulo/pkg/logger"
	"github.com/maloba12/umutulo/prometheus"
)

// GetProfile returns the merged identity/church view: the user's fields
// plus the church fields, with the church name surfaced as churchName.
// The chain resolves per request: claims first, then the church row if
// the identity is bound to one.
func GetProfile(c echo.Context) error {
	log := logger.FromContext(c)
	userID := c.Get("user_id").(string)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := database.GetDB().First(&user, "id = ?", userID); result.Error != nil {
		log.Error("User not found", zap.String("user_id", userID))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	profile := echo.Map{
		"uid":       user.ID,
		"email":     user.Email,
		"name":      user.Name,
		"role":      user.Role,
		"church_id": user.ChurchID,
		"member_id": user.MemberID,
	}

	if user.ChurchID != "" {
		church, err := churchByID(user.ChurchID)
		if err == nil {
			profile["churchName"] = church.Name
			profile["church"] = church
		} else {
			log.Warn("Church lookup failed for profile",
				zap.String("church_id", user.ChurchID),
				zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile applies a partial update of the user's display fields.
func UpdateProfile(c echo.Context) error {
	log := logger.FromContext(c)
	userID := c.Get("user_id").(string)

	var req struct {
		Name *string `json:"name"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse profile update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == nil || *req.Name == "" {
		prometheus.RecordValidationError("name")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&model.User{}).Where("id = ?", userID).Update("name", *req.Name); result.Error != nil {
		log.Error("Failed to update profile", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "profile update failed"})
	}

	log.Info("Profile updated", zap.String("user_id", userID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully"})
}

// ChangePassword verifies the current password before replacing it.
func ChangePassword(c echo.Context) error {
	log := logger.FromContext(c)
	userID := c.Get("user_id").(string)

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse password change request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := provider.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredential):
			prometheus.RecordAuthError("invalid_credentials")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		case errors.Is(err, identity.ErrWeakCredential):
			prometheus.RecordAuthError("weak_password")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Password is too weak. Please use at least 6 characters."})
		default:
			log.Error("Failed to change password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password change failed"})
		}
	}

	log.Info("Password changed", zap.String("user_id", userID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Password changed successfully"})
}
