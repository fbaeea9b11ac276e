package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/maloba12/umutulo/internal/model"
	"github.com/maloba12/umutulo/pkg/database"
	"github.com/maloba12/umutulo/pkg/logger"
	"github.com/maloba12/umutulo/prometheus"
)

// ErrMemberIDExhausted is returned when no free member id could be found
// within the retry budget.
var ErrMemberIDExhausted = errors.New("could not allocate a unique member id")

const memberIDAttempts = 5

// freeMemberID generates a member id and retries on collision. The id
// space is small (36^6) so uniqueness is checked before every write.
func freeMemberID(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < memberIDAttempts; attempt++ {
		id := model.NewMemberID()
		var count int64
		if err := tx.Unscoped().Model(&model.Member{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", ErrMemberIDExhausted
}

// provisionMember runs the full provisioning sequence for one member:
// member id, PIN, derived login email, credential, identity record and
// member record. All writes share one transaction, so a failure at any
// step leaves nothing behind.
func provisionMember(churchID, name, phone, email string, partner bool) (*model.Member, string, error) {
	pin := model.NewPIN()
	var member model.Member

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		memberID, err := freeMemberID(tx)
		if err != nil {
			return err
		}

		loginEmail := email
		if loginEmail == "" {
			loginEmail = model.SyntheticEmail(memberID, memberCfg.EmailDomain)
		}

		user, err := provider.CreateSecondaryIdentity(tx, loginEmail, pin, name, model.RoleMember, churchID, &memberID)
		if err != nil {
			return err
		}

		member = model.Member{
			ID:                memberID,
			ChurchID:          churchID,
			Name:              name,
			Phone:             phone,
			Email:             email,
			PartnershipStatus: partner,
			UserID:            &user.ID,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, "", err
	}
	return &member, pin, nil
}

// ListMembers returns the church's members sorted by name ascending,
// optionally filtered by a name/phone substring.
func ListMembers(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordMemberOperation("list")
	churchID := c.Get("church_id").(string)

	defer prometheus.TrackDBOperation("query")(time.Now())
	query := database.GetDB().Where("church_id = ?", churchID)

	if search := strings.TrimSpace(c.QueryParam("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR phone LIKE ?", pattern, "%"+search+"%")
	}

	var members []model.Member
	if result := query.Order("LOWER(name) ASC").Find(&members); result.Error != nil {
		log.Error("Failed to list members", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve members"})
	}

	log.Info("Members retrieved", zap.String("church_id", churchID), zap.Int("count", len(members)))
	return c.JSON(http.StatusOK, members)
}

// CreateMember adds a single member. With enable_login the member is
// fully provisioned and the response carries the generated PIN once;
// otherwise a directory-only record is stored.
func CreateMember(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordMemberOperation("create")
	churchID := c.Get("church_id").(string)

	var req struct {
		Name              string `json:"name"`
		Phone             string `json:"phone"`
		Email             string `json:"email"`
		PartnershipStatus bool   `json:"partnership_status"`
		EnableLogin       bool   `json:"enable_login"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse member creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	// Name and phone are rejected before any identity is created
	if req.Name == "" || req.Phone == "" {
		prometheus.RecordValidationError("member_fields")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and phone are required"})
	}

	if req.EnableLogin {
		prometheus.RecordMemberOperation("provision")
		member, pin, err := provisionMember(churchID, req.Name, req.Phone, req.Email, req.PartnershipStatus)
		if err != nil {
			status, reason := credentialStatus(err)
			if errors.Is(err, ErrMemberIDExhausted) {
				status, reason = http.StatusInternalServerError, "could not allocate a member id"
			}
			log.Error("Member provisioning failed", zap.String("name", req.Name), zap.Error(err))
			return c.JSON(status, echo.Map{"error": reason})
		}

		log.Info("Member provisioned",
			zap.String("church_id", churchID),
			zap.String("member_id", member.ID))

		return c.JSON(http.StatusCreated, echo.Map{
			"message": "Member created successfully",
			"member":  member,
			"pin":     pin,
		})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	var member model.Member
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		memberID, err := freeMemberID(tx)
		if err != nil {
			return err
		}
		member = model.Member{
			ID:                memberID,
			ChurchID:          churchID,
			Name:              req.Name,
			Phone:             req.Phone,
			Email:             req.Email,
			PartnershipStatus: req.PartnershipStatus,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		log.Error("Failed to create member", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "member creation failed"})
	}

	log.Info("Member created",
		zap.String("church_id", churchID),
		zap.String("member_id", member.ID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Member created successfully",
		"member":  member,
	})
}

// GetMember returns one member with their giving history.
func GetMember(c echo.Context) error {
	log := logger.FromContext(c)
	churchID := c.Get("church_id").(string)
	memberID := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var member model.Member
	if result := database.GetDB().Where("church_id = ?", churchID).First(&member, "id = ?", memberID); result.Error != nil {
		log.Error("Member not found",
			zap.String("church_id", churchID),
			zap.String("member_id", memberID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
	}

	var transactions []model.Transaction
	if result := database.GetDB().
		Where("church_id = ? AND member_id = ?", churchID, memberID).
		Order("date DESC").
		Find(&transactions); result.Error != nil {
		log.Error("Failed to load member transactions", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve giving history"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"member":       member,
		"loginEnabled": member.LoginEnabled(),
		"transactions": transactions,
	})
}

// UpdateMember applies a partial update of contact fields and
// partnership status.
func UpdateMember(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordMemberOperation("update")
	churchID := c.Get("church_id").(string)
	memberID := c.Param("id")

	var req struct {
		Name              *string `json:"name"`
		Phone             *string `json:"phone"`
		Email             *string `json:"email"`
		PartnershipStatus *bool   `json:"partnership_status"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse member update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var member model.Member
	if result := database.GetDB().Where("church_id = ?", churchID).First(&member, "id = ?", memberID); result.Error != nil {
		log.Error("Member not found",
			zap.String("church_id", churchID),
			zap.String("member_id", memberID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil && *req.Name != "" {
		updates["name"] = *req.Name
	}
	if req.Phone != nil && *req.Phone != "" {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.PartnershipStatus != nil {
		updates["partnership_status"] = *req.PartnershipStatus
	}

	if len(updates) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}

	if result := database.GetDB().Model(&member).Updates(updates); result.Error != nil {
		log.Error("Failed to update member", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "member update failed"})
	}

	log.Info("Member updated",
		zap.String("church_id", churchID),
		zap.String("member_id", memberID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Member updated successfully",
		"member":  member,
	})
}

// DeleteMember removes the member record and its linked identity record
// in one transaction.
func DeleteMember(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordMemberOperation("delete")
	churchID := c.Get("church_id").(string)
	memberID := c.Param("id")

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var member model.Member
	if result := database.GetDB().Where("church_id = ?", churchID).First(&member, "id = ?", memberID); result.Error != nil {
		log.Error("Member not found",
			zap.String("church_id", churchID),
			zap.String("member_id", memberID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
	}

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if result := tx.Delete(&member); result.Error != nil {
			return result.Error
		}
		if member.UserID != nil {
			return tx.Delete(&model.User{}, "id = ?", *member.UserID).Error
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to delete member", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "member deletion failed"})
	}

	log.Info("Member deleted",
		zap.String("church_id", churchID),
		zap.String("member_id", memberID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Member deleted successfully"})
}
