package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/maloba12/umutulo/internal/identity"
	"github.com/maloba12/umutulo/internal/model"
	"github.com/maloba12/umutulo/pkg/database"
	"github.com/maloba12/umutulo/pkg/jwtutil"
	"github.com/maloba12/umutulo/pkg/logger"
	"github.com/maloba12/umutulo/prometheus"
)

// credentialStatus maps identity errors to an HTTP status and the
// user-facing reason shown at the form boundary.
func credentialStatus(err error) (int, string) {
	switch {
	case errors.Is(err, identity.ErrEmailInUse):
		return http.StatusConflict, "This email is already registered. Please login or use a different email."
	case errors.Is(err, identity.ErrWeakCredential):
		return http.StatusBadRequest, "Password is too weak. Please use at least 6 characters."
	case errors.Is(err, identity.ErrInvalidEmail):
		return http.StatusBadRequest, "Invalid email address."
	case errors.Is(err, identity.ErrInvalidCredential):
		return http.StatusUnauthorized, "invalid credentials"
	default:
		return http.StatusInternalServerError, "registration failed"
	}
}

// Register handles church registration: the admin credential, the church
// record and the admin identity record are created in one transaction.
func Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterChurchCounter.Inc()

	// Parse request
	var req struct {
		ChurchName string `json:"church_name"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse church registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.ChurchName == "" || req.Email == "" || req.Password == "" {
		log.Error("Invalid registration data",
			zap.String("church_name", req.ChurchName),
			zap.String("email", req.Email),
			zap.Bool("password_provided", req.Password != ""))
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "church name, email and password are required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	var church model.Church
	var admin *model.User
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		church = model.Church{
			ID:   model.NewChurchID(),
			Name: req.ChurchName,
		}
		if result := tx.Create(&church); result.Error != nil {
			return result.Error
		}

		var err error
		admin, err = provider.CreateSecondaryIdentity(tx, req.Email, req.Password, "Admin", model.RoleChurchAdmin, church.ID, nil)
		return err
	})
	if err != nil {
		status, reason := credentialStatus(err)
		log.Error("Church registration failed", zap.String("email", req.Email), zap.Error(err))
		prometheus.RecordAuthError("church_registration_failed")
		return c.JSON(status, echo.Map{"error": reason})
	}

	prometheus.RegisteredChurchesGauge.Inc()

	token, err := jwtutil.GenerateToken(admin.Email, admin.ID, church.ID, church.Name, admin.Role, "")
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.IncreaseActiveTokens()

	log.Info("Church registered",
		zap.String("church_id", church.ID),
		zap.String("church_name", church.Name),
		zap.String("admin_email", admin.Email))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Church registered successfully",
		"token":   token,
		"church":  church,
		"user": map[string]interface{}{
			"uid":   admin.ID,
			"email": admin.Email,
			"role":  admin.Role,
		},
	})
}

// RegisterMember handles self-service member signup against a selected church.
func RegisterMember(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterMemberCounter.Inc()

	var req struct {
		ChurchID string `json:"church_id"`
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse member registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.ChurchID == "" {
		prometheus.RecordValidationError("church_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Please select your church."})
	}
	if req.Name == "" || req.Phone == "" || req.Email == "" || req.Password == "" {
		prometheus.RecordValidationError("member_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, phone, email and password are required"})
	}

	// The selected church must exist before any identity is created
	var church model.Church
	if result := database.GetDB().First(&church, "id = ?", req.ChurchID); result.Error != nil {
		log.Error("Church not found", zap.String("church_id", req.ChurchID))
		prometheus.RecordAuthError("church_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "church not found"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	var user *model.User
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = provider.CreateSecondaryIdentity(tx, req.Email, req.Password, req.Name, model.RoleMember, church.ID, nil)
		if err != nil {
			return err
		}

		// Self-registered members reuse the identity id as their member id.
		member := model.Member{
			ID:       user.ID,
			ChurchID: church.ID,
			Name:     req.Name,
			Phone:    req.Phone,
			Email:    user.Email,
			UserID:   &user.ID,
		}
		if result := tx.Create(&member); result.Error != nil {
			return result.Error
		}
		return tx.Model(user).Update("member_id", member.ID).Error
	})
	if err != nil {
		status, reason := credentialStatus(err)
		log.Error("Member registration failed", zap.String("email", req.Email), zap.Error(err))
		prometheus.RecordAuthError("member_registration_failed")
		return c.JSON(status, echo.Map{"error": reason})
	}

	token, err := jwtutil.GenerateToken(user.Email, user.ID, church.ID, church.Name, user.Role, user.ID)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.IncreaseActiveTokens()

	log.Info("Member registered",
		zap.String("church_id", church.ID),
		zap.String("email", user.Email))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Member registered successfully",
		"token":   token,
		"user": map[string]interface{}{
			"uid":       user.ID,
			"email":     user.Email,
			"role":      user.Role,
			"church_id": church.ID,
		},
	})
}

// Login authenticates a credential and issues a session token.
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, err := provider.SignIn(req.Email, req.Password)
	if err != nil {
		log.Error("Login failed", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_credentials")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	// Resolve the church name for the token and response
	var churchName string
	if user.ChurchID != "" {
		var church model.Church
		if result := database.GetDB().Select("name").First(&church, "id = ?", user.ChurchID); result.Error == nil {
			churchName = church.Name
		}
	}

	memberID := ""
	if user.MemberID != nil {
		memberID = *user.MemberID
	}

	token, err := jwtutil.GenerateToken(user.Email, user.ID, user.ChurchID, churchName, user.Role, memberID)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.IncreaseActiveTokens()

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.String("church_id", user.ChurchID),
		zap.String("role", user.Role))

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user": map[string]interface{}{
			"uid":         user.ID,
			"email":       user.Email,
			"name":        user.Name,
			"role":        user.Role,
			"church_id":   user.ChurchID,
			"church_name": churchName,
			"member_id":   user.MemberID,
		},
	})
}

// Logout terminates the current session. Tokens are stateless, so this
// only adjusts the active-token gauge; the client discards the token.
func Logout(c echo.Context) error {
	prometheus.DecreaseActiveTokens()
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// MetricsHandler serves Prometheus metrics.
func MetricsHandler(c echo.Context) error {
	handler := prometheus.GetPrometheusHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
