package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/maloba12/umutulo/internal/model"
	"github.com/maloba12/umutulo/pkg/database"
	"github.com/maloba12/umutulo/pkg/jwtutil"
	"github.com/maloba12/umutulo/pkg/logger"
	"github.com/maloba12/umutulo/prometheus"
)

// RecordTransaction stores one contribution. Type must be one of the
// three enumerated kinds and the amount a non-negative number. A member
// is required unless the type is Offering, which records against the
// GUEST sentinel.
func RecordTransaction(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTransactionOperation("record")
	churchID := c.Get("church_id").(string)
	recordedBy := c.Get("user_id").(string)

	var req struct {
		Type     string `json:"type"`
		MemberID string `json:"member_id"`
		Amount   string `json:"amount"`
		Date     string `json:"date"`
		Notes    string `json:"notes"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse transaction request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if !model.ValidTransactionType(req.Type) {
		prometheus.RecordValidationError("type")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be Tithe, Offering or Partnership"})
	}

	amount, err := strconv.ParseFloat(req.Amount, 64)
	if err != nil || amount < 0 {
		prometheus.RecordValidationError("amount")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be a non-negative number"})
	}

	date := req.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		prometheus.RecordValidationError("date")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be in YYYY-MM-DD format"})
	}

	// Member selection is validated before any write happens
	memberID := req.MemberID
	if memberID == "" {
		if req.Type != model.TypeOffering {
			prometheus.RecordValidationError("member_id")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Please select a member for this transaction."})
		}
		memberID = model.GuestMemberID
	}

	if memberID != model.GuestMemberID {
		var member model.Member
		if result := database.GetDB().Where("church_id = ?", churchID).First(&member, "id = ?", memberID); result.Error != nil {
			log.Error("Member not found for transaction",
				zap.String("church_id", churchID),
				zap.String("member_id", memberID))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
		}
	}

	transaction := model.Transaction{
		ID:         uuid.New().String(),
		ChurchID:   churchID,
		MemberID:   memberID,
		Type:       req.Type,
		Amount:     amount,
		Date:       date,
		Notes:      req.Notes,
		RecordedBy: recordedBy,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&transaction); result.Error != nil {
		log.Error("Failed to record transaction", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction recording failed"})
	}

	log.Info("Transaction recorded",
		zap.String("church_id", churchID),
		zap.String("member_id", memberID),
		zap.String("type", transaction.Type),
		zap.Float64("amount", amount))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":     "Contribution recorded successfully",
		"transaction": transaction,
	})
}

// ListTransactions returns the church's ledger, date descending,
// optionally filtered by type or member.
func ListTransactions(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTransactionOperation("list")
	churchID := c.Get("church_id").(string)

	txType := c.QueryParam("type")
	if txType != "" && !model.ValidTransactionType(txType) {
		prometheus.RecordValidationError("type")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be Tithe, Offering or Partnership"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	query := database.GetDB().Where("church_id = ?", churchID)
	if txType != "" {
		query = query.Where("type = ?", txType)
	}
	if memberID := c.QueryParam("member_id"); memberID != "" {
		query = query.Where("member_id = ?", memberID)
	}

	var transactions []model.Transaction
	if result := query.Order("date DESC, created_at DESC").Find(&transactions); result.Error != nil {
		log.Error("Failed to list transactions", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve transactions"})
	}

	log.Info("Transactions retrieved",
		zap.String("church_id", churchID),
		zap.Int("count", len(transactions)))
	return c.JSON(http.StatusOK, transactions)
}

// ListMyTransactions returns the calling member's own giving history.
func ListMyTransactions(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTransactionOperation("list")
	churchID := c.Get("church_id").(string)

	memberID := ""
	if claims, ok := c.Get("user").(*jwtutil.UserClaims); ok {
		memberID = claims.MemberID
	}
	if memberID == "" {
		log.Warn("Identity has no linked member record")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "this account is not linked to a member record"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var transactions []model.Transaction
	if result := database.GetDB().
		Where("church_id = ? AND member_id = ?", churchID, memberID).
		Order("date DESC, created_at DESC").
		Find(&transactions); result.Error != nil {
		log.Error("Failed to list member transactions", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve transactions"})
	}

	return c.JSON(http.StatusOK, transactions)
}

// DashboardSummary aggregates the church's all-time totals by type.
// The three types are always present, zero-filled when absent.
func DashboardSummary(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTransactionOperation("aggregate")
	churchID := c.Get("church_id").(string)

	defer prometheus.TrackDBOperation("query")(time.Now())
	type typeSum struct {
		Type  string
		Total float64
	}
	var sums []typeSum
	if result := database.GetDB().Model(&model.Transaction{}).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Where("church_id = ?", churchID).
		Group("type").
		Scan(&sums); result.Error != nil {
		log.Error("Failed to aggregate transactions", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute summary"})
	}

	totals := map[string]float64{
		model.TypeTithe:       0,
		model.TypeOffering:    0,
		model.TypePartnership: 0,
	}
	grandTotal := 0.0
	for _, s := range sums {
		totals[s.Type] = s.Total
		grandTotal += s.Total
	}

	log.Info("Dashboard summary computed", zap.String("church_id", churchID))
	return c.JSON(http.StatusOK, echo.Map{
		"totals": totals,
		"total":  grandTotal,
	})
}
