package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/maloba12/umutulo/internal/importer"
	"github.com/maloba12/umutulo/pkg/logger"
	"github.com/maloba12/umutulo/prometheus"
)

// maxImportReasons caps the per-row error list in the import summary.
const maxImportReasons = 20

// ImportMembers bulk-provisions members from an uploaded CSV or XLSX file.
// Rows are processed strictly sequentially; a failing row is reported and
// skipped, never aborting the batch.
func ImportMembers(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordMemberOperation("import")
	churchID := c.Get("church_id").(string)

	file, err := c.FormFile("file")
	if err != nil {
		log.Error("Missing import file", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "import file is required"})
	}

	src, err := file.Open()
	if err != nil {
		log.Error("Failed to open import file", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "import failed"})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		log.Error("Failed to read import file", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "import failed"})
	}

	rows, err := importer.Parse(file.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrUnsupportedFormat):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported file format, expected .csv or .xlsx"})
		case errors.Is(err, importer.ErrMissingColumns):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "import file must contain name and phone columns"})
		case errors.Is(err, importer.ErrEmptyFile):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "import file is empty"})
		default:
			log.Error("Failed to parse import file", zap.String("filename", file.Filename), zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not parse import file"})
		}
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	type rowError struct {
		Line   int    `json:"line"`
		Name   string `json:"name,omitempty"`
		Reason string `json:"reason"`
	}

	succeeded := 0
	var failures []rowError

	// One full provisioning sequence per row, in file order. Sequential
	// processing keeps progress deterministic and bounds credential churn.
	for _, row := range rows {
		_, _, err := provisionMember(churchID, row.Name, row.Phone, row.Email, false)
		if err != nil {
			prometheus.RecordImportRow("failure")
			_, reason := credentialStatus(err)
			if errors.Is(err, ErrMemberIDExhausted) {
				reason = "could not allocate a member id"
			}
			failures = append(failures, rowError{Line: row.Line, Name: row.Name, Reason: reason})
			log.Warn("Import row failed",
				zap.Int("line", row.Line),
				zap.String("name", row.Name),
				zap.Error(err))
			continue
		}
		prometheus.RecordImportRow("success")
		succeeded++
	}

	failed := len(failures)
	truncated := false
	if len(failures) > maxImportReasons {
		failures = failures[:maxImportReasons]
		truncated = true
	}
	if failures == nil {
		failures = []rowError{}
	}

	log.Info("Member import finished",
		zap.String("church_id", churchID),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))

	return c.JSON(http.StatusOK, echo.Map{
		"message":   fmt.Sprintf("Imported %d of %d members", succeeded, len(rows)),
		"processed": len(rows),
		"succeeded": succeeded,
		"failed":    failed,
		"errors":    failures,
		"truncated": truncated,
	})
}
