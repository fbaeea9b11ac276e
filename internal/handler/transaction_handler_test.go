package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newScopedContext builds an echo context carrying an authenticated
// admin's church scope, the way the middleware chain would.
func newScopedContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("church_id", "CH-TEST00001")
	c.Set("user_id", "admin-user")
	c.Set("role", "Church Admin")
	return c, rec
}

// These paths validate and reject before any database write happens, so
// they run without a database connection.

func TestRecordTransactionRejectsUnknownType(t *testing.T) {
	c, rec := newScopedContext(t, http.MethodPost, "/api/transactions",
		`{"type":"Donation","member_id":"M-ABC123","amount":"100","date":"2024-05-01"}`)

	require.NoError(t, RecordTransaction(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tithe, Offering or Partnership")
}

func TestRecordTransactionRejectsNegativeAmount(t *testing.T) {
	c, rec := newScopedContext(t, http.MethodPost, "/api/transactions",
		`{"type":"Tithe","member_id":"M-ABC123","amount":"-50","date":"2024-05-01"}`)

	require.NoError(t, RecordTransaction(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "non-negative")
}

func TestRecordTransactionRejectsMalformedAmount(t *testing.T) {
	c, rec := newScopedContext(t, http.MethodPost, "/api/transactions",
		`{"type":"Tithe","member_id":"M-ABC123","amount":"abc","date":"2024-05-01"}`)

	require.NoError(t, RecordTransaction(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordTransactionRejectsBadDate(t *testing.T) {
	c, rec := newScopedContext(t, http.MethodPost, "/api/transactions",
		`{"type":"Tithe","member_id":"M-ABC123","amount":"100","date":"01/05/2024"}`)

	require.NoError(t, RecordTransaction(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "YYYY-MM-DD")
}

func TestRecordTransactionRequiresMemberForTithe(t *testing.T) {
	// A Tithe with no member selected is rejected before any write
	c, rec := newScopedContext(t, http.MethodPost, "/api/transactions",
		`{"type":"Tithe","amount":"250.00","date":"2024-05-01"}`)

	require.NoError(t, RecordTransaction(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "select a member")
}

func TestCreateMemberRequiresNameAndPhone(t *testing.T) {
	c, rec := newScopedContext(t, http.MethodPost, "/api/members",
		`{"name":"","phone":""}`)

	require.NoError(t, CreateMember(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name and phone are required")
}

func TestListTransactionsRejectsUnknownTypeFilter(t *testing.T) {
	c, rec := newScopedContext(t, http.MethodGet, "/api/transactions?type=Donation", "")

	require.NoError(t, ListTransactions(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
