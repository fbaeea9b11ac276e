package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maloba12/umutulo/internal/middleware"
	"github.com/maloba12/umutulo/pkg/config"
	"github.com/maloba12/umutulo/pkg/database"
	"github.com/maloba12/umutulo/pkg/jwtutil"
)

var (
	churchIDPattern = regexp.MustCompile(`^CH-[A-Z0-9]{9}$`)
	memberIDPattern = regexp.MustCompile(`^M-[A-Z0-9]{6}$`)
	pinPattern      = regexp.MustCompile(`^[1-9][0-9]{5}$`)
)

// newTestServer wires the same routes as cmd/main against the live database.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	e := echo.New()
	e.GET("/churches", ListChurches)

	auth := e.Group("/auth")
	auth.POST("/register", Register)
	auth.POST("/register-member", RegisterMember)
	auth.POST("/login", Login)

	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)
	api.GET("/users/profile", GetProfile)

	scoped := api.Group("")
	scoped.Use(middleware.RequireChurchContext)

	members := scoped.Group("/members", middleware.RequireAdmin)
	members.GET("", ListMembers)
	members.POST("", CreateMember)
	members.POST("/import", ImportMembers)
	members.DELETE("/:id", DeleteMember)

	transactions := scoped.Group("/transactions")
	transactions.POST("", RecordTransaction, middleware.RequireAdmin)
	transactions.GET("", ListTransactions, middleware.RequireAdmin)
	transactions.GET("/mine", ListMyTransactions)

	scoped.GET("/dashboard/summary", DashboardSummary, middleware.RequireAdmin)

	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return ts
}

func setupIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_DB_INTEGRATION") != "true" {
		t.Skip("set RUN_DB_INTEGRATION=true to run this integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, database.InitDB(cfg))
	jwtutil.Initialize(&cfg.JWT)
	Init(cfg)
}

func postJSON(t *testing.T, url, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func getJSON(t *testing.T, url, token string, out interface{}) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func registerChurch(t *testing.T, ts *httptest.Server, name string) (churchID, token string) {
	t.Helper()
	email := fmt.Sprintf("admin_%d@example.com", time.Now().UnixNano())
	status, body := postJSON(t, ts.URL+"/auth/register", "", map[string]string{
		"church_name": name,
		"email":       email,
		"password":    "sup3rsecret",
	})
	require.Equal(t, http.StatusCreated, status, "register response: %v", body)

	church := body["church"].(map[string]interface{})
	return church["churchId"].(string), body["token"].(string)
}

// TestGivingScenario walks the core flow: register a church, provision a
// member, record a tithe, and check the dashboard aggregates.
func TestGivingScenario(t *testing.T) {
	setupIntegration(t)
	ts := newTestServer(t)

	churchID, token := registerChurch(t, ts, fmt.Sprintf("Grace Fellowship %d", time.Now().UnixNano()))
	assert.Regexp(t, churchIDPattern, churchID)

	// Provision a login-enabled member
	status, body := postJSON(t, ts.URL+"/api/members", token, map[string]interface{}{
		"name":         "Martha Phiri",
		"phone":        "+260971000000",
		"enable_login": true,
	})
	require.Equal(t, http.StatusCreated, status, "create member response: %v", body)

	member := body["member"].(map[string]interface{})
	memberID := member["memberId"].(string)
	assert.Regexp(t, memberIDPattern, memberID)
	assert.Regexp(t, pinPattern, body["pin"].(string))
	assert.Equal(t, churchID, member["churchId"])

	// Record a tithe for the member
	status, body = postJSON(t, ts.URL+"/api/transactions", token, map[string]string{
		"type":      "Tithe",
		"member_id": memberID,
		"amount":    "250.00",
		"date":      "2024-05-01",
	})
	require.Equal(t, http.StatusCreated, status, "record transaction response: %v", body)

	// Aggregate must reflect exactly the recorded tithe
	var summary struct {
		Totals map[string]float64 `json:"totals"`
		Total  float64            `json:"total"`
	}
	status = getJSON(t, ts.URL+"/api/dashboard/summary", token, &summary)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 250.00, summary.Totals["Tithe"])
	assert.Equal(t, 0.0, summary.Totals["Offering"])
	assert.Equal(t, summary.Totals["Tithe"]+summary.Totals["Offering"]+summary.Totals["Partnership"], summary.Total)
}

// TestGuestOffering checks the GUEST sentinel boundary case.
func TestGuestOffering(t *testing.T) {
	setupIntegration(t)
	ts := newTestServer(t)

	_, token := registerChurch(t, ts, fmt.Sprintf("Hope Chapel %d", time.Now().UnixNano()))

	// An offering with no member selected succeeds as GUEST
	status, body := postJSON(t, ts.URL+"/api/transactions", token, map[string]string{
		"type":   "Offering",
		"amount": "75.50",
		"date":   "2024-05-02",
	})
	require.Equal(t, http.StatusCreated, status, "offering response: %v", body)
	transaction := body["transaction"].(map[string]interface{})
	assert.Equal(t, "GUEST", transaction["memberId"])
}

// TestTenantIsolation verifies a church never sees another church's rows.
func TestTenantIsolation(t *testing.T) {
	setupIntegration(t)
	ts := newTestServer(t)

	suffix := time.Now().UnixNano()
	_, tokenA := registerChurch(t, ts, fmt.Sprintf("Church A %d", suffix))
	churchB, tokenB := registerChurch(t, ts, fmt.Sprintf("Church B %d", suffix))

	// Church A provisions a member and records a transaction
	status, body := postJSON(t, ts.URL+"/api/members", tokenA, map[string]interface{}{
		"name":  "Only In A",
		"phone": "+260970000001",
	})
	require.Equal(t, http.StatusCreated, status, "create member response: %v", body)
	memberID := body["member"].(map[string]interface{})["memberId"].(string)

	status, _ = postJSON(t, ts.URL+"/api/transactions", tokenA, map[string]string{
		"type":      "Tithe",
		"member_id": memberID,
		"amount":    "10",
		"date":      "2024-05-03",
	})
	require.Equal(t, http.StatusCreated, status)

	// Church B sees neither
	var membersB []map[string]interface{}
	status = getJSON(t, ts.URL+"/api/members", tokenB, &membersB)
	require.Equal(t, http.StatusOK, status)
	for _, m := range membersB {
		assert.Equal(t, churchB, m["churchId"])
		assert.NotEqual(t, memberID, m["memberId"])
	}

	var transactionsB []map[string]interface{}
	status = getJSON(t, ts.URL+"/api/transactions", tokenB, &transactionsB)
	require.Equal(t, http.StatusOK, status)
	for _, tx := range transactionsB {
		assert.Equal(t, churchB, tx["churchId"])
	}

	// Church B cannot record against Church A's member
	status, _ = postJSON(t, ts.URL+"/api/transactions", tokenB, map[string]string{
		"type":      "Tithe",
		"member_id": memberID,
		"amount":    "10",
		"date":      "2024-05-03",
	})
	assert.Equal(t, http.StatusNotFound, status)
}

// TestImportMembers covers the bulk-import batch semantics: a row the
// parser cannot resolve is dropped, a row failing provisioning is
// reported without aborting the batch, and the counts add up.
func TestImportMembers(t *testing.T) {
	setupIntegration(t)
	ts := newTestServer(t)

	_, token := registerChurch(t, ts, fmt.Sprintf("Import Chapel %d", time.Now().UnixNano()))

	dup := fmt.Sprintf("dup_%d@example.com", time.Now().UnixNano())
	content := "Name,Phone,Email\n" +
		"Martha Phiri,+260971000001," + dup + "\n" +
		"John Banda,+260971000002,\n" +
		"Grace Mwale,+260971000003,\n" +
		"No Phone,,nophone@example.com\n" +
		"Duplicate Email,+260971000004," + dup + "\n"

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "members.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/members/import", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Processed int  `json:"processed"`
		Succeeded int  `json:"succeeded"`
		Failed    int  `json:"failed"`
		Truncated bool `json:"truncated"`
		Errors    []struct {
			Line   int    `json:"line"`
			Name   string `json:"name"`
			Reason string `json:"reason"`
		} `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	// The phoneless row never reaches provisioning; the duplicate email
	// fails its own row only
	assert.Equal(t, 4, result.Processed)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Truncated)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 6, result.Errors[0].Line)
	assert.Equal(t, "Duplicate Email", result.Errors[0].Name)
	assert.Contains(t, result.Errors[0].Reason, "already registered")

	// The three provisioned members are in the directory
	var members []map[string]interface{}
	status := getJSON(t, ts.URL+"/api/members?search=Mwale", token, &members)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, members, 1)
	assert.Equal(t, "Grace Mwale", members[0]["name"])
}

// TestMemberSelfService verifies a provisioned member can log in with the
// synthetic email and PIN and see only their own giving.
func TestMemberSelfService(t *testing.T) {
	setupIntegration(t)
	ts := newTestServer(t)

	_, adminToken := registerChurch(t, ts, fmt.Sprintf("Faith Centre %d", time.Now().UnixNano()))

	status, body := postJSON(t, ts.URL+"/api/members", adminToken, map[string]interface{}{
		"name":         "Self Service",
		"phone":        "+260970000002",
		"enable_login": true,
	})
	require.Equal(t, http.StatusCreated, status, "create member response: %v", body)
	memberID := body["member"].(map[string]interface{})["memberId"].(string)
	pin := body["pin"].(string)

	status, _ = postJSON(t, ts.URL+"/api/transactions", adminToken, map[string]string{
		"type":      "Partnership",
		"member_id": memberID,
		"amount":    "500",
		"date":      "2024-05-04",
	})
	require.Equal(t, http.StatusCreated, status)

	// Log in with the synthetic email derived from the member id
	cfg, err := config.Load()
	require.NoError(t, err)
	loginEmail := strings.ToLower(memberID) + cfg.Member.EmailDomain
	status, body = postJSON(t, ts.URL+"/auth/login", "", map[string]string{
		"email":    loginEmail,
		"password": pin,
	})
	require.Equal(t, http.StatusOK, status, "member login response: %v", body)
	memberToken := body["token"].(string)

	var mine []map[string]interface{}
	status = getJSON(t, ts.URL+"/api/transactions/mine", memberToken, &mine)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, mine, 1)
	assert.Equal(t, "Partnership", mine[0]["type"])

	// Members are not allowed on admin routes
	var denied map[string]interface{}
	status = getJSON(t, ts.URL+"/api/dashboard/summary", memberToken, &denied)
	assert.Equal(t, http.StatusForbidden, status)
}
