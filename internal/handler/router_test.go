package handler_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/boddenberg/finance-core/internal/handler"
	"github.com/boddenberg/finance-core/internal/infra/blob"
	"github.com/boddenberg/finance-core/internal/infra/cache"
	"github.com/boddenberg/finance-core/internal/infra/device"
	"github.com/boddenberg/finance-core/internal/infra/localstore"
	"github.com/boddenberg/finance-core/internal/infra/observability"
	"github.com/boddenberg/finance-core/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// --- Fakes ---

type fakeRemote struct {
	mu   sync.Mutex
	down bool
	txs  []domain.Transaction
}

func (f *fakeRemote) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *fakeRemote) fail() error {
	if f.down {
		return &domain.ErrExternalService{Service: "transactions", Err: errors.New("connection refused")}
	}
	return nil
}

func (f *fakeRemote) ListTransactions(_ context.Context, _ domain.ListParams) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	return append([]domain.Transaction(nil), f.txs...), nil
}

func (f *fakeRemote) CreateTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	f.txs = append(f.txs, tx)
	return &tx, nil
}

func (f *fakeRemote) UpdateTransaction(_ context.Context, _ string, tx domain.Transaction) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (f *fakeRemote) DeleteTransaction(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	for i, tx := range f.txs {
		if tx.ID == id {
			f.txs = append(f.txs[:i], f.txs[i+1:]...)
			break
		}
	}
	return nil
}

type testEnv struct {
	router  http.Handler
	remote  *fakeRemote
	battery *device.Static
}

func newTestEnv(t *testing.T, opts handler.Options, autoGrant bool) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	blobs := blob.NewMemory()
	remote := &fakeRemote{}
	battery := device.NewStatic(domain.BatteryInfo{LevelPercent: 80, OptimizationEnabled: true})

	txSvc := service.NewTransactionService(remote, localstore.New(blobs, localstore.DefaultKey), metrics, logger)
	batterySvc := service.NewBatteryService(battery, 10*time.Millisecond, metrics, logger)
	t.Cleanup(batterySvc.StopMonitoring)

	svcs := handler.Services{
		Transactions: txSvc,
		Analytics:    service.NewAnalyticsService(txSvc, 100),
		Battery:      batterySvc,
		Calendar:     service.NewCalendarService(device.NewCalendar(autoGrant), metrics, logger),
		Store:        blobs,
	}
	return &testEnv{
		router:  handler.NewRouter(svcs, opts, metrics, logger),
		remote:  remote,
		battery: battery,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Source   string          `json:"source"`
	Message  string          `json:"message"`
	Total    int             `json:"total"`
	HasMore  bool            `json:"hasMore"`
	Error    string          `json:"error"`
	Code     string          `json:"code"`
	Messages []string        `json:"messages"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

const lunch = `{"amount":12.5,"category":"Food","description":"Lunch","type":"expense","date":"2024-03-10"}`

// --- Operational endpoints ---

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)

	rec := env.do(t, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var health domain.HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "healthy" || len(health.Services) != 2 {
		t.Errorf("unexpected health: %+v", health)
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)

	if rec := env.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)
	env.do(t, http.MethodGet, "/readyz", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "finance_requests_total") {
		t.Errorf("expected request counter in exposition, got:\n%s", rec.Body.String())
	}
}

// --- Transactions ---

func TestCreateTransaction_Remote(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)

	rec := env.do(t, http.MethodPost, "/v1/transactions", lunch)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body.Source != string(domain.SourceRemote) {
		t.Errorf("expected remote source, got %q", body.Source)
	}
	var tx domain.Transaction
	if err := json.Unmarshal(body.Data, &tx); err != nil {
		t.Fatalf("decode tx: %v", err)
	}
	if tx.ID == "" || tx.Amount != 12.5 {
		t.Errorf("unexpected transaction: %+v", tx)
	}
}

func TestCreateTransaction_FallbackThenList(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)
	env.remote.setDown(true)

	rec := env.do(t, http.MethodPost, "/v1/transactions", lunch)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode(t, rec)
	if created.Source != string(domain.SourceLocalFallback) || created.Message == "" {
		t.Errorf("expected local fallback with message, got %+v", created)
	}

	rec = env.do(t, http.MethodGet, "/v1/transactions?limit=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := decode(t, rec)
	var txs []domain.Transaction
	if err := json.Unmarshal(list.Data, &txs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Source != string(domain.SourceLocalFallback) || len(txs) != 1 || list.Total != 1 {
		t.Errorf("expected one local transaction, got source=%q total=%d txs=%+v", list.Source, list.Total, txs)
	}
}

func TestListTransactions_PagesLocalSnapshotNewestFirst(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)
	env.remote.setDown(true)

	for _, day := range []string{"01", "03", "02"} {
		body := `{"amount":1,"category":"Food","description":"d` + day + `","type":"expense","date":"2024-03-` + day + `"}`
		if rec := env.do(t, http.MethodPost, "/v1/transactions", body); rec.Code != http.StatusCreated {
			t.Fatalf("create: %d", rec.Code)
		}
	}

	list := decode(t, env.do(t, http.MethodGet, "/v1/transactions?page=1&limit=2", ""))
	var txs []domain.Transaction
	if err := json.Unmarshal(list.Data, &txs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(txs) != 2 || txs[0].Description != "d03" || txs[1].Description != "d02" {
		t.Errorf("unexpected first page: %+v", txs)
	}
	if list.Total != 3 || !list.HasMore {
		t.Errorf("expected total 3 with more pages, got total=%d hasMore=%v", list.Total, list.HasMore)
	}
}

func TestCreateTransaction_ValidationMessages(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)

	rec := env.do(t, http.MethodPost, "/v1/transactions", `{"amount":-1,"category":" ","description":"x","type":"gift","date":"2024-03-10"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body.Code != "VALIDATION_ERROR" || len(body.Messages) < 3 {
		t.Errorf("expected three validation messages, got %+v", body)
	}
}

func TestCreateTransaction_MalformedBody(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)

	rec := env.do(t, http.MethodPost, "/v1/transactions", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)

	var tx domain.Transaction
	if err := json.Unmarshal(decode(t, env.do(t, http.MethodPost, "/v1/transactions", lunch)).Data, &tx); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	rec := env.do(t, http.MethodPut, "/v1/transactions/"+tx.ID, `{"amount":20}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated domain.Transaction
	if err := json.Unmarshal(decode(t, rec).Data, &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.Amount != 20 || updated.Description != "Lunch" {
		t.Errorf("patch not merged: %+v", updated)
	}

	rec = env.do(t, http.MethodDelete, "/v1/transactions/"+tx.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}

	if rec := env.do(t, http.MethodGet, "/v1/transactions/"+tx.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestGetTransaction_RemoteOnlyRecord(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)
	env.remote.mu.Lock()
	env.remote.txs = append(env.remote.txs, domain.Transaction{
		ID: "web-1", Amount: 30, Category: "Bills", Description: "Phone",
		Type: domain.TypeExpense, Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	})
	env.remote.mu.Unlock()

	rec := env.do(t, http.MethodGet, "/v1/transactions/web-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a record only the remote knows, got %d: %s", rec.Code, rec.Body.String())
	}
	var tx domain.Transaction
	if err := json.Unmarshal(decode(t, rec).Data, &tx); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tx.Description != "Phone" {
		t.Errorf("unexpected record: %+v", tx)
	}

	env.remote.setDown(true)
	if rec := env.do(t, http.MethodGet, "/v1/transactions/web-1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 once the remote is down and nothing is stored locally, got %d", rec.Code)
	}
}

func TestUpdateTransaction_UnknownWhileOffline(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)
	env.remote.setDown(true)

	rec := env.do(t, http.MethodPut, "/v1/transactions/missing", `{"amount":20}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestListCategories(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)

	rec := env.do(t, http.MethodGet, "/v1/categories?type=income", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cats []domain.Category
	if err := json.Unmarshal(decode(t, rec).Data, &cats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cats) == 0 {
		t.Fatal("expected income categories")
	}
	for _, c := range cats {
		if c.Type != domain.TypeIncome {
			t.Errorf("unexpected category %+v", c)
		}
	}

	if rec := env.do(t, http.MethodGet, "/v1/categories?type=gift", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown type, got %d", rec.Code)
	}
}

// --- Analytics ---

func TestAnalyticsSummary(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)
	env.do(t, http.MethodPost, "/v1/transactions", lunch)
	env.do(t, http.MethodPost, "/v1/transactions", `{"amount":100,"category":"Salary","description":"Pay","type":"income","date":"2024-03-01"}`)

	rec := env.do(t, http.MethodGet, "/v1/analytics/summary?from=2024-03-01&to=2024-03-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary domain.Summary
	if err := json.Unmarshal(decode(t, rec).Data, &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.TotalIncome != 100 || summary.TotalExpenses != 12.5 || summary.NetWorth != 87.5 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestAnalyticsSummary_BadDate(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)

	if rec := env.do(t, http.MethodGet, "/v1/analytics/summary?from=yesterday", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCompoundInterest(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)

	rec := env.do(t, http.MethodGet, "/v1/analytics/compound-interest?principal=1000&rate=0.1&periods=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := env.do(t, http.MethodGet, "/v1/analytics/compound-interest?principal=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// --- Sync stats ---

func TestSyncStats_CountsFallbacks(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)
	env.remote.setDown(true)
	env.do(t, http.MethodPost, "/v1/transactions", lunch)

	var stats domain.SyncStats
	if err := json.Unmarshal(decode(t, env.do(t, http.MethodGet, "/v1/sync/stats", "")).Data, &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Fallbacks != 1 || stats.RemoteFailures != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

// --- Device bridges ---

func TestBatteryInfo(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)

	rec := env.do(t, http.MethodGet, "/v1/device/battery", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var info domain.BatteryInfo
	if err := json.Unmarshal(decode(t, rec).Data, &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.LevelPercent != 80 {
		t.Errorf("unexpected info: %+v", info)
	}

	env.battery.Fail(errors.New("bridge gone"))
	rec = env.do(t, http.MethodGet, "/v1/device/battery", "")
	if rec.Code != http.StatusBadGateway || decode(t, rec).Code != domain.CodeBatteryError {
		t.Errorf("expected 502 BATTERY_ERROR, got %d", rec.Code)
	}
}

func TestBatteryMonitoringToggle(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)

	rec := env.do(t, http.MethodPost, "/v1/device/battery/monitoring", "")
	if !strings.Contains(rec.Body.String(), `"monitoring":true`) {
		t.Errorf("expected monitoring on, got %s", rec.Body.String())
	}
	rec = env.do(t, http.MethodDelete, "/v1/device/battery/monitoring", "")
	if !strings.Contains(rec.Body.String(), `"monitoring":false`) {
		t.Errorf("expected monitoring off, got %s", rec.Body.String())
	}
}

func TestBatteryEvents_StreamsCurrentState(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/device/battery/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	var lines []string
	for scanner.Scan() && len(lines) < 2 {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 || lines[0] != "event: batteryChanged" || !strings.Contains(lines[1], `"level":80`) {
		t.Errorf("unexpected first event: %v", lines)
	}
}

func TestCalendar_PermissionDenied(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, false)

	rec := env.do(t, http.MethodPost, "/v1/calendar/events", `{"title":"Rent","startDate":"2024-03-01T10:00:00Z","endDate":"2024-03-01T11:00:00Z"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if body := decode(t, rec); body.Code != domain.CodeCalendarPermission {
		t.Errorf("expected %s, got %q", domain.CodeCalendarPermission, body.Code)
	}
}

func TestCalendar_EventLifecycle(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)

	if rec := env.do(t, http.MethodPost, "/v1/calendar/access", ""); !strings.Contains(rec.Body.String(), `"granted":true`) {
		t.Fatalf("expected access granted, got %s", rec.Body.String())
	}

	rec := env.do(t, http.MethodPost, "/v1/calendar/events", `{"title":"Rent","startDate":"2024-03-01T10:00:00Z","endDate":"2024-03-01T11:00:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var ev domain.CalendarEvent
	if err := json.Unmarshal(decode(t, rec).Data, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var events []domain.CalendarEvent
	listed := decode(t, env.do(t, http.MethodGet, "/v1/calendar/events?start=2024-03-01&end=2024-03-02", ""))
	if err := json.Unmarshal(listed.Data, &events); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(events) != 1 || events[0].ID != ev.ID {
		t.Errorf("unexpected events: %+v", events)
	}

	if rec := env.do(t, http.MethodDelete, "/v1/calendar/events/"+ev.ID, ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/v1/calendar/events/"+ev.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestSyncTransactionToCalendar(t *testing.T) {
	env := newTestEnv(t, handler.Options{}, true)
	env.do(t, http.MethodPost, "/v1/calendar/access", "")

	var tx domain.Transaction
	if err := json.Unmarshal(decode(t, env.do(t, http.MethodPost, "/v1/transactions", lunch)).Data, &tx); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/v1/transactions/"+tx.ID+"/calendar", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var ev domain.CalendarEvent
	if err := json.Unmarshal(decode(t, rec).Data, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Title != "Transaction: Lunch" || ev.Notes != "Food" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

// --- Auth ---

func TestJWTAuth(t *testing.T) {
	secret := "test-secret"
	env := newTestEnv(t, handler.Options{JWTSecret: secret}, true)

	rec := env.do(t, http.MethodGet, "/v1/categories", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	if body := decode(t, rec); body.Code != "UNAUTHORIZED" || body.Error != "missing bearer token" {
		t.Errorf("unexpected body without token: %+v", body)
	}

	rec = env.do(t, http.MethodGet, "/v1/categories", "", "Authorization", "Token abc")
	if body := decode(t, rec); rec.Code != http.StatusUnauthorized || body.Error != "invalid authorization header" {
		t.Errorf("expected 401 for non-bearer scheme, got %d %+v", rec.Code, body)
	}

	rec = env.do(t, http.MethodGet, "/v1/categories", "", "Authorization", "Bearer garbage")
	if body := decode(t, rec); rec.Code != http.StatusUnauthorized || body.Code != "UNAUTHORIZED" {
		t.Errorf("expected 401 with bad token, got %d %+v", rec.Code, body)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if rec := env.do(t, http.MethodGet, "/v1/categories", "", "Authorization", "Bearer "+signed); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", rec.Code)
	}

	// Operational endpoints stay open.
	if rec := env.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("expected open /healthz, got %d", rec.Code)
	}
}

func TestAnalyticsSnapshot_InvalidatedByWrites(t *testing.T) {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	blobs := blob.NewMemory()
	txSvc := service.NewTransactionService(&fakeRemote{}, localstore.New(blobs, localstore.DefaultKey), metrics, logger)
	snapshots := cache.New[*domain.Result[[]domain.Transaction]](time.Minute)
	defer snapshots.Close()

	env := &testEnv{router: handler.NewRouter(handler.Services{
		Transactions: txSvc,
		Analytics:    service.NewAnalyticsService(txSvc, 100).WithSnapshotCache(snapshots),
		Battery:      service.NewBatteryService(device.NewStatic(domain.BatteryInfo{}), time.Minute, metrics, logger),
		Calendar:     service.NewCalendarService(device.NewCalendar(true), metrics, logger),
	}, handler.Options{}, metrics, logger)}

	summary := func() domain.Summary {
		var s domain.Summary
		rec := env.do(t, http.MethodGet, "/v1/analytics/summary?from=2024-03-01&to=2024-03-31", "")
		if err := json.Unmarshal(decode(t, rec).Data, &s); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return s
	}

	if got := summary(); got.TransactionCount != 0 {
		t.Fatalf("expected empty summary, got %+v", got)
	}
	env.do(t, http.MethodPost, "/v1/transactions", lunch)
	if got := summary(); got.TransactionCount != 1 {
		t.Errorf("expected write to refresh snapshot, got %+v", got)
	}
}
