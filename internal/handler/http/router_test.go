package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"payeveryone/internal/auth"
	"payeveryone/internal/blob"
	"payeveryone/internal/domain"
	"payeveryone/internal/events"
	"payeveryone/internal/repository/memory"
	"payeveryone/internal/service"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const adminEmail = "admin@example.com"

type apiResponse struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type testAPI struct {
	srv *httptest.Server
	hub *events.Hub
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := zap.NewNop()

	repos, _ := memory.NewRepositories(100)
	hub := events.NewHub(64, log)
	cfg := service.DefaultLedgerConfig()
	cfg.BcryptCost = bcrypt.MinCost

	filesDir := t.TempDir()
	srv := httptest.NewUnstartedServer(nil)
	baseURL := "http://" + srv.Listener.Addr().String() + "/files"

	tokens := auth.NewTokens("0123456789abcdef0123", time.Hour, "payeveryone-test")
	svc := Services{
		Auth:        service.NewAuthService(repos, tokens, auth.NewMemoryRevoker(), cfg, []string{adminEmail}, hub, log),
		Users:       service.NewUserService(repos, cfg, hub, log),
		History:     service.NewHistoryService(repos),
		Deposits:    service.NewDepositService(repos, cfg, hub, log),
		Withdrawals: service.NewWithdrawalService(repos, hub, log),
		Exchanges:   service.NewExchangeService(repos, cfg, hub, log),
		Market:      service.NewMarketService(repos, blob.NewLocalStore(filesDir, baseURL), hub, log),
		Events:      hub,
	}
	srv.Config.Handler = NewRouter(svc, RouterConfig{CORSOrigins: []string{"*"}, FilesDir: filesDir}, log)
	srv.Start()
	t.Cleanup(srv.Close)

	return &testAPI{srv: srv, hub: hub}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any, header ...string) (int, apiResponse) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	return a.send(t, req)
}

func (a *testAPI) send(t *testing.T, req *http.Request) (int, apiResponse) {
	t.Helper()
	resp, err := a.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, r apiResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Data, &v))
	return v
}

// signUp registers and signs in, returning the user and a bearer token.
func (a *testAPI) signUp(t *testing.T, name, email string) (domain.User, string) {
	t.Helper()
	code, resp := a.do(t, http.MethodPost, "/auth/signup", "", domain.SignUpReq{Name: name, Email: email, Password: "secret123"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	user := decode[domain.User](t, resp)

	code, resp = a.do(t, http.MethodPost, "/auth/signin", "", domain.SignInReq{Email: email, Password: "secret123"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	return user, decode[tokenBody](t, resp).Token
}

func (a *testAPI) balance(t *testing.T, token string) decimal.Decimal {
	t.Helper()
	code, resp := a.do(t, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	return decode[domain.User](t, resp).Balance
}

func (a *testAPI) setPIN(t *testing.T, token string) {
	t.Helper()
	code, resp := a.do(t, http.MethodPut, "/me/withdraw-pin", token, domain.SetPINReq{PIN: "1234", Confirm: "1234"})
	require.Equal(t, http.StatusNoContent, code, resp.Message)
}

func TestAuthAndAccessControl(t *testing.T) {
	api := newTestAPI(t)
	_, userToken := api.signUp(t, "Asha", "asha@example.com")
	_, adminToken := api.signUp(t, "Root", adminEmail)

	code, _ := api.do(t, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.do(t, http.MethodGet, "/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp := api.do(t, http.MethodGet, "/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "error", resp.Status)

	code, resp = api.do(t, http.MethodGet, "/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]domain.User](t, resp), 2)

	code, _ = api.do(t, http.MethodPost, "/auth/signin", "", domain.SignInReq{Email: "asha@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.do(t, http.MethodPost, "/auth/signup", "", domain.SignUpReq{Name: "Dup", Email: "ASHA@example.com", Password: "secret123"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = api.do(t, http.MethodPost, "/auth/signout", userToken, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = api.do(t, http.MethodGet, "/me", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestDepositAndWithdrawalFlow(t *testing.T) {
	api := newTestAPI(t)
	_, userToken := api.signUp(t, "Asha", "asha@example.com")
	_, adminToken := api.signUp(t, "Root", adminEmail)
	api.setPIN(t, userToken)

	code, resp := api.do(t, http.MethodPost, "/deposits", userToken, map[string]any{"amount": "5", "transactionId": "tx-small"})
	assert.Equal(t, http.StatusBadRequest, code, "below minimum deposit")

	code, resp = api.do(t, http.MethodPost, "/deposits", userToken, map[string]any{"amount": "500", "transactionId": "tx-1"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	deposit := decode[domain.DepositRequest](t, resp)

	code, resp = api.do(t, http.MethodGet, "/admin/deposits?status=pending", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]domain.DepositRequest](t, resp), 1)

	code, _ = api.do(t, http.MethodGet, "/admin/deposits?status=bogus", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(t, http.MethodPost, "/admin/deposits/"+deposit.ID+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = api.do(t, http.MethodPost, "/admin/deposits/"+deposit.ID+"/approve", adminToken, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.True(t, api.balance(t, userToken).Equal(decimal.NewFromInt(500)))

	body := map[string]any{"amount": "200", "address": "TXYZ-wallet", "pin": "1234"}
	code, resp = api.do(t, http.MethodPost, "/withdrawals", userToken, body, idempotencyHeader, "wd-1")
	require.Equal(t, http.StatusCreated, code, resp.Message)
	first := decode[domain.Withdrawal](t, resp)

	code, resp = api.do(t, http.MethodPost, "/withdrawals", userToken, body, idempotencyHeader, "wd-1")
	require.Equal(t, http.StatusCreated, code, resp.Message)
	assert.Equal(t, first.ID, decode[domain.Withdrawal](t, resp).ID)
	assert.True(t, api.balance(t, userToken).Equal(decimal.NewFromInt(300)), "replay must not debit twice")

	big := map[string]any{"amount": "1000", "address": "TXYZ-wallet", "pin": "1234"}
	code, _ = api.do(t, http.MethodPost, "/withdrawals", userToken, big, idempotencyHeader, "wd-2")
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	wrongPIN := map[string]any{"amount": "10", "address": "TXYZ-wallet", "pin": "9999"}
	code, _ = api.do(t, http.MethodPost, "/withdrawals", userToken, wrongPIN, idempotencyHeader, "wd-3")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(t, http.MethodPost, "/admin/withdrawals/"+first.ID+"/reject", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, api.balance(t, userToken).Equal(decimal.NewFromInt(500)), "reject refunds the reservation")

	code, _ = api.do(t, http.MethodPost, "/admin/withdrawals/missing/approve", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = api.do(t, http.MethodGet, "/me/history", userToken, nil)
	require.Equal(t, http.StatusOK, code)
	history := decode[historyBody](t, resp)
	assert.Len(t, history.Entries, 2)
}

func TestExchangeFlow(t *testing.T) {
	api := newTestAPI(t)
	user, userToken := api.signUp(t, "Asha", "asha@example.com")
	_, adminToken := api.signUp(t, "Root", adminEmail)
	api.setPIN(t, userToken)

	code, resp := api.do(t, http.MethodPost, "/admin/users/"+user.ID+"/credit", adminToken, map[string]any{"amount": "300"})
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = api.do(t, http.MethodPut, "/me/payout", userToken, domain.UPIMethod("asha@okbank"))
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = api.do(t, http.MethodPost, "/exchanges", userToken, map[string]any{"amount": "10000", "pin": "1234"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	exchange := decode[domain.ExchangeRequest](t, resp)
	assert.Equal(t, domain.PaymentUPI, exchange.PaymentMethod.Kind())

	code, _ = api.do(t, http.MethodPost, "/admin/exchanges/"+exchange.ID+"/approve", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, code, "no price configured")

	code, resp = api.do(t, http.MethodPut, "/admin/market/prices", adminToken, map[string]any{"marketPrice": "95", "ourPrice": "100"})
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = api.do(t, http.MethodPost, "/admin/exchanges/"+exchange.ID+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	settled := decode[domain.ExchangeRequest](t, resp)
	assert.Equal(t, domain.StatusApproved, settled.Status)
	assert.True(t, settled.SettledAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, api.balance(t, userToken).Equal(decimal.NewFromInt(200)))

	code, resp = api.do(t, http.MethodPost, "/exchanges", userToken, map[string]any{"amount": "10000", "pin": "1234"})
	require.Equal(t, http.StatusCreated, code)
	second := decode[domain.ExchangeRequest](t, resp)

	code, _ = api.do(t, http.MethodPost, "/admin/exchanges/"+second.ID+"/fail", adminToken, map[string]any{"reason": ""})
	assert.Equal(t, http.StatusBadRequest, code)
	code, resp = api.do(t, http.MethodPost, "/admin/exchanges/"+second.ID+"/fail", adminToken, map[string]any{"reason": "bank rejected"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.StatusFailed, decode[settledBody](t, resp).Status)

	code, resp = api.do(t, http.MethodGet, "/admin/dashboard", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, decode[domain.Dashboard](t, resp).TotalUsers)
}

func multipartRequest(t *testing.T, url, token string, fields map[string]string, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="qrCode"; filename="%s"`, filename))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPut, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestPaymentMethodUploads(t *testing.T) {
	api := newTestAPI(t)
	_, userToken := api.signUp(t, "Asha", "asha@example.com")
	_, adminToken := api.signUp(t, "Root", adminEmail)
	png := []byte("\x89PNG fake image")

	req := multipartRequest(t, api.srv.URL+"/admin/payment-methods/usdt", adminToken,
		map[string]string{"walletAddress": "TRC20-ADDR"}, "deposit.png", "image/png", png)
	code, resp := api.send(t, req)
	require.Equal(t, http.StatusOK, code, resp.Message)
	addr := decode[domain.DepositAddress](t, resp)
	assert.Equal(t, "TRC20-ADDR", addr.WalletAddress)
	require.True(t, strings.HasPrefix(addr.QRCodeURL, api.srv.URL+"/files/usdtdeposit/"), addr.QRCodeURL)

	fileResp, err := api.srv.Client().Get(addr.QRCodeURL)
	require.NoError(t, err)
	served, err := io.ReadAll(fileResp.Body)
	fileResp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, png, served)

	req = multipartRequest(t, api.srv.URL+"/admin/payment-methods/usdt", adminToken,
		map[string]string{"walletAddress": "TRC20-NEW"}, "", "", nil)
	code, resp = api.send(t, req)
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, addr.QRCodeURL, decode[domain.DepositAddress](t, resp).QRCodeURL, "QR kept when no file is sent")

	req = multipartRequest(t, api.srv.URL+"/admin/payment-methods/qr", adminToken, nil, "notes.txt", "text/plain", []byte("hi"))
	code, _ = api.send(t, req)
	assert.Equal(t, http.StatusBadRequest, code)

	req = multipartRequest(t, api.srv.URL+"/admin/payment-methods/qr", adminToken, nil, "", "", nil)
	code, _ = api.send(t, req)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = api.do(t, http.MethodGet, "/payment-methods/usdt", userToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "TRC20-NEW", decode[domain.DepositAddress](t, resp).WalletAddress)
}

func TestStream_DeliversBalanceChanges(t *testing.T) {
	api := newTestAPI(t)
	user, userToken := api.signUp(t, "Asha", "asha@example.com")
	_, adminToken := api.signUp(t, "Root", adminEmail)

	wsURL := "ws" + strings.TrimPrefix(api.srv.URL, "http") + "/ws?token=" + userToken
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return api.hub.Subscribers(domain.UserTopic(user.ID)) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, api.hub.Subscribers(domain.TopicAdminRequests))

	code, _ := api.do(t, http.MethodPost, "/admin/users/"+user.ID+"/credit", adminToken, map[string]any{"amount": "42"})
	require.Equal(t, http.StatusOK, code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev domain.Event
	for ev.Type != domain.EventBalanceChanged {
		require.NoError(t, conn.ReadJSON(&ev))
	}
	assert.Equal(t, domain.UserTopic(user.ID), ev.Topic)

	conn.Close()
	require.Eventually(t, func() bool {
		return api.hub.Subscribers(domain.UserTopic(user.ID)) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStream_RequiresToken(t *testing.T) {
	api := newTestAPI(t)

	wsURL := "ws" + strings.TrimPrefix(api.srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	code, resp := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", resp.Status)

	res, err := api.srv.Client().Get(api.srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "http_requests_total")
}

func TestUnroutedPathsShareOneSeries(t *testing.T) {
	api := newTestAPI(t)
	series := func() (n int, paths []string) {
		families, err := prometheus.DefaultGatherer.Gather()
		require.NoError(t, err)
		for _, f := range families {
			if f.GetName() != "http_requests_total" {
				continue
			}
			for _, m := range f.GetMetric() {
				n++
				for _, l := range m.GetLabel() {
					if l.GetName() == "route" {
						paths = append(paths, l.GetValue())
					}
				}
			}
		}
		return n, paths
	}

	get := func(path string) int {
		res, err := api.srv.Client().Get(api.srv.URL + path)
		require.NoError(t, err)
		res.Body.Close()
		return res.StatusCode
	}

	get("/no-such-route-warmup")
	before, _ := series()
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNotFound, get(fmt.Sprintf("/no-such-route-%d", i)))
	}
	after, routes := series()

	assert.Equal(t, before, after)
	assert.Contains(t, routes, "unmatched")
	for _, r := range routes {
		assert.NotContains(t, r, "no-such-route")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: amount", domain.ErrInvalidInput), http.StatusBadRequest},
		{domain.ErrPINMismatch, http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrUserNotFound, http.StatusNotFound},
		{domain.ErrRequestNotFound, http.StatusNotFound},
		{domain.ErrAlreadyProcessed, http.StatusConflict},
		{domain.ErrIdempotencyKeyMismatch, http.StatusConflict},
		{domain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{errors.Join(domain.ErrTxConflict, errors.New("stale")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
