package http_api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vrsc-tipbot/tipbot/internal/models"
	"github.com/vrsc-tipbot/tipbot/internal/reactdrop"
	"github.com/vrsc-tipbot/tipbot/pkg/logger"
)

type MockTipBot struct {
	mock.Mock
}

func (m *MockTipBot) GetBalance(ctx context.Context, userID string) (models.Amount, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.Amount), args.Error(1)
}

func (m *MockTipBot) GetOrCreateAddress(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockTipBot) ResolveAddress(ctx context.Context, userID string) (string, bool, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockTipBot) ResolveUser(ctx context.Context, address string) (string, bool, error) {
	args := m.Called(ctx, address)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockTipBot) SetNotificationPreference(ctx context.Context, userID string, pref models.NotificationPreference) error {
	args := m.Called(ctx, userID, pref)
	return args.Error(0)
}

func (m *MockTipBot) IngestDeposit(ctx context.Context, deposit *models.Deposit) (*models.Transaction, error) {
	args := m.Called(ctx, deposit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTipBot) IsDepositProcessed(ctx context.Context, txHash string) (bool, error) {
	args := m.Called(ctx, txHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockTipBot) Withdraw(ctx context.Context, userID, address string, amount models.Amount) (*models.Withdrawal, error) {
	args := m.Called(ctx, userID, address, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *MockTipBot) Distribute(ctx context.Context, req *models.DistributionRequest) (*models.DistributionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DistributionResult), args.Error(1)
}

func (m *MockTipBot) GetEvent(ctx context.Context, eventID string) ([]*models.Transaction, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

type MockReactdrops struct {
	mock.Mock
}

func (m *MockReactdrops) Start(ctx context.Context, req *reactdrop.Request) (*reactdrop.SessionInfo, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reactdrop.SessionInfo), args.Error(1)
}

func (m *MockReactdrops) Cancel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReactdrops) List(ctx context.Context) ([]*reactdrop.SessionInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*reactdrop.SessionInfo), args.Error(1)
}

func newTestServer(token string) (*HTTPServer, *MockTipBot, *MockReactdrops) {
	gin.SetMode(gin.TestMode)
	bot := new(MockTipBot)
	drops := new(MockReactdrops)
	return NewHTTPServer(bot, drops, 0, token, logger.NewNop()), bot, drops
}

func do(s *HTTPServer, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestShutdownBeforeStart(t *testing.T) {
	s, _, _ := newTestServer("")
	require.NotNil(t, s.server)
	assert.Equal(t, "0.0.0.0:0", s.server.Addr)
	assert.NoError(t, s.Shutdown())
}

func TestHealthSkipsAuth(t *testing.T) {
	s, _, _ := newTestServer("secret")
	w := do(s, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth(t *testing.T) {
	s, bot, _ := newTestServer("secret")
	bot.On("GetBalance", mock.Anything, "u1").Return(models.Amount(150_000_000), nil)

	w := do(s, http.MethodGet, "/api/v1/users/u1/balance", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(s, http.MethodGet, "/api/v1/users/u1/balance", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(s, http.MethodGet, "/api/v1/users/u1/balance", nil, "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, w.Code)
	balance := decode(t, w)["balance"].(map[string]interface{})
	assert.Equal(t, "1.5", balance["coins"])
	assert.Equal(t, "1.5 VRSC", balance["display"])
}

func TestCreateAddress(t *testing.T) {
	s, bot, _ := newTestServer("")
	bot.On("GetOrCreateAddress", mock.Anything, "u1").Return("RAddr", nil).Once()
	bot.On("GetOrCreateAddress", mock.Anything, "u2").Return("", models.ErrAddressGenerationFailed).Once()

	w := do(s, http.MethodPost, "/api/v1/users/u1/address", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "RAddr", decode(t, w)["address"])

	w = do(s, http.MethodPost, "/api/v1/users/u2/address", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSetNotification(t *testing.T) {
	s, bot, _ := newTestServer("")
	bot.On("SetNotificationPreference", mock.Anything, "u1", models.NotificationDMOnly).Return(nil).Once()

	w := do(s, http.MethodPut, "/api/v1/users/u1/notification", NotificationRequest{Notification: "DMOnly"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dm_only", decode(t, w)["notification"])

	w = do(s, http.MethodPut, "/api/v1/users/u1/notification", NotificationRequest{Notification: "loud"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	bot.AssertExpectations(t)
}

func TestLookupAddress(t *testing.T) {
	s, bot, _ := newTestServer("")
	bot.On("ResolveUser", mock.Anything, "RAddr").Return("u1", true, nil)
	bot.On("ResolveUser", mock.Anything, "RNone").Return("", false, nil)

	w := do(s, http.MethodGet, "/api/v1/addresses/RAddr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", decode(t, w)["discord_id"])

	w = do(s, http.MethodGet, "/api/v1/addresses/RNone", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngestDeposit(t *testing.T) {
	s, bot, _ := newTestServer("")
	expected := &models.Deposit{TxHash: "TX1", Address: "RAddr", Amount: 200_000_000}
	bot.On("IngestDeposit", mock.Anything, expected).
		Return(&models.Transaction{UUID: "event", DiscordID: "u1"}, nil).Once()
	bot.On("IngestDeposit", mock.Anything, expected).
		Return(nil, models.ErrDepositAlreadyProcessed).Once()

	body := DepositRequest{TxHash: "TX1", Address: "RAddr", Amount: "2"}
	w := do(s, http.MethodPost, "/api/v1/deposits", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "event", decode(t, w)["event_id"])

	w = do(s, http.MethodPost, "/api/v1/deposits", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(s, http.MethodPost, "/api/v1/deposits", DepositRequest{TxHash: "TX2", Amount: "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodPost, "/api/v1/deposits", DepositRequest{TxHash: "TX2", Address: "RAddr", Amount: "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	bot.AssertExpectations(t)
}

func TestDepositStatus(t *testing.T) {
	s, bot, _ := newTestServer("")
	bot.On("IsDepositProcessed", mock.Anything, "TX1").Return(true, nil)

	w := do(s, http.MethodGet, "/api/v1/deposits/TX1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["processed"])
}

func TestWithdraw(t *testing.T) {
	s, bot, _ := newTestServer("")
	bot.On("Withdraw", mock.Anything, "u1", "RAddr", models.Amount(50_000_000)).Return(&models.Withdrawal{
		EventID: "event", UserID: "u1", Address: "RAddr", Amount: 50_000_000, Fee: 10_000, Opid: "opid", TxHash: "tx",
	}, nil).Once()
	bot.On("Withdraw", mock.Anything, "u1", "RAddr", models.Amount(900_000_000)).Return(nil, models.ErrInsufficientFunds).Once()

	w := do(s, http.MethodPost, "/api/v1/withdrawals", WithdrawRequest{DiscordID: "u1", Address: "RAddr", Amount: "0.5"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp WithdrawResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "opid", resp.Opid)
	assert.Equal(t, int64(10_000), resp.Fee.Sats)

	w = do(s, http.MethodPost, "/api/v1/withdrawals", WithdrawRequest{DiscordID: "u1", Address: "RAddr", Amount: "9"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Insufficient balance", decode(t, w)["error"])
}

func TestEvent(t *testing.T) {
	s, bot, _ := newTestServer("")
	sender := "s"
	bot.On("GetEvent", mock.Anything, "event").Return([]*models.Transaction{
		{UUID: "event", DiscordID: "a", Counterparty: &sender, TransactionAction: models.ActionTipRole, Amount: 50},
		{UUID: "event", DiscordID: "b", Counterparty: &sender, TransactionAction: models.ActionTipRole, Amount: 50},
	}, nil).Once()
	bot.On("GetEvent", mock.Anything, "missing").Return(nil, models.ErrNotFound).Once()

	w := do(s, http.MethodGet, "/api/v1/events/event", nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decode(t, w)["transactions"].([]interface{})
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[1].(map[string]interface{})["discord_id"])

	w = do(s, http.MethodGet, "/api/v1/events/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	bot.AssertExpectations(t)
}

func TestTipFiltersBots(t *testing.T) {
	s, bot, _ := newTestServer("")
	bot.On("Distribute", mock.Anything, &models.DistributionRequest{
		Sender:     "s",
		Amount:     100,
		Recipients: []string{"a", "b"},
		Kind:       models.ActionTipRole,
		ChannelID:  "c",
	}).Return(&models.DistributionResult{
		Outcome: models.OutcomeDistributed, EventID: "event", Total: 100, PerRecipient: 50, RecipientCount: 2,
	}, nil).Once()

	w := do(s, http.MethodPost, "/api/v1/tips", TipRequest{
		Sender:     "s",
		Recipients: []Recipient{{ID: "a"}, {ID: "bot", Bot: true}, {ID: "b"}, {ID: "a"}},
		Kind:       "tip-role",
		Amount:     "0.000001",
		ChannelID:  "c",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp TipResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "distributed", resp.Outcome)
	assert.Equal(t, int64(50), resp.PerRecipient.Sats)
	bot.AssertExpectations(t)
}

func TestTipErrors(t *testing.T) {
	s, bot, _ := newTestServer("")
	bot.On("Distribute", mock.Anything, mock.Anything).Return(nil, models.ErrAmountTooSmall).Once()

	w := do(s, http.MethodPost, "/api/v1/tips", TipRequest{Sender: "s", Recipients: []Recipient{{ID: "a"}}, Amount: "0.00000001"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(s, http.MethodPost, "/api/v1/tips", TipRequest{Sender: "s", Recipients: []Recipient{{ID: "a"}}, Kind: "deposit", Amount: "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReactdrops(t *testing.T) {
	s, _, drops := newTestServer("")
	info := &reactdrop.SessionInfo{ID: "drop", Sender: "s", ChannelID: "c", State: reactdrop.StateCountingDown}
	drops.On("Start", mock.Anything, &reactdrop.Request{
		Sender: "s", ChannelID: "c", Emoji: "🎉", Amount: 100_000_000, Time: 5, Unit: reactdrop.Minutes,
	}).Return(info, nil).Once()
	drops.On("List", mock.Anything).Return([]*reactdrop.SessionInfo{info}, nil).Once()
	drops.On("Cancel", mock.Anything, "drop").Return(nil).Once()
	drops.On("Cancel", mock.Anything, "gone").Return(models.ErrNotFound).Once()

	w := do(s, http.MethodPost, "/api/v1/reactdrops", ReactdropRequest{
		Sender: "s", ChannelID: "c", Emoji: "🎉", Amount: "1", Time: 5, Unit: "m",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "drop", decode(t, w)["id"])

	w = do(s, http.MethodGet, "/api/v1/reactdrops", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["reactdrops"], 1)

	w = do(s, http.MethodDelete, "/api/v1/reactdrops/drop", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(s, http.MethodDelete, "/api/v1/reactdrops/gone", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodPost, "/api/v1/reactdrops", ReactdropRequest{
		Sender: "s", ChannelID: "c", Emoji: "🎉", Amount: "1", Time: 5, Unit: "days",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	drops.AssertExpectations(t)
}

func TestErrorResponseHidesDetails(t *testing.T) {
	status, msg := errorResponse(models.ErrPersistence)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Something went wrong", msg)
}
