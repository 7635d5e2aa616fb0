package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/api/middleware"
	"github.com/vantagefund/wallet-engine/internal/deposits"
	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
)

type stubDepositService struct {
	created *models.Deposit
	decided *deposits.DecideResult
	err     error

	gotCreate deposits.CreateInput
	gotDecide deposits.DecideInput
}

func (s *stubDepositService) Create(ctx context.Context, input deposits.CreateInput) (*models.Deposit, error) {
	s.gotCreate = input
	return s.created, s.err
}

func (s *stubDepositService) Decide(ctx context.Context, input deposits.DecideInput) (*deposits.DecideResult, error) {
	s.gotDecide = input
	return s.decided, s.err
}

func (s *stubDepositService) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Deposit, error) {
	return nil, s.err
}

func asActor(req *http.Request, userID uuid.UUID, role enums.Role) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func TestDepositCreateSuccess(t *testing.T) {
	userID := uuid.New()
	svc := &stubDepositService{created: &models.Deposit{ID: uuid.New(), UserID: userID}}
	handler := DepositCreate(svc, nil)

	body := `{"method":"bank_transfer","currency":"USDT","expected_amount":"250.00"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/deposits", strings.NewReader(body)), userID, enums.RoleUser)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotCreate.UserID != userID {
		t.Fatalf("expected caller id %s got %s", userID, svc.gotCreate.UserID)
	}
	if !svc.gotCreate.ExpectedAmount.Equal(decimal.RequireFromString("250.00")) {
		t.Fatalf("expected amount 250.00 got %s", svc.gotCreate.ExpectedAmount)
	}
	if svc.gotCreate.Currency != enums.CurrencyUSDT {
		t.Fatalf("expected USDT got %s", svc.gotCreate.Currency)
	}
}

func TestDepositCreateRejectsUnknownCurrency(t *testing.T) {
	handler := DepositCreate(&stubDepositService{}, nil)

	body := `{"method":"bank_transfer","currency":"EUR","expected_amount":"10"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/deposits", strings.NewReader(body)), uuid.New(), enums.RoleUser)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestDepositCreateRequiresIdentity(t *testing.T) {
	handler := DepositCreate(&stubDepositService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestDepositCreateRejectsUnknownFields(t *testing.T) {
	handler := DepositCreate(&stubDepositService{}, nil)

	body := `{"method":"bank_transfer","currency":"USD","expected_amount":"10","status":"confirmed"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/deposits", strings.NewReader(body)), uuid.New(), enums.RoleUser)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field got %d", rec.Code)
	}
}

func TestDepositCreatePropagatesServiceError(t *testing.T) {
	svc := &stubDepositService{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	handler := DepositCreate(svc, nil)

	body := `{"method":"bank_transfer","currency":"USD","expected_amount":"10"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/deposits", strings.NewReader(body)), uuid.New(), enums.RoleUser)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestDepositListReturnsEnvelope(t *testing.T) {
	handler := DepositList(&stubDepositService{}, nil)

	req := asActor(httptest.NewRequest(http.MethodGet, "/api/v1/deposits?limit=5", nil), uuid.New(), enums.RoleUser)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := envelope.Data["deposits"]; !ok {
		t.Fatal("expected deposits key in payload")
	}
}
