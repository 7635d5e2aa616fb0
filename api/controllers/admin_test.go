package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/internal/deposits"
	"github.com/vantagefund/wallet-engine/internal/withdrawals"
	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
)

type stubWithdrawalService struct {
	decided *withdrawals.DecideResult
	err     error

	gotDecide withdrawals.DecideInput
}

func (s *stubWithdrawalService) Create(ctx context.Context, input withdrawals.CreateInput) (*withdrawals.CreateResult, error) {
	return nil, s.err
}

func (s *stubWithdrawalService) Decide(ctx context.Context, input withdrawals.DecideInput) (*withdrawals.DecideResult, error) {
	s.gotDecide = input
	return s.decided, s.err
}

func (s *stubWithdrawalService) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Withdrawal, error) {
	return nil, s.err
}

func (s *stubWithdrawalService) CreateMethod(ctx context.Context, input withdrawals.CreateMethodInput) (*models.WithdrawalMethod, error) {
	return nil, s.err
}

func (s *stubWithdrawalService) ListMethods(ctx context.Context, userID uuid.UUID) ([]models.WithdrawalMethod, error) {
	return nil, s.err
}

func decimalFromString(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parsing decimal %q: %v", value, err)
	}
	return parsed
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestAdminDepositDecidePassesActor(t *testing.T) {
	actorID := uuid.New()
	depositID := uuid.New()
	svc := &stubDepositService{decided: &deposits.DecideResult{Applied: true}}
	handler := AdminDepositDecide(svc, nil)

	body := `{"decision":"confirm","actual_amount":"99.5"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/admin/deposits/"+depositID.String()+"/decision", strings.NewReader(body)), actorID, enums.RoleSupport)
	req = withURLParam(req, "id", depositID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotDecide.DepositID != depositID {
		t.Fatalf("expected deposit %s got %s", depositID, svc.gotDecide.DepositID)
	}
	if svc.gotDecide.ActorUserID != actorID || svc.gotDecide.ActorRole != enums.RoleSupport {
		t.Fatal("expected actor identity forwarded to service")
	}
	if svc.gotDecide.ActualAmount == nil || !svc.gotDecide.ActualAmount.Equal(decimalFromString(t, "99.5")) {
		t.Fatal("expected actual amount forwarded")
	}
}

func TestAdminDepositDecideRejectsUnknownDecision(t *testing.T) {
	handler := AdminDepositDecide(&stubDepositService{}, nil)

	body := `{"decision":"escalate"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/decision", strings.NewReader(body)), uuid.New(), enums.RoleSupport)
	req = withURLParam(req, "id", uuid.New().String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminDepositDecideRejectsBadID(t *testing.T) {
	handler := AdminDepositDecide(&stubDepositService{}, nil)

	body := `{"decision":"confirm"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/decision", strings.NewReader(body)), uuid.New(), enums.RoleSupport)
	req = withURLParam(req, "id", "not-a-uuid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminWithdrawalDecideStateConflict(t *testing.T) {
	svc := &stubWithdrawalService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal already approved")}
	handler := AdminWithdrawalDecide(svc, nil)

	body := `{"decision":"reject","reason":"fraud review"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/decision", strings.NewReader(body)), uuid.New(), enums.RoleSuperadmin)
	req = withURLParam(req, "id", uuid.New().String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestAdminWithdrawalDecideForwardsReason(t *testing.T) {
	svc := &stubWithdrawalService{decided: &withdrawals.DecideResult{Applied: true}}
	handler := AdminWithdrawalDecide(svc, nil)

	withdrawalID := uuid.New()
	body := `{"decision":"reject","reason":"limit abuse"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/decision", strings.NewReader(body)), uuid.New(), enums.RoleSupport)
	req = withURLParam(req, "id", withdrawalID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotDecide.WithdrawalID != withdrawalID {
		t.Fatalf("expected withdrawal %s got %s", withdrawalID, svc.gotDecide.WithdrawalID)
	}
	if svc.gotDecide.Reason == nil || *svc.gotDecide.Reason != "limit abuse" {
		t.Fatal("expected rejection reason forwarded")
	}
}
