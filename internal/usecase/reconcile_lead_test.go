package usecase_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/amo-sbp-bridge/internal/entity"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/integration/alfabank"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/store"
	"github.com/xavierca1/amo-sbp-bridge/internal/usecase"
)

const (
	testPipelineID    = 300
	testStatusID      = 7001
	testCustomFieldID = 345678
)

func newReconcileUC(t *testing.T, crm *MockCRM, gateway *MockGateway) (*usecase.ReconcileLeadUseCase, *store.FileStore) {
	t.Helper()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "payments.json"))
	uc := usecase.NewReconcileLeadUseCase(crm, gateway, fs,
		testPipelineID, []int{testStatusID, 7002}, testCustomFieldID)
	return uc, fs
}

func reconcileInput(leadID string) usecase.ReconcileLeadInput {
	return usecase.ReconcileLeadInput{LeadID: leadID, StatusID: testStatusID, PipelineID: testPipelineID}
}

func testLead(price int64) *entity.Lead {
	return &entity.Lead{
		ID:         "42",
		Name:       "Доставка цветов — Мария",
		Price:      price,
		PipelineID: testPipelineID,
		StatusID:   testStatusID,
	}
}

func TestReconcileGuardRejectsOutsideScope(t *testing.T) {
	cases := []struct {
		name  string
		input usecase.ReconcileLeadInput
	}{
		{"wrong pipeline", usecase.ReconcileLeadInput{LeadID: "42", StatusID: testStatusID, PipelineID: 999}},
		{"status not allowed", usecase.ReconcileLeadInput{LeadID: "42", StatusID: 1, PipelineID: testPipelineID}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			crm := new(MockCRM)
			gateway := new(MockGateway)
			uc, fs := newReconcileUC(t, crm, gateway)

			outcome, err := uc.Execute(context.Background(), tc.input)

			require.NoError(t, err)
			assert.Equal(t, usecase.OutcomeSkipped, outcome)
			assert.Empty(t, fs.Load())
			crm.AssertNotCalled(t, "GetLead", mock.Anything, mock.Anything)
			gateway.AssertNotCalled(t, "RegisterOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestReconcileNoBudget(t *testing.T) {
	crm := new(MockCRM)
	gateway := new(MockGateway)
	uc, fs := newReconcileUC(t, crm, gateway)

	crm.On("GetLead", mock.Anything, "42").Return(testLead(0), nil)

	outcome, err := uc.Execute(context.Background(), reconcileInput("42"))

	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeNoAmount, outcome)
	assert.Empty(t, fs.Load())
	gateway.AssertNotCalled(t, "RegisterOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcileIdempotentIssuance(t *testing.T) {
	crm := new(MockCRM)
	gateway := new(MockGateway)
	uc, fs := newReconcileUC(t, crm, gateway)

	crm.On("GetLead", mock.Anything, "42").Return(testLead(50), nil)
	gateway.On("RegisterOrder", mock.Anything, int64(5000), mock.Anything, "Доставка цветов — Мария").
		Return(alfabank.RegisterOrderOutput{FormURL: "https://pay.example/form", OrderID: "md-1"}, nil)
	crm.On("UpdateLeadField", mock.Anything, "42", testCustomFieldID, mock.Anything).Return(nil)
	crm.On("AddNote", mock.Anything, "42", mock.Anything).Return(nil)

	outcome, err := uc.Execute(context.Background(), reconcileInput("42"))
	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeIssued, outcome)

	intent := fs.Load()["42"]
	assert.Equal(t, int64(5000), intent.Amount)
	assert.Equal(t, "md-1", intent.OrderID)
	assert.False(t, intent.CRMPending)

	// Duplicate webhook deliveries: same lead, same amount — no new link,
	// no new CRM write.
	for i := 0; i < 3; i++ {
		outcome, err = uc.Execute(context.Background(), reconcileInput("42"))
		require.NoError(t, err)
		assert.Equal(t, usecase.OutcomeUnchanged, outcome)
	}

	gateway.AssertNumberOfCalls(t, "RegisterOrder", 1)
	crm.AssertNumberOfCalls(t, "UpdateLeadField", 1)
	crm.AssertNumberOfCalls(t, "AddNote", 1)
}

func TestReconcileAmountDriftReissues(t *testing.T) {
	crm := new(MockCRM)
	gateway := new(MockGateway)
	uc, fs := newReconcileUC(t, crm, gateway)

	old := entity.NewPaymentIntent("42_A100", 5000, "https://pay.example/old", "md-old")
	old.CRMPending = false
	require.NoError(t, fs.Save(map[string]entity.PaymentIntent{"42": old}))

	crm.On("GetLead", mock.Anything, "42").Return(testLead(70), nil)
	gateway.On("RegisterOrder", mock.Anything, int64(7000), mock.Anything, mock.Anything).
		Return(alfabank.RegisterOrderOutput{FormURL: "https://pay.example/new", OrderID: "md-new"}, nil)
	crm.On("UpdateLeadField", mock.Anything, "42", testCustomFieldID, mock.Anything).Return(nil)
	crm.On("AddNote", mock.Anything, "42", mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "сумма изменена")
	})).Return(nil)

	outcome, err := uc.Execute(context.Background(), reconcileInput("42"))

	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeReissued, outcome)

	payments := fs.Load()
	require.Len(t, payments, 1, "old intent must be replaced, not retained")
	intent := payments["42"]
	assert.Equal(t, int64(7000), intent.Amount)
	assert.Equal(t, "md-new", intent.OrderID)
	assert.NotEqual(t, "42_A100", intent.OrderNumber)
	gateway.AssertNumberOfCalls(t, "RegisterOrder", 1)
}

func TestReconcileResumesPendingCRMWrite(t *testing.T) {
	crm := new(MockCRM)
	gateway := new(MockGateway)
	uc, fs := newReconcileUC(t, crm, gateway)

	crm.On("GetLead", mock.Anything, "42").Return(testLead(50), nil)
	gateway.On("RegisterOrder", mock.Anything, int64(5000), mock.Anything, mock.Anything).
		Return(alfabank.RegisterOrderOutput{FormURL: "https://pay.example/form", OrderID: "md-1"}, nil)
	crm.On("UpdateLeadField", mock.Anything, "42", testCustomFieldID, mock.Anything).
		Return(errors.New("amocrm: 502")).Once()
	crm.On("UpdateLeadField", mock.Anything, "42", testCustomFieldID, mock.Anything).Return(nil)
	crm.On("AddNote", mock.Anything, "42", mock.Anything).Return(nil)

	// First pass: link minted, CRM write fails. The provisional intent
	// must already be persisted.
	_, err := uc.Execute(context.Background(), reconcileInput("42"))
	require.Error(t, err)
	assert.True(t, usecase.IsTechnicalError(err))

	intent := fs.Load()["42"]
	assert.Equal(t, "md-1", intent.OrderID)
	assert.True(t, intent.CRMPending)

	// Retried pass: resumes the CRM write without minting a second link.
	outcome, err := uc.Execute(context.Background(), reconcileInput("42"))
	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeResumed, outcome)
	assert.False(t, fs.Load()["42"].CRMPending)
	gateway.AssertNumberOfCalls(t, "RegisterOrder", 1)
}

func TestReconcileGatewayFailureSurfaces(t *testing.T) {
	crm := new(MockCRM)
	gateway := new(MockGateway)
	uc, fs := newReconcileUC(t, crm, gateway)

	crm.On("GetLead", mock.Anything, "42").Return(testLead(50), nil)
	gateway.On("RegisterOrder", mock.Anything, int64(5000), mock.Anything, mock.Anything).
		Return(alfabank.RegisterOrderOutput{}, errors.New("alfabank: timeout"))

	_, err := uc.Execute(context.Background(), reconcileInput("42"))

	require.Error(t, err)
	assert.True(t, usecase.IsTechnicalError(err))
	assert.Empty(t, fs.Load(), "no intent persisted when the gateway never minted a link")
	crm.AssertNotCalled(t, "UpdateLeadField", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
