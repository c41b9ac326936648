package usecase_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/amo-sbp-bridge/internal/entity"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/integration/alfabank"
)

// MockCRM - test double for the amoCRM collaborator
type MockCRM struct {
	mock.Mock
}

func (m *MockCRM) GetLead(ctx context.Context, leadID string) (*entity.Lead, error) {
	args := m.Called(ctx, leadID)
	if lead := args.Get(0); lead != nil {
		return lead.(*entity.Lead), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCRM) UpdateLeadField(ctx context.Context, leadID string, fieldID int, value string) error {
	args := m.Called(ctx, leadID, fieldID, value)
	return args.Error(0)
}

func (m *MockCRM) AddNote(ctx context.Context, leadID, text string) error {
	args := m.Called(ctx, leadID, text)
	return args.Error(0)
}

func (m *MockCRM) AddTag(ctx context.Context, leadID, name string) error {
	args := m.Called(ctx, leadID, name)
	return args.Error(0)
}

func (m *MockCRM) ChangeStatus(ctx context.Context, leadID string, statusID int) error {
	args := m.Called(ctx, leadID, statusID)
	return args.Error(0)
}

// MockGateway - test double for the Alfa-Bank collaborator
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) RegisterOrder(ctx context.Context, amount int64, orderNumber, description string) (alfabank.RegisterOrderOutput, error) {
	args := m.Called(ctx, amount, orderNumber, description)
	return args.Get(0).(alfabank.RegisterOrderOutput), args.Error(1)
}

func (m *MockGateway) GetOrderStatus(ctx context.Context, orderNumber string) (int, error) {
	args := m.Called(ctx, orderNumber)
	return args.Int(0), args.Error(1)
}

// MockNotifier - test double for the ops mail notice
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendPaymentReceived(leadID, leadName, orderNumber string, amountKopeks int64) error {
	args := m.Called(leadID, leadName, orderNumber, amountKopeks)
	return args.Error(0)
}
