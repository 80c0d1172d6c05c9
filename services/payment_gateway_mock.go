package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPaymentGateway is a testify mock of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

// CreatePaymentIntent records the call and returns the configured result
func (m *MockPaymentGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	args := m.Called(ctx, req)
	intent, _ := args.Get(0).(*Intent)
	return intent, args.Error(1)
}
