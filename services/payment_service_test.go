package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentIntent_Success(t *testing.T) {
	gateway := new(MockPaymentGateway)
	gateway.On("CreatePaymentIntent", mock.Anything, IntentRequest{
		AmountMinor: 3105,
		Currency:    "USD",
		OrderID:     "order-1",
		UserID:      "42",
	}).Return(&Intent{ID: "pi_1", ClientSecret: "pi_1_secret_abc"}, nil).Once()

	service := NewPaymentService(gateway, "usd", time.Second, log.DefaultLogger)
	secret, err := service.CreatePaymentIntent(context.Background(), PaymentIntentInput{
		Amount:  decimal.RequireFromString("31.05"),
		OrderID: "order-1",
		UserID:  42,
	})

	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret_abc", secret)
	gateway.AssertExpectations(t)
}

func TestCreatePaymentIntent_RoundsToMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		minor  int64
	}{
		{"10", 1000},
		{"0.015", 2},
		{"19.994", 1999},
		{"19.995", 2000},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			gateway := new(MockPaymentGateway)
			gateway.On("CreatePaymentIntent", mock.Anything, mock.MatchedBy(func(req IntentRequest) bool {
				return req.AmountMinor == tt.minor
			})).Return(&Intent{ID: "pi", ClientSecret: "secret"}, nil)

			service := NewPaymentService(gateway, "USD", time.Second, log.DefaultLogger)
			_, err := service.CreatePaymentIntent(context.Background(), PaymentIntentInput{
				Amount:  decimal.RequireFromString(tt.amount),
				OrderID: "order-1",
			})
			require.NoError(t, err)
			gateway.AssertExpectations(t)
		})
	}
}

func TestCreatePaymentIntent_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input PaymentIntentInput
	}{
		{"missing amount", PaymentIntentInput{OrderID: "order-1"}},
		{"negative amount", PaymentIntentInput{Amount: decimal.NewFromInt(-5), OrderID: "order-1"}},
		{"missing order id", PaymentIntentInput{Amount: decimal.NewFromInt(5)}},
		{"unsupported currency", PaymentIntentInput{Amount: decimal.NewFromInt(5), OrderID: "order-1", Currency: "JPY"}},
		{"below one cent", PaymentIntentInput{Amount: decimal.RequireFromString("0.001"), OrderID: "order-1"}},
		{"above maximum charge", PaymentIntentInput{Amount: decimal.RequireFromString("1000000.00"), OrderID: "order-1"}},
		{"beyond int64 minor units", PaymentIntentInput{Amount: decimal.RequireFromString("184467440737095516.17"), OrderID: "order-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := new(MockPaymentGateway)
			service := NewPaymentService(gateway, "USD", time.Second, log.DefaultLogger)

			_, err := service.CreatePaymentIntent(context.Background(), tt.input)

			assertErrorCode(t, err, CodeInvalidInput)
			gateway.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything)
		})
	}
}

func TestCreatePaymentIntent_CurrencyIsNormalized(t *testing.T) {
	gateway := new(MockPaymentGateway)
	gateway.On("CreatePaymentIntent", mock.Anything, mock.MatchedBy(func(req IntentRequest) bool {
		return req.Currency == "EUR"
	})).Return(&Intent{ID: "pi", ClientSecret: "secret"}, nil).Once()

	service := NewPaymentService(gateway, "USD", time.Second, log.DefaultLogger)
	_, err := service.CreatePaymentIntent(context.Background(), PaymentIntentInput{
		Amount:   decimal.NewFromInt(12),
		OrderID:  "order-1",
		Currency: " eur ",
	})

	require.NoError(t, err)
	gateway.AssertExpectations(t)
}

func TestCreatePaymentIntent_GatewayTimeoutIsRetryable(t *testing.T) {
	gateway := new(MockPaymentGateway)
	gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	service := NewPaymentService(gateway, "USD", 10*time.Millisecond, log.DefaultLogger)
	_, err := service.CreatePaymentIntent(context.Background(), PaymentIntentInput{
		Amount:  decimal.NewFromInt(20),
		OrderID: "order-1",
	})

	assertErrorCode(t, err, CodeGatewayError)
	serviceErr, _ := AsError(err)
	assert.True(t, serviceErr.Retryable)
	assert.Equal(t, "Payment gateway timed out", serviceErr.Message)
}

func TestCreatePaymentIntent_GatewayFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"rejected by gateway", &GatewayRejection{Code: "amount_too_small", Message: "Amount must be at least 50 cents"}, false},
		{"gateway unreachable", assert.AnError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := new(MockPaymentGateway)
			gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything).Return(nil, tt.err)

			service := NewPaymentService(gateway, "USD", time.Second, log.DefaultLogger)
			secret, err := service.CreatePaymentIntent(context.Background(), PaymentIntentInput{
				Amount:  decimal.NewFromInt(20),
				OrderID: "order-1",
			})

			assert.Empty(t, secret)
			assertErrorCode(t, err, CodeGatewayError)
			serviceErr, _ := AsError(err)
			assert.Equal(t, tt.retryable, serviceErr.Retryable)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
