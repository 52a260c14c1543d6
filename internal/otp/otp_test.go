package otp

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockCodeSender struct{ mock.Mock }

func (m *MockCodeSender) SendVerificationCode(ctx context.Context, toEmail, toName, code string) error {
	args := m.Called(ctx, toEmail, toName, code)
	return args.Error(0)
}

func newTestService(sender CodeSender) *Service {
	logger, _ := zap.NewDevelopment()
	return NewService(sender, logger)
}

func TestGenerate(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestService_IssueAndValidate(t *testing.T) {
	ctx := context.Background()

	var issued string
	sender := new(MockCodeSender)
	sender.On("SendVerificationCode", ctx, "jane@example.com", "Jane", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { issued = args.String(3) }).
		Return(nil)

	svc := newTestService(sender)
	require.NoError(t, svc.Issue(ctx, "Jane@Example.com ", "Jane"))
	assert.True(t, svc.Active())

	t.Run("CorrectCode", func(t *testing.T) {
		assert.NoError(t, svc.Validate("jane@example.com", issued))
	})

	t.Run("EmailIsCaseInsensitive", func(t *testing.T) {
		assert.NoError(t, svc.Validate("JANE@example.COM", issued))
	})

	t.Run("ValidateDoesNotConsume", func(t *testing.T) {
		assert.NoError(t, svc.Validate("jane@example.com", issued))
		assert.True(t, svc.Active())
	})

	t.Run("DifferentEmail", func(t *testing.T) {
		assert.ErrorIs(t, svc.Validate("other@example.com", issued), ErrEmailMismatch)
	})

	t.Run("ShortCode", func(t *testing.T) {
		assert.ErrorIs(t, svc.Validate("jane@example.com", "123"), ErrIncompleteCode)
	})

	t.Run("WrongCode", func(t *testing.T) {
		wrong := "000000"
		if wrong == issued {
			wrong = "000001"
		}
		assert.ErrorIs(t, svc.Validate("jane@example.com", wrong), ErrIncorrectCode)
	})

	sender.AssertExpectations(t)
}

func TestService_Validate_NoChallenge(t *testing.T) {
	svc := newTestService(new(MockCodeSender))
	assert.ErrorIs(t, svc.Validate("jane@example.com", "123456"), ErrNoActiveChallenge)
	assert.False(t, svc.Active())
}

func TestService_Validate_Expired(t *testing.T) {
	ctx := context.Background()
	sender := new(MockCodeSender)
	sender.On("SendVerificationCode", ctx, "jane@example.com", "Jane", mock.Anything).Return(nil)

	logger, _ := zap.NewDevelopment()
	svc := NewServiceWithExpiry(sender, logger, 10*time.Minute)
	require.NoError(t, svc.Issue(ctx, "jane@example.com", "Jane"))

	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	assert.ErrorIs(t, svc.Validate("jane@example.com", svc.current.Code), ErrExpired)
}

func TestService_ReissueReplacesChallenge(t *testing.T) {
	ctx := context.Background()

	var codes []string
	sender := new(MockCodeSender)
	sender.On("SendVerificationCode", ctx, "jane@example.com", "Jane", mock.Anything).
		Run(func(args mock.Arguments) { codes = append(codes, args.String(3)) }).
		Return(nil)

	svc := newTestService(sender)
	require.NoError(t, svc.Issue(ctx, "jane@example.com", "Jane"))
	require.NoError(t, svc.Issue(ctx, "jane@example.com", "Jane"))
	require.Len(t, codes, 2)

	// The second issue invalidates the first code.
	if codes[0] != codes[1] {
		assert.ErrorIs(t, svc.Validate("jane@example.com", codes[0]), ErrIncorrectCode)
	}
	assert.NoError(t, svc.Validate("jane@example.com", codes[1]))
}

func TestService_Issue_DeliveryFailureDiscardsChallenge(t *testing.T) {
	ctx := context.Background()
	sender := new(MockCodeSender)
	sender.On("SendVerificationCode", ctx, "jane@example.com", "Jane", mock.Anything).
		Return(errors.New("smtp unavailable"))

	svc := newTestService(sender)
	err := svc.Issue(ctx, "jane@example.com", "Jane")
	require.Error(t, err)
	assert.False(t, svc.Active())
	assert.ErrorIs(t, svc.Validate("jane@example.com", "123456"), ErrNoActiveChallenge)
}

func TestService_ConsumeAndReset(t *testing.T) {
	ctx := context.Background()
	sender := new(MockCodeSender)
	sender.On("SendVerificationCode", ctx, "jane@example.com", "Jane", mock.Anything).Return(nil)

	svc := newTestService(sender)
	require.NoError(t, svc.Issue(ctx, "jane@example.com", "Jane"))

	svc.Consume()
	assert.False(t, svc.Active())
	assert.ErrorIs(t, svc.Validate("jane@example.com", "123456"), ErrNoActiveChallenge)

	svc.Reset()
	assert.False(t, svc.Active())
}
