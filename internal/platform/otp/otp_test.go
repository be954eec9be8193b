package otp

import (
	"context"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/docmatch/docmatch/internal/platform/notification"
)

var codeInBody = regexp.MustCompile(`\b[0-9]{6}\b`)

func newTestService(t *testing.T) (*Service, *notification.MockSMSSender) {
	t.Helper()
	sms := &notification.MockSMSSender{}
	svc := NewService(NewMemoryStore(), notification.NewNotifier(sms, nil), 5*time.Minute, zerolog.Nop())
	return svc, sms
}

func sentCode(t *testing.T, sms *notification.MockSMSSender) string {
	t.Helper()
	calls := sms.Calls()
	require.NotEmpty(t, calls)
	code := codeInBody.FindString(calls[len(calls)-1].Body)
	require.NotEmpty(t, code)
	return code
}

func TestNormalizePhone(t *testing.T) {
	svc, _ := newTestService(t)
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"9876543210", "+919876543210", true},
		{"+15551234567", "+15551234567", true},
		{" 98765-43210 ", "+919876543210", true},
		{"12345", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		got, err := svc.NormalizePhone(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			require.Equal(t, tt.want, got)
		} else {
			require.ErrorIs(t, err, ErrInvalidPhone, tt.in)
		}
	}
}

func TestSendAndVerify(t *testing.T) {
	svc, sms := newTestService(t)
	ctx := context.Background()

	res, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.ReferenceID)
	require.Equal(t, "+919876543210", sms.Calls()[0].To)

	code := sentCode(t, sms)
	ok, err := svc.Verify(ctx, "+919876543210", code)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.Verify(ctx, "9876543210", code)
	require.NoError(t, err)
	require.False(t, ok, "code must be single-use")
}

func TestVerify_WrongCodeKeepsValidCode(t *testing.T) {
	svc, sms := newTestService(t)
	ctx := context.Background()
	_, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)
	code := sentCode(t, sms)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	ok, err := svc.Verify(ctx, "9876543210", wrong)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.Verify(ctx, "9876543210", code)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerify_ResendReplacesCode(t *testing.T) {
	svc, sms := newTestService(t)
	ctx := context.Background()
	svc.Send(ctx, "9876543210")
	first := sentCode(t, sms)
	svc.Send(ctx, "9876543210")
	second := sentCode(t, sms)
	if first == second {
		t.Skip("random codes collided")
	}
	ok, _ := svc.Verify(ctx, "9876543210", first)
	require.False(t, ok)
	ok, _ = svc.Verify(ctx, "9876543210", second)
	require.True(t, ok)
}

func TestVerify_MalformedInput(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Verify(context.Background(), "9876543210", "12ab")
	require.ErrorIs(t, err, ErrInvalidCode)
	_, err = svc.Verify(context.Background(), "555", "123456")
	require.ErrorIs(t, err, ErrInvalidPhone)
}

func TestSend_SMSFailure(t *testing.T) {
	sms := &notification.MockSMSSender{ShouldFail: true, FailError: "carrier down"}
	svc := NewService(NewMemoryStore(), notification.NewNotifier(sms, nil), time.Minute, zerolog.Nop())
	_, err := svc.Send(context.Background(), "9876543210")
	require.ErrorContains(t, err, "carrier down")
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "k", "123456", time.Minute))
	now = now.Add(time.Minute)
	ok, err := store.Consume(ctx, "k", "123456")
	require.ErrorIs(t, err, ErrNoCode)
	require.False(t, ok)
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Regexp(t, `^[0-9]{6}$`, code)
	}
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	c, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	defer c.Close()

	store := NewRedisStore(c)
	store.prefix = "otp-test:" + time.Now().Format("150405.000") + ":"
	require.NoError(t, store.Save(ctx, "+15550001111", "424242", time.Minute))

	ok, err := store.Consume(ctx, "+15550001111", "000000")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = store.Consume(ctx, "+15550001111", "424242")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = store.Consume(ctx, "+15550001111", "424242")
	require.ErrorIs(t, err, ErrNoCode)
}
