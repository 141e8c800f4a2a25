package purchase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftsninja.ru/gifts-bot/internal/features/accounts"
)

// stubSender возвращает заготовленные ошибки по очереди,
// затем — успех.
type stubSender struct {
	errs  []error
	calls int
}

func (s *stubSender) SendGift(_ context.Context, _ string, _ int64, _ string) error {
	defer func() { s.calls++ }()
	if s.calls < len(s.errs) {
		return s.errs[s.calls]
	}
	return nil
}

// stubLedger записывает списания.
type stubLedger struct {
	deltas []int64
	err    error
}

func (l *stubLedger) AdjustBalance(_ context.Context, _ int64, _ accounts.Identity, delta int64) (int64, error) {
	l.deltas = append(l.deltas, delta)
	return 0, l.err
}

func newTestExecutor(sender Sender, ledger Ledger) (*Executor, *[]time.Duration) {
	e := NewExecutor(1, ledger, map[accounts.Identity]Sender{accounts.IdentityBot: sender}, 3, false)
	var slept []time.Duration
	e.sleep = func(_ context.Context, d time.Duration) bool {
		slept = append(slept, d)
		return true
	}
	return e, &slept
}

func selfRequest(price int64) Request {
	target := int64(1)
	return Request{
		Identity:     accounts.IdentityBot,
		GiftID:       "g1",
		Price:        price,
		TargetUserID: &target,
	}
}

func TestBuySuccessDebitsLedger(t *testing.T) {
	sender := &stubSender{}
	ledger := &stubLedger{}
	e, slept := newTestExecutor(sender, ledger)

	ok := e.Buy(context.Background(), selfRequest(500))

	assert.True(t, ok)
	assert.Equal(t, 1, sender.calls)
	require.Len(t, ledger.deltas, 1)
	assert.Equal(t, int64(-500), ledger.deltas[0])
	assert.Empty(t, *slept)
}

func TestBuyFloodWaitDoesNotConsumeAttempts(t *testing.T) {
	// Пять флуд-пауз подряд — больше, чем попыток; затем успех.
	flood := &FloodError{RetryAfter: 7 * time.Second}
	sender := &stubSender{errs: []error{flood, flood, flood, flood, flood}}
	ledger := &stubLedger{}
	e, slept := newTestExecutor(sender, ledger)

	ok := e.Buy(context.Background(), selfRequest(500))

	assert.True(t, ok)
	assert.Equal(t, 6, sender.calls)
	require.Len(t, *slept, 5)
	for _, d := range *slept {
		assert.Equal(t, 7*time.Second, d)
	}
}

func TestBuyPermanentErrorStopsImmediately(t *testing.T) {
	sender := &stubSender{errs: []error{&PermanentError{Reason: "получатель не найден"}}}
	ledger := &stubLedger{}
	e, slept := newTestExecutor(sender, ledger)

	ok := e.Buy(context.Background(), selfRequest(500))

	assert.False(t, ok)
	assert.Equal(t, 1, sender.calls)
	assert.Empty(t, ledger.deltas)
	assert.Empty(t, *slept)
}

func TestBuyTransientErrorsExhaustRetries(t *testing.T) {
	transient := errors.New("timeout")
	sender := &stubSender{errs: []error{transient, transient, transient}}
	ledger := &stubLedger{}
	e, slept := newTestExecutor(sender, ledger)

	ok := e.Buy(context.Background(), selfRequest(500))

	assert.False(t, ok)
	assert.Equal(t, 3, sender.calls)
	assert.Empty(t, ledger.deltas)
	// Паузы 2^1 и 2^2; после последней попытки паузы нет
	require.Len(t, *slept, 2)
	assert.Equal(t, 2*time.Second, (*slept)[0])
	assert.Equal(t, 4*time.Second, (*slept)[1])
}

func TestBuyTransientThenSuccess(t *testing.T) {
	sender := &stubSender{errs: []error{errors.New("timeout")}}
	ledger := &stubLedger{}
	e, _ := newTestExecutor(sender, ledger)

	ok := e.Buy(context.Background(), selfRequest(500))

	assert.True(t, ok)
	assert.Equal(t, 2, sender.calls)
	require.Len(t, ledger.deltas, 1)
}

func TestBuyRejectsAmbiguousTarget(t *testing.T) {
	sender := &stubSender{}
	ledger := &stubLedger{}
	e, _ := newTestExecutor(sender, ledger)

	target := int64(1)
	channel := "@durov"

	// Оба заданы
	ok := e.Buy(context.Background(), Request{
		Identity:     accounts.IdentityBot,
		GiftID:       "g1",
		Price:        500,
		TargetUserID: &target,
		TargetChatID: &channel,
	})
	assert.False(t, ok)

	// Ни один не задан
	ok = e.Buy(context.Background(), Request{
		Identity: accounts.IdentityBot,
		GiftID:   "g1",
		Price:    500,
	})
	assert.False(t, ok)

	assert.Equal(t, 0, sender.calls)
}

func TestBuyUnknownIdentity(t *testing.T) {
	sender := &stubSender{}
	ledger := &stubLedger{}
	e, _ := newTestExecutor(sender, ledger)

	req := selfRequest(500)
	req.Identity = accounts.IdentityUserbot // отправитель не зарегистрирован

	assert.False(t, e.Buy(context.Background(), req))
	assert.Equal(t, 0, sender.calls)
}

func TestBuyDryRunNeverTouchesAnything(t *testing.T) {
	sender := &stubSender{errs: []error{errors.New("сеть должна быть не нужна")}}
	ledger := &stubLedger{}
	e := NewExecutor(1, ledger, map[accounts.Identity]Sender{accounts.IdentityBot: sender}, 3, true)

	e.randN = func(int) int { return 1 }
	assert.True(t, e.Buy(context.Background(), selfRequest(500)))

	e.randN = func(int) int { return 0 }
	assert.False(t, e.Buy(context.Background(), selfRequest(500)))

	assert.Equal(t, 0, sender.calls)
	assert.Empty(t, ledger.deltas)
}

func TestBuyCancelledContextDuringFlood(t *testing.T) {
	flood := &FloodError{RetryAfter: time.Hour}
	sender := &stubSender{errs: []error{flood}}
	ledger := &stubLedger{}
	e := NewExecutor(1, ledger, map[accounts.Identity]Sender{accounts.IdentityBot: sender}, 3, false)
	e.sleep = func(_ context.Context, _ time.Duration) bool { return false }

	assert.False(t, e.Buy(context.Background(), selfRequest(500)))
	assert.Equal(t, 1, sender.calls)
}
