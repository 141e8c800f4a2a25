package sniper

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftsninja.ru/gifts-bot/internal/features/accounts"
	"giftsninja.ru/gifts-bot/internal/features/catalog"
	"giftsninja.ru/gifts-bot/internal/features/profiles"
	"giftsninja.ru/gifts-bot/internal/features/purchase"
)

const testOwner = int64(1)

// stubProfileStore держит профили в памяти и ведёт лог операций.
type stubProfileStore struct {
	profiles []profiles.Profile
	applied  []string // gift_id в порядке применения
	done     []int64
}

func (s *stubProfileStore) List(_ context.Context, _ int64) ([]profiles.Profile, error) {
	out := make([]profiles.Profile, len(s.profiles))
	copy(out, s.profiles)
	return out, nil
}

func (s *stubProfileStore) ApplyPurchase(_ context.Context, profileID int64, giftID string, price int64) (int, int64, error) {
	for i := range s.profiles {
		if s.profiles[i].ID == profileID {
			s.profiles[i].Bought++
			s.profiles[i].Spent += price
			s.applied = append(s.applied, giftID)
			return s.profiles[i].Bought, s.profiles[i].Spent, nil
		}
	}
	panic("профиль не найден")
}

func (s *stubProfileStore) MarkDone(_ context.Context, profileID int64) error {
	s.done = append(s.done, profileID)
	return nil
}

// stubAccountStore — аккаунт владельца в памяти.
type stubAccountStore struct {
	acct         accounts.Account
	setActive    []bool
	setUserbot   []bool
	refreshCalls int
}

func (s *stubAccountStore) Get(_ context.Context, _ int64) (*accounts.Account, error) {
	a := s.acct
	return &a, nil
}

func (s *stubAccountStore) SetActive(_ context.Context, _ int64, active bool) error {
	s.setActive = append(s.setActive, active)
	s.acct.Active = active
	return nil
}

func (s *stubAccountStore) SetUserbotEnabled(_ context.Context, _ int64, enabled bool) error {
	s.setUserbot = append(s.setUserbot, enabled)
	s.acct.UserbotEnabled = enabled
	return nil
}

func (s *stubAccountStore) RefreshBalances(_ context.Context, _ int64) (int64, error) {
	s.refreshCalls++
	return s.acct.Balance, nil
}

// stubBuyer отдаёт заготовленные исходы по очереди; дальше — успех.
type stubBuyer struct {
	results  []bool
	requests []purchase.Request
}

func (b *stubBuyer) Buy(_ context.Context, req purchase.Request) bool {
	b.requests = append(b.requests, req)
	if len(b.requests)-1 < len(b.results) {
		return b.results[len(b.requests)-1]
	}
	return true
}

// stubCandidates всегда отдаёт один и тот же список, прогнанный через фильтр.
type stubCandidates struct {
	gifts []catalog.Gift
}

func (c *stubCandidates) BestList(_ context.Context, f catalog.Filter) []catalog.Gift {
	filtered := f.Apply(c.gifts)
	catalog.SortByPriceDesc(filtered)
	return filtered
}

// stubNotifier копит уведомления.
type stubNotifier struct {
	messages []string
}

func (n *stubNotifier) Notify(_ int64, text string) {
	n.messages = append(n.messages, text)
}

func testProfile(id int64, count int, limit int64) profiles.Profile {
	target := testOwner
	return profiles.Profile{
		ID:           id,
		UserID:       testOwner,
		MinPrice:     1,
		MaxPrice:     1_000_000,
		MinSupply:    1,
		MaxSupply:    1_000_000,
		Count:        count,
		Limit:        limit,
		TargetUserID: &target,
		Sender:       profiles.SenderBot,
	}
}

func newTestEngine(acc *stubAccountStore, prof *stubProfileStore, cand *stubCandidates, buyer *stubBuyer, notifier *stubNotifier) *Engine {
	return New(Options{
		OwnerID:    testOwner,
		CycleDelay: time.Millisecond,
		IdleDelay:  time.Millisecond,
		ErrorDelay: time.Millisecond,
	}, acc, prof, cand, buyer, notifier)
}

func TestCycleIdleWhenInactive(t *testing.T) {
	acc := &stubAccountStore{acct: accounts.Account{UserID: testOwner, Active: false}}
	buyer := &stubBuyer{}
	e := newTestEngine(acc, &stubProfileStore{}, &stubCandidates{}, buyer, &stubNotifier{})

	delay, err := e.cycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, e.opts.IdleDelay, delay)
	assert.Empty(t, buyer.requests)
}

func TestCycleWalksBudgetDownThePriceLadder(t *testing.T) {
	// Лимит 10 000: дорогой кандидат берётся один раз, затем бюджет
	// докупается более дешёвыми
	acc := &stubAccountStore{acct: accounts.Account{UserID: testOwner, Active: true, Balance: 100_000}}
	prof := &stubProfileStore{profiles: []profiles.Profile{testProfile(1, 5, 10_000)}}
	cand := &stubCandidates{gifts: []catalog.Gift{
		{ID: "g800", Price: 800, Supply: 1000},
		{ID: "g6000", Price: 6000, Supply: 1000},
		{ID: "g3000", Price: 3000, Supply: 1000},
	}}
	buyer := &stubBuyer{}
	notifier := &stubNotifier{}
	e := newTestEngine(acc, prof, cand, buyer, notifier)

	_, err := e.cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"g6000", "g3000", "g800"}, prof.applied)
	assert.Equal(t, int64(9800), prof.profiles[0].Spent)
	assert.Equal(t, 3, prof.profiles[0].Bought)

	// Лимиты не достигнуты: профиль не завершён, но прогресс есть
	assert.Empty(t, prof.done)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "частично")
	assert.Equal(t, 1, acc.refreshCalls)
}

func TestCycleRepeatsCandidateUntilCap(t *testing.T) {
	acc := &stubAccountStore{acct: accounts.Account{UserID: testOwner, Active: true, Balance: 100_000}}
	prof := &stubProfileStore{profiles: []profiles.Profile{testProfile(1, 3, 100_000)}}
	cand := &stubCandidates{gifts: []catalog.Gift{
		{ID: "g5000", Price: 5000, Supply: 1000},
		{ID: "g100", Price: 100, Supply: 1000},
	}}
	buyer := &stubBuyer{}
	notifier := &stubNotifier{}
	e := newTestEngine(acc, prof, cand, buyer, notifier)

	_, err := e.cycle(context.Background())
	require.NoError(t, err)

	// Самый дорогой кандидат повторяется, пока не упёрлись в count
	assert.Equal(t, []string{"g5000", "g5000", "g5000"}, prof.applied)
	assert.Equal(t, []int64{1}, prof.done)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "завершён")
}

func TestCycleFailureStopsProfileNotOthers(t *testing.T) {
	acc := &stubAccountStore{acct: accounts.Account{UserID: testOwner, Active: true, Balance: 100_000}}
	prof := &stubProfileStore{profiles: []profiles.Profile{
		testProfile(1, 2, 100_000),
		testProfile(2, 1, 100_000),
	}}
	cand := &stubCandidates{gifts: []catalog.Gift{{ID: "g1", Price: 1000, Supply: 1000}}}
	// Первая покупка (профиль 1) проваливается, дальше успех
	buyer := &stubBuyer{results: []bool{false}}
	notifier := &stubNotifier{}
	e := newTestEngine(acc, prof, cand, buyer, notifier)

	_, err := e.cycle(context.Background())
	require.NoError(t, err)

	// Профиль 1 остановлен без покупок, профиль 2 завершён
	assert.Equal(t, 0, prof.profiles[0].Bought)
	assert.Equal(t, 1, prof.profiles[1].Bought)
	assert.Equal(t, []int64{2}, prof.done)

	// Прогресс был — глобальное отключение не сработало
	assert.Empty(t, acc.setActive)
}

func TestCycleGlobalShutoffWhenNothingSucceeds(t *testing.T) {
	acc := &stubAccountStore{acct: accounts.Account{UserID: testOwner, Active: true, Balance: 100_000}}
	prof := &stubProfileStore{profiles: []profiles.Profile{testProfile(1, 2, 100_000)}}
	cand := &stubCandidates{gifts: []catalog.Gift{{ID: "g1", Price: 1000, Supply: 1000}}}
	buyer := &stubBuyer{results: []bool{false}}
	notifier := &stubNotifier{}
	e := newTestEngine(acc, prof, cand, buyer, notifier)

	_, err := e.cycle(context.Background())
	require.NoError(t, err)

	require.Equal(t, []bool{false}, acc.setActive)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "отключена автоматически")
}

func TestCycleNoCandidatesIsNotAFailure(t *testing.T) {
	acc := &stubAccountStore{acct: accounts.Account{UserID: testOwner, Active: true, Balance: 100_000}}
	prof := &stubProfileStore{profiles: []profiles.Profile{testProfile(1, 2, 100_000)}}
	cand := &stubCandidates{} // пустой рынок
	buyer := &stubBuyer{}
	notifier := &stubNotifier{}
	e := newTestEngine(acc, prof, cand, buyer, notifier)

	_, err := e.cycle(context.Background())
	require.NoError(t, err)

	assert.Empty(t, acc.setActive)
	assert.Empty(t, notifier.messages)
	assert.Empty(t, buyer.requests)
}

func TestCycleSkipsDoneAndDisabledUserbotProfiles(t *testing.T) {
	doneProfile := testProfile(1, 1, 100_000)
	doneProfile.Done = true
	userbotProfile := testProfile(2, 1, 100_000)
	userbotProfile.Sender = profiles.SenderUserbot

	acc := &stubAccountStore{acct: accounts.Account{
		UserID: testOwner, Active: true, Balance: 100_000, UserbotEnabled: false,
	}}
	prof := &stubProfileStore{profiles: []profiles.Profile{doneProfile, userbotProfile}}
	cand := &stubCandidates{gifts: []catalog.Gift{{ID: "g1", Price: 1000, Supply: 1000}}}
	buyer := &stubBuyer{}
	e := newTestEngine(acc, prof, cand, buyer, &stubNotifier{})

	_, err := e.cycle(context.Background())
	require.NoError(t, err)

	assert.Empty(t, buyer.requests)
}

func TestCycleInsufficientBalanceDisablesIdentity(t *testing.T) {
	acc := &stubAccountStore{acct: accounts.Account{UserID: testOwner, Active: true, Balance: 100}}
	prof := &stubProfileStore{profiles: []profiles.Profile{testProfile(1, 1, 100_000)}}
	cand := &stubCandidates{gifts: []catalog.Gift{{ID: "g1", Price: 1000, Supply: 1000}}}
	buyer := &stubBuyer{}
	notifier := &stubNotifier{}
	e := newTestEngine(acc, prof, cand, buyer, notifier)

	_, err := e.cycle(context.Background())
	require.NoError(t, err)

	// Исполнитель не вызывался: отказ по кэшу баланса
	assert.Empty(t, buyer.requests)
	require.NotEmpty(t, acc.setActive)
	assert.False(t, acc.setActive[0])
	require.NotEmpty(t, notifier.messages)
	assert.Contains(t, notifier.messages[0], "Недостаточно звёзд")
}

func TestCycleInsufficientUserbotBalanceDisablesOnlyUserbot(t *testing.T) {
	userbotProfile := testProfile(1, 1, 100_000)
	userbotProfile.Sender = profiles.SenderUserbot
	botProfile := testProfile(2, 1, 100_000)

	acc := &stubAccountStore{acct: accounts.Account{
		UserID: testOwner, Active: true,
		Balance: 100_000, UserbotBalance: 10, UserbotEnabled: true,
	}}
	prof := &stubProfileStore{profiles: []profiles.Profile{userbotProfile, botProfile}}
	cand := &stubCandidates{gifts: []catalog.Gift{{ID: "g1", Price: 1000, Supply: 1000}}}
	buyer := &stubBuyer{}
	notifier := &stubNotifier{}
	e := newTestEngine(acc, prof, cand, buyer, notifier)

	_, err := e.cycle(context.Background())
	require.NoError(t, err)

	// Юзербот отключён, бот-профиль докупился
	require.Equal(t, []bool{false}, acc.setUserbot)
	assert.Equal(t, 1, prof.profiles[1].Bought)
	assert.Empty(t, acc.setActive)

	require.NotEmpty(t, buyer.requests)
	assert.Equal(t, accounts.IdentityBot, buyer.requests[0].Identity)
}

func TestCycleRespectsSpendLimitExactly(t *testing.T) {
	// Лимит 6 000 при цене 3 000: ровно две покупки, третья не влезает
	acc := &stubAccountStore{acct: accounts.Account{UserID: testOwner, Active: true, Balance: 100_000}}
	prof := &stubProfileStore{profiles: []profiles.Profile{testProfile(1, 10, 6000)}}
	cand := &stubCandidates{gifts: []catalog.Gift{{ID: "g1", Price: 3000, Supply: 1000}}}
	buyer := &stubBuyer{}
	notifier := &stubNotifier{}
	e := newTestEngine(acc, prof, cand, buyer, notifier)

	_, err := e.cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(6000), prof.profiles[0].Spent)
	assert.Equal(t, 2, prof.profiles[0].Bought)
	// spent == limit — профиль завершён
	assert.Equal(t, []int64{1}, prof.done)
}

func TestAggregatePreservesFirstSeenOrder(t *testing.T) {
	lines := aggregate([]catalog.Gift{
		{ID: "a", Price: 6000},
		{ID: "b", Price: 3000},
		{ID: "b", Price: 3000},
		{ID: "a", Price: 6000},
	})

	require.Len(t, lines, 2)
	assert.Equal(t, int64(6000), lines[0].price)
	assert.Equal(t, 2, lines[0].count)
	assert.Equal(t, int64(3000), lines[1].price)
	assert.Equal(t, 2, lines[1].count)
}

func TestProfileSummaryFormat(t *testing.T) {
	p := testProfile(1, 2, 10_000)
	p.Bought = 2
	p.Spent = 9000

	text := profileSummary(0, &p, []catalog.Gift{
		{ID: "a", Price: 6000},
		{ID: "b", Price: 3000},
	}, true, testOwner)

	assert.True(t, strings.HasPrefix(text, "┌✅"))
	assert.Contains(t, text, "Профиль 1")
	assert.Contains(t, text, "9 000 ★ из 10 000 ★")
	assert.Contains(t, text, "2 из 2")
	assert.Contains(t, text, "6 000 ★ × 1")
	assert.Contains(t, text, "└ 3 000 ★ × 1")
}
