package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMatch(t *testing.T) {
	f := Filter{MinPrice: 100, MaxPrice: 1000, MinSupply: 500, MaxSupply: 5000}

	tests := []struct {
		name string
		gift Gift
		want bool
	}{
		{"в границах", Gift{Price: 500, Supply: 1000}, true},
		{"цена ниже", Gift{Price: 99, Supply: 1000}, false},
		{"цена выше", Gift{Price: 1001, Supply: 1000}, false},
		{"тираж ниже", Gift{Price: 500, Supply: 499}, false},
		{"тираж выше", Gift{Price: 500, Supply: 5001}, false},
		{"границы включительно", Gift{Price: 100, Supply: 500}, true},
		{"безлимитный не проходит", Gift{Price: 500, Supply: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Match(tt.gift))
		})
	}
}

func TestFilterMatchAllowUnlimited(t *testing.T) {
	f := Filter{MinPrice: 100, MaxPrice: 1000, MinSupply: 500, MaxSupply: 5000, AllowUnlimited: true}

	// Безлимитный проходит по цене без проверки тиража
	assert.True(t, f.Match(Gift{Price: 500, Supply: 0}))
	assert.False(t, f.Match(Gift{Price: 50, Supply: 0}))
	// Лимитированный всё ещё проверяется по тиражу
	assert.False(t, f.Match(Gift{Price: 500, Supply: 10}))
}

func TestSortByPriceDesc(t *testing.T) {
	gifts := []Gift{
		{ID: "a", Price: 100},
		{ID: "b", Price: 900},
		{ID: "c", Price: 500},
		{ID: "d", Price: 900},
	}
	SortByPriceDesc(gifts)

	require.Len(t, gifts, 4)
	assert.Equal(t, []string{"b", "d", "c", "a"}, []string{gifts[0].ID, gifts[1].ID, gifts[2].ID, gifts[3].ID})
}

// stubSource — источник каталога с фиксированным ответом.
type stubSource struct {
	gifts []Gift
	err   error
	calls int
}

func (s *stubSource) AvailableGifts(_ context.Context, f Filter) ([]Gift, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	filtered := f.Apply(s.gifts)
	SortByPriceDesc(filtered)
	return filtered, nil
}

func TestCacheRefreshAndSnapshot(t *testing.T) {
	src := &stubSource{gifts: []Gift{
		{ID: "cheap", Price: 100, Supply: 1000},
		{ID: "rich", Price: 5000, Supply: 1000},
	}}
	c := NewCache(src, 50*time.Second)
	c.refresh(context.Background())

	got := c.Snapshot(Filter{MinPrice: 1, MaxPrice: 10000, MinSupply: 1, MaxSupply: 10000})
	require.Len(t, got, 2)
	assert.Equal(t, "rich", got[0].ID)

	// Фильтр отсекает дорогую позицию
	got = c.Snapshot(Filter{MinPrice: 1, MaxPrice: 1000, MinSupply: 1, MaxSupply: 10000})
	require.Len(t, got, 1)
	assert.Equal(t, "cheap", got[0].ID)
}

func TestCacheKeepsSnapshotOnError(t *testing.T) {
	src := &stubSource{gifts: []Gift{{ID: "a", Price: 100, Supply: 1000}}}
	c := NewCache(src, 50*time.Second)
	c.refresh(context.Background())

	src.err = errors.New("мост недоступен")
	c.refresh(context.Background())

	got := c.Snapshot(WideOpen())
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestCacheFresh(t *testing.T) {
	src := &stubSource{gifts: []Gift{{ID: "a", Price: 100, Supply: 1000}}}
	c := NewCache(src, 50*time.Second)

	// Пустой кэш никогда не свежий
	assert.False(t, c.Fresh())

	base := time.Now()
	c.now = func() time.Time { return base }
	c.refresh(context.Background())
	assert.True(t, c.Fresh())

	// В пределах interval+jitterMax снимок свежий
	c.now = func() time.Time { return base.Add(59 * time.Second) }
	assert.True(t, c.Fresh())

	// После interval+jitterMax — нет
	c.now = func() time.Time { return base.Add(61 * time.Second) }
	assert.False(t, c.Fresh())
}

func TestManagerPrefersLongerFreshCache(t *testing.T) {
	botSrc := &stubSource{gifts: []Gift{{ID: "bot1", Price: 500, Supply: 1000}}}
	ubSrc := &stubSource{gifts: []Gift{
		{ID: "ub1", Price: 500, Supply: 1000},
		{ID: "ub2", Price: 700, Supply: 1000},
	}}
	cache := NewCache(ubSrc, 50*time.Second)
	cache.refresh(context.Background())

	m := NewManager(botSrc, cache)
	got := m.BestList(context.Background(), WideOpen())

	require.Len(t, got, 2)
	assert.Equal(t, "ub2", got[0].ID)
}

func TestManagerFallsBackToBotOnStaleCache(t *testing.T) {
	botSrc := &stubSource{gifts: []Gift{{ID: "bot1", Price: 500, Supply: 1000}}}
	ubSrc := &stubSource{gifts: []Gift{
		{ID: "ub1", Price: 500, Supply: 1000},
		{ID: "ub2", Price: 700, Supply: 1000},
	}}
	cache := NewCache(ubSrc, 50*time.Second)
	base := time.Now()
	cache.now = func() time.Time { return base }
	cache.refresh(context.Background())
	cache.now = func() time.Time { return base.Add(2 * time.Minute) }

	m := NewManager(botSrc, cache)
	got := m.BestList(context.Background(), WideOpen())

	// Несвежий кэш проигрывает даже при большем числе кандидатов
	require.Len(t, got, 1)
	assert.Equal(t, "bot1", got[0].ID)
}

func TestManagerEqualLengthPrefersBot(t *testing.T) {
	botSrc := &stubSource{gifts: []Gift{{ID: "bot1", Price: 500, Supply: 1000}}}
	ubSrc := &stubSource{gifts: []Gift{{ID: "ub1", Price: 700, Supply: 1000}}}
	cache := NewCache(ubSrc, 50*time.Second)
	cache.refresh(context.Background())

	m := NewManager(botSrc, cache)
	got := m.BestList(context.Background(), WideOpen())

	require.Len(t, got, 1)
	assert.Equal(t, "bot1", got[0].ID)
}

func TestManagerBotErrorUsesCache(t *testing.T) {
	botSrc := &stubSource{err: errors.New("api недоступен")}
	ubSrc := &stubSource{gifts: []Gift{{ID: "ub1", Price: 700, Supply: 1000}}}
	cache := NewCache(ubSrc, 50*time.Second)
	cache.refresh(context.Background())

	m := NewManager(botSrc, cache)
	got := m.BestList(context.Background(), WideOpen())

	require.Len(t, got, 1)
	assert.Equal(t, "ub1", got[0].ID)
}

func TestManagerWithoutCache(t *testing.T) {
	botSrc := &stubSource{gifts: []Gift{{ID: "bot1", Price: 500, Supply: 1000}}}
	m := NewManager(botSrc, nil)

	got := m.BestList(context.Background(), WideOpen())
	require.Len(t, got, 1)
	assert.Equal(t, "bot1", got[0].ID)
}
