package profiles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftsninja.ru/gifts-bot/internal/common"
)

// stubStore — репозиторий профилей в памяти.
type stubStore struct {
	profiles []Profile
	nextID   int64
	deleted  []int64
	updated  []Profile
	resets   int
}

func (s *stubStore) List(_ context.Context, userID int64) ([]Profile, error) {
	var out []Profile
	for _, p := range s.profiles {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubStore) Get(_ context.Context, profileID int64) (*Profile, error) {
	for i := range s.profiles {
		if s.profiles[i].ID == profileID {
			p := s.profiles[i]
			return &p, nil
		}
	}
	return nil, common.ErrProfileNotFound
}

func (s *stubStore) Create(_ context.Context, p *Profile) (int64, error) {
	s.nextID++
	p.ID = s.nextID
	s.profiles = append(s.profiles, *p)
	return p.ID, nil
}

func (s *stubStore) Update(_ context.Context, p *Profile) error {
	s.updated = append(s.updated, *p)
	for i := range s.profiles {
		if s.profiles[i].ID == p.ID {
			s.profiles[i] = *p
			return nil
		}
	}
	return common.ErrProfileNotFound
}

func (s *stubStore) Delete(_ context.Context, profileID int64) error {
	s.deleted = append(s.deleted, profileID)
	for i := range s.profiles {
		if s.profiles[i].ID == profileID {
			s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
			return nil
		}
	}
	return common.ErrProfileNotFound
}

func (s *stubStore) ApplyPurchase(_ context.Context, profileID int64, _ string, price int64) (int, int64, error) {
	for i := range s.profiles {
		if s.profiles[i].ID == profileID {
			s.profiles[i].Bought++
			s.profiles[i].Spent += price
			return s.profiles[i].Bought, s.profiles[i].Spent, nil
		}
	}
	return 0, 0, common.ErrProfileNotFound
}

func (s *stubStore) MarkDone(_ context.Context, profileID int64) error {
	for i := range s.profiles {
		if s.profiles[i].ID == profileID {
			s.profiles[i].Done = true
		}
	}
	return nil
}

func (s *stubStore) ResetAll(_ context.Context, _ int64) error {
	s.resets++
	for i := range s.profiles {
		s.profiles[i].Bought = 0
		s.profiles[i].Spent = 0
		s.profiles[i].Done = false
	}
	return nil
}

func (s *stubStore) Purchases(_ context.Context, _ int64) ([]Purchase, error) {
	return nil, nil
}

func (s *stubStore) CountByUser(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, p := range s.profiles {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func validProfile(userID int64) Profile {
	target := userID
	return Profile{
		UserID:       userID,
		MinPrice:     100,
		MaxPrice:     1000,
		MinSupply:    1,
		MaxSupply:    10000,
		Count:        3,
		Limit:        5000,
		TargetUserID: &target,
		Sender:       SenderBot,
	}
}

func TestValidate(t *testing.T) {
	userID := int64(1)
	channel := "@durov"
	badName := "слишком длинное имя профиля"
	goodName := "Подарки НГ"

	tests := []struct {
		name    string
		mutate  func(p *Profile)
		wantErr error
	}{
		{"корректный", func(p *Profile) {}, nil},
		{"нулевая цена", func(p *Profile) { p.MinPrice = 0 }, common.ErrInvalidAmount},
		{"нулевой лимит", func(p *Profile) { p.Limit = 0 }, common.ErrInvalidAmount},
		{"нулевое количество", func(p *Profile) { p.Count = 0 }, common.ErrInvalidAmount},
		{"min > max по цене", func(p *Profile) { p.MinPrice = 2000 }, common.ErrInvalidPriceRange},
		{"min > max по тиражу", func(p *Profile) { p.MinSupply = 20000 }, common.ErrInvalidSupplyRange},
		{"оба получателя", func(p *Profile) { p.TargetChatID = &channel }, common.ErrAmbiguousTarget},
		{"без получателя", func(p *Profile) { p.TargetUserID = nil }, common.ErrNoTarget},
		{"неизвестный отправитель", func(p *Profile) { p.Sender = "premium" }, common.ErrUnknownIdentity},
		{"плохое имя", func(p *Profile) { p.Name = &badName }, common.ErrInvalidProfileName},
		{"хорошее имя", func(p *Profile) { p.Name = &goodName }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile(userID)
			tt.mutate(&p)
			err := Validate(&p)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("НГ 2026"))
	assert.NoError(t, ValidateName("a"))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName("ровно тринадцать")) // больше 12 символов
	assert.Error(t, ValidateName("имя<script>"))
}

func TestCreateZeroesProgress(t *testing.T) {
	repo := &stubStore{}
	s := NewService(repo, 10)

	p := validProfile(1)
	p.Bought = 5
	p.Spent = 9999
	p.Done = true

	id, err := s.Create(context.Background(), &p)
	require.NoError(t, err)
	require.NotZero(t, id)

	stored, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, stored.Bought)
	assert.Zero(t, stored.Spent)
	assert.False(t, stored.Done)
}

func TestCreateEnforcesProfileCap(t *testing.T) {
	repo := &stubStore{}
	s := NewService(repo, 2)

	for i := 0; i < 2; i++ {
		p := validProfile(1)
		_, err := s.Create(context.Background(), &p)
		require.NoError(t, err)
	}

	p := validProfile(1)
	_, err := s.Create(context.Background(), &p)
	assert.ErrorIs(t, err, common.ErrTooManyProfiles)
}

func TestCreateRejectsInvalid(t *testing.T) {
	repo := &stubStore{}
	s := NewService(repo, 10)

	p := validProfile(1)
	p.TargetUserID = nil
	_, err := s.Create(context.Background(), &p)
	assert.ErrorIs(t, err, common.ErrNoTarget)
	assert.Empty(t, repo.profiles)
}

func TestListAutoCreatesDefault(t *testing.T) {
	repo := &stubStore{}
	s := NewService(repo, 10)

	got, err := s.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Профиль по умолчанию: отправитель — бот, получатель — сам владелец
	assert.Equal(t, SenderBot, got[0].Sender)
	require.NotNil(t, got[0].TargetUserID)
	assert.Equal(t, int64(1), *got[0].TargetUserID)
	assert.NoError(t, Validate(&got[0]))
}

func TestDeleteLastReplacedByDefault(t *testing.T) {
	repo := &stubStore{}
	s := NewService(repo, 10)

	p := validProfile(1)
	p.Count = 99
	id, err := s.Create(context.Background(), &p)
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), 1, id))

	// Удаления не было: профиль перезаписан дефолтом с тем же id
	assert.Empty(t, repo.deleted)
	got, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	def := Default(1)
	assert.Equal(t, def.Count, got.Count)
	assert.Equal(t, def.MinPrice, got.MinPrice)
}

func TestDeleteRemovesWhenOthersRemain(t *testing.T) {
	repo := &stubStore{}
	s := NewService(repo, 10)

	p1 := validProfile(1)
	id1, err := s.Create(context.Background(), &p1)
	require.NoError(t, err)
	p2 := validProfile(1)
	_, err = s.Create(context.Background(), &p2)
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), 1, id1))

	assert.Equal(t, []int64{id1}, repo.deleted)
	got, err := s.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestResetAll(t *testing.T) {
	repo := &stubStore{}
	s := NewService(repo, 10)

	p := validProfile(1)
	id, err := s.Create(context.Background(), &p)
	require.NoError(t, err)

	_, _, err = s.ApplyPurchase(context.Background(), id, "g1", 500)
	require.NoError(t, err)
	require.NoError(t, s.MarkDone(context.Background(), id))

	require.NoError(t, s.ResetAll(context.Background(), 1))

	got, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, got.Bought)
	assert.Zero(t, got.Spent)
	assert.False(t, got.Done)
}

func TestCapsReached(t *testing.T) {
	p := validProfile(1) // count 3, limit 5000

	assert.False(t, p.CapsReached())

	p.Bought = 3
	assert.True(t, p.CapsReached())

	p.Bought = 0
	p.Spent = 5000
	assert.True(t, p.CapsReached())
}

func TestDisplayName(t *testing.T) {
	p := validProfile(1)
	assert.Equal(t, "Профиль 3", p.DisplayName(2))

	name := "Новый год"
	p.Name = &name
	assert.Equal(t, "Новый год", p.DisplayName(2))
}
