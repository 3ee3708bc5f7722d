package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

type fakeRepo struct {
	users  map[int64]User
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[int64]User{}, nextID: 1}
}

func (f *fakeRepo) List(_ context.Context) ([]User, error) {
	var out []User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) GetByUsername(_ context.Context, username string) (User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (f *fakeRepo) Create(_ context.Context, u User) (User, error) {
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return User{}, shared.ErrConflict
		}
	}
	u.ID = f.nextID
	f.nextID++
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, u User) error {
	if _, ok := f.users[id]; !ok {
		return shared.ErrNotFound
	}
	u.ID = id
	f.users[id] = u
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func TestAuthenticate(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, User{Name: "Maria", Username: "maria", Role: RoleAdmin}, "segredo")
	require.NoError(t, err)
	require.NotEqual(t, "segredo", created.PasswordHash)

	user, err := svc.Authenticate(ctx, "maria", "segredo")
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)

	_, err = svc.Authenticate(ctx, "maria", "errada")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "ninguem", "segredo")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, User{Name: "X", Username: "x", Role: "CHEFE"}, "segredo")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, User{Name: "X", Username: "x", Role: RoleOperator}, "123")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, User{Name: "A", Username: "caixa", Role: RoleOperator}, "segredo")
	require.NoError(t, err)

	_, err = svc.Create(ctx, User{Name: "B", Username: "caixa", Role: RoleOperator}, "segredo")
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateKeepsPasswordWhenBlank(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, User{Name: "A", Username: "caixa", Role: RoleOperator}, "segredo")
	require.NoError(t, err)

	err = svc.Update(ctx, created.ID, User{Name: "A Silva", Username: "caixa", Role: RoleOperator}, "")
	require.NoError(t, err)

	updated := repo.users[created.ID]
	require.Equal(t, "A Silva", updated.Name)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("segredo")))
}
