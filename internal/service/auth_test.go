package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/FitKeeper/internal/gate"
	"github.com/atinyakov/FitKeeper/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// fakeAuthRepo keeps users and sessions in memory.
type fakeAuthRepo struct {
	mu       sync.Mutex
	users    map[string]models.User
	sessions map[string]string
	revoked  map[string]bool
	deleted  []string

	CreateSessionFunc func(ctx context.Context, id, userID string, expiresAt time.Time) error
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{
		users:    map[string]models.User{},
		sessions: map[string]string{},
		revoked:  map[string]bool{},
	}
}

func (r *fakeAuthRepo) CreateUser(_ context.Context, u models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return models.ErrUserExists
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *fakeAuthRepo) DeleteUser(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeAuthRepo) UserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeAuthRepo) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time) error {
	if r.CreateSessionFunc != nil {
		return r.CreateSessionFunc(ctx, id, userID, expiresAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = userID
	return nil
}

func (r *fakeAuthRepo) ActiveSession(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uid, ok := r.sessions[id]
	if !ok || r.revoked[id] {
		return nil, models.ErrUnauthorized
	}
	u := r.users[uid]
	return &u, nil
}

func (r *fakeAuthRepo) RevokeSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[id] = true
	return nil
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Email:    "Ann@Example.com",
		Password: "secret1",
		Name:     "Ann",
		Weight:   70,
		Height:   170,
		Age:      30,
		Gender:   "Female",
		Goal:     models.GoalWeightLoss,
	}
}

func newAuth(repo *fakeAuthRepo, store *memStore) *AuthService {
	return NewAuthService(repo, store, "test-secret", time.Hour, NewIdentityHub(), zap.NewNop())
}

func TestRegister(t *testing.T) {
	repo := newFakeAuthRepo()
	store := newMemStore()
	svc := newAuth(repo, store)

	u, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword(u.PasswordHash, []byte("secret1")))

	rec, err := store.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", rec.Name)
	assert.Equal(t, []float64{70}, rec.WeightHistory)
	assert.Zero(t, rec.TotalCaloriesConsumed)

	_, err = svc.Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, models.ErrUserExists)
}

func TestRegister_Validation(t *testing.T) {
	mutations := map[string]func(r *RegisterRequest){
		"bad email":    func(r *RegisterRequest) { r.Email = "not-an-email" },
		"short pass":   func(r *RegisterRequest) { r.Password = "123" },
		"blank name":   func(r *RegisterRequest) { r.Name = "  " },
		"zero weight":  func(r *RegisterRequest) { r.Weight = 0 },
		"bad gender":   func(r *RegisterRequest) { r.Gender = "Robot" },
		"unknown goal": func(r *RegisterRequest) { r.Goal = "Bulk" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			repo := newFakeAuthRepo()
			svc := newAuth(repo, newMemStore())
			req := validRegistration()
			mutate(&req)

			_, err := svc.Register(context.Background(), req)
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Empty(t, repo.users)
		})
	}
}

func TestRegister_RollsBackUserOnRecordFailure(t *testing.T) {
	repo := newFakeAuthRepo()
	store := newMemStore()
	store.writeErr = errors.New("store down")
	svc := newAuth(repo, store)

	_, err := svc.Register(context.Background(), validRegistration())
	assert.Error(t, err)
	assert.Empty(t, repo.users)
	assert.Len(t, repo.deleted, 1)
}

func TestSignInResolveSignOut(t *testing.T) {
	repo := newFakeAuthRepo()
	svc := newAuth(repo, newMemStore())
	u, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = svc.SignIn(context.Background(), "ann@example.com", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	_, err = svc.SignIn(context.Background(), "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	token, err := svc.SignIn(context.Background(), "ANN@example.com", "secret1")
	require.NoError(t, err)

	id, err := svc.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &gate.Identity{Handle: u.ID, Email: "ann@example.com"}, id)

	require.NoError(t, svc.SignOut(context.Background(), token))
	_, err = svc.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	assert.NoError(t, svc.SignOut(context.Background(), "garbage"))
}

func TestResolve_RejectsForeignTokens(t *testing.T) {
	svc := newAuth(newFakeAuthRepo(), newMemStore())

	claims := &sessionClaims{RegisteredClaims: jwt.RegisteredClaims{ID: "s1", Subject: "u1"}}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	expiredClaims := &sessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID: "s1", Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for _, token := range []string{"", "garbage", foreign, expired} {
		_, err := svc.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	}
}

func TestSignIn_SessionStoreError(t *testing.T) {
	repo := newFakeAuthRepo()
	svc := newAuth(repo, newMemStore())
	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	repo.CreateSessionFunc = func(context.Context, string, string, time.Time) error {
		return errors.New("db down")
	}
	_, err = svc.SignIn(context.Background(), "ann@example.com", "secret1")
	assert.Error(t, err)
}
