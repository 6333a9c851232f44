package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepchat/internal/model"
	"deepchat/internal/pkg/jwtutil"
)

type fakeUserStore struct {
	users  []*model.User
	nextID uint
}

func (f *fakeUserStore) Create(user *model.User) error {
	f.nextID++
	user.ID = f.nextID
	copied := *user
	f.users = append(f.users, &copied)
	return nil
}

func (f *fakeUserStore) GetByUsername(username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByEmail(email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByID(id uint) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func newAuthService(store *fakeUserStore) *AuthService {
	return NewAuthService(store, "test-secret", time.Hour)
}

func TestRegisterThenLoginByEmail(t *testing.T) {
	store := &fakeUserStore{}
	svc := newAuthService(store)

	registered, err := svc.Register(RegisterInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", registered.User.Email, "emails are stored lowercased")

	result, err := svc.Login(LoginInput{Email: "ALICE@example.COM", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, result.User.ID)

	claims, err := jwtutil.ParseToken("test-secret", result.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestLoginRejectsUsernameAsCredential(t *testing.T) {
	store := &fakeUserStore{}
	svc := newAuthService(store)

	_, err := svc.Register(RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	// The email is the credential; the display handle must not sign in.
	_, err = svc.Login(LoginInput{Email: "alice", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	store := &fakeUserStore{}
	svc := newAuthService(store)

	_, err := svc.Register(RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, wrongPass := svc.Login(LoginInput{Email: "alice@example.com", Password: "wrong-horse1"})
	_, unknown := svc.Login(LoginInput{Email: "nobody@example.com", Password: "correct-horse"})

	assert.ErrorIs(t, wrongPass, ErrInvalidCredential)
	assert.ErrorIs(t, unknown, ErrInvalidCredential)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	store := &fakeUserStore{}
	svc := newAuthService(store)

	_, err := svc.Register(RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = svc.Register(RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, ErrUsernameExists)

	_, err = svc.Register(RegisterInput{
		Username: "bob",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	svc := newAuthService(&fakeUserStore{})

	cases := []RegisterInput{
		{Username: "", Email: "a@example.com", Password: "correct-horse"},
		{Username: "alice", Email: "", Password: "correct-horse"},
		{Username: "alice", Email: "a@example.com", Password: "short"},
	}
	for _, input := range cases {
		_, err := svc.Register(input)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}
