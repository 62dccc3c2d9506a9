package commands

import (
	"context"

	"github.com/stretchr/testify/mock"

	sessionDomain "github.com/ribbonapp/ribbon-core/internal/session/domain"
	storageDomain "github.com/ribbonapp/ribbon-core/internal/storage/domain"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Initialize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStorage) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	raw, _ := args.Get(0).([]byte)
	return raw, args.Bool(1), args.Error(2)
}

func (m *mockStorage) SetRaw(ctx context.Context, key string, raw []byte) error {
	args := m.Called(ctx, key, raw)
	return args.Error(0)
}

func (m *mockStorage) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockStorage) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStorage) GetAllKeys(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

func (m *mockStorage) State() storageDomain.State {
	args := m.Called()
	return args.Get(0).(storageDomain.State)
}

func (m *mockStorage) RotateEncryptionKey(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStorage) DeleteKey(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockSessionUseCase struct {
	mock.Mock
}

func (m *mockSessionUseCase) Authenticate(
	ctx context.Context,
	credentials sessionDomain.Credentials,
) (*sessionDomain.Session, error) {
	args := m.Called(ctx, credentials)
	session, _ := args.Get(0).(*sessionDomain.Session)
	return session, args.Error(1)
}

func (m *mockSessionUseCase) SignIn(ctx context.Context, session sessionDomain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionUseCase) Restore(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionUseCase) CurrentUser(ctx context.Context) (*sessionDomain.UserProfile, error) {
	args := m.Called(ctx)
	user, _ := args.Get(0).(*sessionDomain.UserProfile)
	return user, args.Error(1)
}

func (m *mockSessionUseCase) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
