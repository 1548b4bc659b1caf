package testutil

import (
	"context"
	"time"

	"github.com/crewdesk/bridge-api/internal/models"
	"github.com/crewdesk/bridge-api/internal/services"
	"github.com/crewdesk/bridge-api/internal/tools"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockAPIKeyService mocks the APIKeyService
type MockAPIKeyService struct {
	mock.Mock
}

func (m *MockAPIKeyService) Create(ctx context.Context, ownerID uuid.UUID, name string, scopes []string, expiresAt *time.Time) (*models.APIKey, string, error) {
	args := m.Called(ctx, ownerID, name, scopes, expiresAt)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*models.APIKey), args.String(1), args.Error(2)
}

func (m *MockAPIKeyService) Validate(ctx context.Context, key string) (*services.KeyInfo, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.KeyInfo), args.Error(1)
}

func (m *MockAPIKeyService) CheckRateLimit(ctx context.Context, keyID uuid.UUID) (bool, error) {
	args := m.Called(ctx, keyID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAPIKeyService) List(ctx context.Context, ownerID uuid.UUID) ([]models.APIKey, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.APIKey), args.Error(1)
}

func (m *MockAPIKeyService) Revoke(ctx context.Context, keyID, ownerID uuid.UUID) error {
	args := m.Called(ctx, keyID, ownerID)
	return args.Error(0)
}

func (m *MockAPIKeyService) Delete(ctx context.Context, keyID, ownerID uuid.UUID) error {
	args := m.Called(ctx, keyID, ownerID)
	return args.Error(0)
}

// MockUserService mocks the UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) LookupRole(ctx context.Context, ownerID uuid.UUID) string {
	args := m.Called(ctx, ownerID)
	return args.String(0)
}

// MockUsageService mocks the UsageService
type MockUsageService struct {
	mock.Mock
}

func (m *MockUsageService) RecordAsync(rec *models.UsageRecord) {
	m.Called(rec)
}

func (m *MockUsageService) ListRecent(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.UsageRecord, error) {
	args := m.Called(ctx, ownerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UsageRecord), args.Error(1)
}

// MockExecutor mocks the tool executor
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, inv tools.Invocation) tools.Result {
	args := m.Called(ctx, inv)
	return args.Get(0).(tools.Result)
}
