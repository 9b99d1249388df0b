package mocks

import (
	"context"

	"TG_rewards_bot/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) LoadUsers(ctx context.Context) (map[string]*model.UserAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*model.UserAccount), args.Error(1)
}

func (m *MockStore) LoadWithdrawals(ctx context.Context) ([]*model.WithdrawRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.WithdrawRequest), args.Error(1)
}

func (m *MockStore) SaveUser(ctx context.Context, user *model.UserAccount) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStore) SaveWithdrawal(ctx context.Context, req *model.WithdrawRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
