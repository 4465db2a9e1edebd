package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kitbuilder587/fantasy-tales/internal/storage"
)

// MockStore is a testify mock of storage.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	ret := m.Called(ctx, key)
	return ret.String(0), ret.Bool(1), ret.Error(2)
}

func (m *MockStore) Set(ctx context.Context, key, value string) error {
	ret := m.Called(ctx, key, value)
	return ret.Error(0)
}

func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	m := &MockStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ storage.Store = (*MockStore)(nil)
