// Package mocks provides test doubles for the google directory.
package mocks

import (
	"context"

	google "github.com/sells-group/funding-cli/pkg/google"
	mock "github.com/stretchr/testify/mock"
)

// MockDirectory is a mock type for the Directory interface.
type MockDirectory struct {
	mock.Mock
}

// FindCompany provides a mock function with given fields: ctx, name
func (_m *MockDirectory) FindCompany(ctx context.Context, name string) ([]google.Listing, error) {
	ret := _m.Called(ctx, name)

	if len(ret) == 0 {
		panic("no return value specified for FindCompany")
	}

	var r0 []google.Listing
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]google.Listing, error)); ok {
		return rf(ctx, name)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) []google.Listing); ok {
		r0 = rf(ctx, name)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]google.Listing)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, name)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockDirectory creates a new instance of MockDirectory. It also
// registers a testing interface on the mock and a cleanup function to
// assert the mocks expectations.
func NewMockDirectory(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockDirectory {
	m := &MockDirectory{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
