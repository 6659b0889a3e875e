package mock

import (
	context "context"
	reflect "reflect"

	models "github.com/pillarday/pointsengine/pointsengine/database/models"
	gomock "go.uber.org/mock/gomock"
)

// Pillars are shared fixtures for resolver and reconciler tests.
var Pillars = []*models.Pillar{
	{ID: "pil-health", UserID: "user-1", Name: "Health"},
	{ID: "pil-work", UserID: "user-1", Name: "Work"},
	{ID: "pil-other", UserID: "user-2", Name: "Foreign"},
}

// MockPillarReader is a mock of PillarReader interface.
type MockPillarReader struct {
	ctrl     *gomock.Controller
	recorder *MockPillarReaderMockRecorder
	isgomock struct{}
}

// MockPillarReaderMockRecorder is the mock recorder for MockPillarReader.
type MockPillarReaderMockRecorder struct {
	mock *MockPillarReader
}

// NewMockPillarReader creates a new mock instance.
func NewMockPillarReader(ctrl *gomock.Controller) *MockPillarReader {
	mock := &MockPillarReader{ctrl: ctrl}
	mock.recorder = &MockPillarReaderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockPillarReader) EXPECT() *MockPillarReaderMockRecorder {
	return m.recorder
}

// GetByID mocks base method.
func (m *MockPillarReader) GetByID(ctx context.Context, id string) (*models.Pillar, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*models.Pillar)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByID indicates an expected call of GetByID.
func (mr *MockPillarReaderMockRecorder) GetByID(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockPillarReader)(nil).GetByID), ctx, id)
}

// MockHabitReader is a mock of HabitReader interface.
type MockHabitReader struct {
	ctrl     *gomock.Controller
	recorder *MockHabitReaderMockRecorder
	isgomock struct{}
}

// MockHabitReaderMockRecorder is the mock recorder for MockHabitReader.
type MockHabitReaderMockRecorder struct {
	mock *MockHabitReader
}

// NewMockHabitReader creates a new mock instance.
func NewMockHabitReader(ctrl *gomock.Controller) *MockHabitReader {
	mock := &MockHabitReader{ctrl: ctrl}
	mock.recorder = &MockHabitReaderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockHabitReader) EXPECT() *MockHabitReaderMockRecorder {
	return m.recorder
}

// GetByID mocks base method.
func (m *MockHabitReader) GetByID(ctx context.Context, id string) (*models.Habit, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*models.Habit)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByID indicates an expected call of GetByID.
func (mr *MockHabitReaderMockRecorder) GetByID(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockHabitReader)(nil).GetByID), ctx, id)
}
