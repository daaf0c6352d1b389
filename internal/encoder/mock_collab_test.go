// Hand-written in the layout MockGen emits, not produced by mockgen.
// Source: github.com/zsiec/h264enc/internal/frame (interfaces: MbCodec,RateControl)

package encoder

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"

	frame "github.com/zsiec/h264enc/internal/frame"
)

// MockMbCodec is a mock of the MbCodec interface.
type MockMbCodec struct {
	ctrl     *gomock.Controller
	recorder *MockMbCodecMockRecorder
}

// MockMbCodecMockRecorder is the mock recorder for MockMbCodec.
type MockMbCodecMockRecorder struct {
	mock *MockMbCodec
}

// NewMockMbCodec creates a new mock instance.
func NewMockMbCodec(ctrl *gomock.Controller) *MockMbCodec {
	mock := &MockMbCodec{ctrl: ctrl}
	mock.recorder = &MockMbCodecMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockMbCodec) EXPECT() *MockMbCodecMockRecorder {
	return m.recorder
}

// Analyse mocks base method.
func (m *MockMbCodec) Analyse(fenc, fdec *frame.Frame, mb frame.MbAddress, refs frame.RefLists, sliceType frame.SliceType) frame.MbAnalysis {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Analyse", fenc, fdec, mb, refs, sliceType)
	ret0, _ := ret[0].(frame.MbAnalysis)
	return ret0
}

// Analyse indicates an expected call of Analyse.
func (mr *MockMbCodecMockRecorder) Analyse(fenc, fdec, mb, refs, sliceType any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Analyse", reflect.TypeOf((*MockMbCodec)(nil).Analyse), fenc, fdec, mb, refs, sliceType)
}

// Encode mocks base method.
func (m *MockMbCodec) Encode(fenc, fdec *frame.Frame, mb frame.MbAddress, a frame.MbAnalysis, sliceType frame.SliceType, w frame.BitWriter) (int, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Encode", fenc, fdec, mb, a, sliceType, w)
	ret0, _ := ret[0].(int)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Encode indicates an expected call of Encode.
func (mr *MockMbCodecMockRecorder) Encode(fenc, fdec, mb, a, sliceType, w any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Encode", reflect.TypeOf((*MockMbCodec)(nil).Encode), fenc, fdec, mb, a, sliceType, w)
}

// MockRateControl is a mock of the RateControl interface.
type MockRateControl struct {
	ctrl     *gomock.Controller
	recorder *MockRateControlMockRecorder
}

// MockRateControlMockRecorder is the mock recorder for MockRateControl.
type MockRateControlMockRecorder struct {
	mock *MockRateControl
}

// NewMockRateControl creates a new mock instance.
func NewMockRateControl(ctrl *gomock.Controller) *MockRateControl {
	mock := &MockRateControl{ctrl: ctrl}
	mock.recorder = &MockRateControlMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockRateControl) EXPECT() *MockRateControlMockRecorder {
	return m.recorder
}

// StartFrame mocks base method.
func (m *MockRateControl) StartFrame(fenc *frame.Frame, sliceType frame.SliceType) int {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "StartFrame", fenc, sliceType)
	ret0, _ := ret[0].(int)
	return ret0
}

// StartFrame indicates an expected call of StartFrame.
func (mr *MockRateControlMockRecorder) StartFrame(fenc, sliceType any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StartFrame", reflect.TypeOf((*MockRateControl)(nil).StartFrame), fenc, sliceType)
}

// MbDone mocks base method.
func (m *MockRateControl) MbDone(bits int) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "MbDone", bits)
}

// MbDone indicates an expected call of MbDone.
func (mr *MockRateControlMockRecorder) MbDone(bits any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MbDone", reflect.TypeOf((*MockRateControl)(nil).MbDone), bits)
}

// EndFrame mocks base method.
func (m *MockRateControl) EndFrame(stats frame.EncodeStats) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "EndFrame", stats)
}

// EndFrame indicates an expected call of EndFrame.
func (mr *MockRateControlMockRecorder) EndFrame(stats any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "EndFrame", reflect.TypeOf((*MockRateControl)(nil).EndFrame), stats)
}

// ReplayingStats mocks base method.
func (m *MockRateControl) ReplayingStats() bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ReplayingStats")
	ret0, _ := ret[0].(bool)
	return ret0
}

// ReplayingStats indicates an expected call of ReplayingStats.
func (mr *MockRateControlMockRecorder) ReplayingStats() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ReplayingStats", reflect.TypeOf((*MockRateControl)(nil).ReplayingStats))
}
