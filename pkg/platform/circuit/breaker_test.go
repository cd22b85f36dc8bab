package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	now time.Time
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *BreakerSuite) newBreaker(opts ...Option) *Breaker {
	opts = append(opts, WithClock(func() time.Time { return s.now }))
	return New("sml", opts...)
}

func (s *BreakerSuite) TestDefaults() {
	b := s.newBreaker()
	s.Equal("sml", b.Name())
	s.Equal(StateClosed, b.State())
	s.Equal("closed", b.State().String())
	s.True(b.Allow())

	for range 4 {
		b.RecordFailure()
	}
	s.False(b.IsOpen(), "default threshold is five")
	b.RecordFailure()
	s.True(b.IsOpen())
	s.Equal("open", b.State().String())
}

func (s *BreakerSuite) TestInvalidThresholdsKeepDefaults() {
	b := s.newBreaker(WithFailureThreshold(0), WithSuccessThreshold(-1))
	for range 4 {
		b.RecordFailure()
	}
	s.False(b.IsOpen())
}

func (s *BreakerSuite) TestTransitions() {
	type step struct {
		fail       bool
		wantFlag   bool
		wantChange StateChange
		wantOpen   bool
	}
	tests := []struct {
		name  string
		opts  []Option
		steps []step
	}{
		{
			name: "opens on the threshold failure",
			opts: []Option{WithFailureThreshold(3)},
			steps: []step{
				{fail: true, wantFlag: false},
				{fail: true, wantFlag: false},
				{fail: true, wantFlag: true, wantChange: StateChange{Opened: true}, wantOpen: true},
				{fail: true, wantFlag: true, wantOpen: true},
			},
		},
		{
			name: "success resets the failure count",
			opts: []Option{WithFailureThreshold(2)},
			steps: []step{
				{fail: true},
				{fail: false, wantFlag: true},
				{fail: true},
				{fail: true, wantFlag: true, wantChange: StateChange{Opened: true}, wantOpen: true},
			},
		},
		{
			name: "closes after consecutive successes",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{fail: true, wantFlag: true, wantChange: StateChange{Opened: true}, wantOpen: true},
				{fail: false, wantFlag: false, wantOpen: true},
				{fail: false, wantFlag: true, wantChange: StateChange{Closed: true}},
			},
		},
		{
			name: "failure while open resets the success count",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{fail: true, wantFlag: true, wantChange: StateChange{Opened: true}, wantOpen: true},
				{fail: false, wantOpen: true},
				{fail: true, wantFlag: true, wantOpen: true},
				{fail: false, wantOpen: true},
				{fail: false, wantFlag: true, wantChange: StateChange{Closed: true}},
			},
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			b := s.newBreaker(tt.opts...)
			for i, st := range tt.steps {
				var flag bool
				var change StateChange
				if st.fail {
					flag, change = b.RecordFailure()
				} else {
					flag, change = b.RecordSuccess()
				}
				s.Equal(st.wantFlag, flag, "step %d flag", i)
				s.Equal(st.wantChange, change, "step %d change", i)
				s.Equal(st.wantOpen, b.IsOpen(), "step %d state", i)
			}
		})
	}
}

func (s *BreakerSuite) TestAllowAdmitsOneProbePerCoolDown() {
	b := s.newBreaker(WithFailureThreshold(1), WithCoolDown(10*time.Second))
	b.RecordFailure()
	s.False(b.Allow())

	s.now = s.now.Add(11 * time.Second)
	s.True(b.Allow())
	s.False(b.Allow())

	b.RecordFailure()
	s.now = s.now.Add(11 * time.Second)
	s.True(b.Allow())

	usePrimary, change := b.RecordSuccess()
	s.True(usePrimary)
	s.True(change.Closed)
	s.True(b.Allow())
}

func (s *BreakerSuite) TestReset() {
	b := s.newBreaker(WithFailureThreshold(1))
	b.RecordFailure()
	s.Require().True(b.IsOpen())

	b.Reset()
	s.Equal(StateClosed, b.State())
	s.True(b.Allow())
}

func TestBreakerConcurrentUse(t *testing.T) {
	b := New("sml", WithFailureThreshold(801))
	done := make(chan struct{})
	for range 8 {
		go func() {
			defer func() { done <- struct{}{} }()
			for range 100 {
				b.RecordFailure()
				b.Allow()
			}
		}()
	}
	for range 8 {
		<-done
	}
	require.Equal(t, StateClosed, b.State())
	_, change := b.RecordFailure()
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
}
