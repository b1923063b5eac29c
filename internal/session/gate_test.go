package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

type fakeStatus struct {
	status string
	err    error
	delay  time.Duration
	calls  int
}

func (f *fakeStatus) MarketStatus(ctx context.Context) (string, error) {
	f.calls++
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.status, f.err
}

func TestAutomaticGate(t *testing.T) {
	tests := []struct {
		name        string
		provider    *fakeStatus
		wantProceed bool
		wantStatus  contracts.SessionStatus
	}{
		{"open", &fakeStatus{status: "Open"}, true, contracts.SessionOpen},
		{"normal", &fakeStatus{status: "NORMAL"}, true, contracts.SessionOpen},
		{"padded open", &fakeStatus{status: "  open "}, true, contracts.SessionOpen},
		{"closed", &fakeStatus{status: "closed"}, false, contracts.SessionClosed},
		{"close", &fakeStatus{status: "Close"}, false, contracts.SessionClosed},
		{"pre-open", &fakeStatus{status: "Pre-Open"}, false, contracts.SessionUnknown},
		{"halted", &fakeStatus{status: "HALTED"}, false, contracts.SessionUnknown},
		{"garbage", &fakeStatus{status: "<html>"}, false, contracts.SessionUnknown},
		{"empty", &fakeStatus{status: ""}, false, contracts.SessionUnknown},
		{"error", &fakeStatus{err: errors.New("403 forbidden")}, false, contracts.SessionUnknown},
		{"timeout", &fakeStatus{status: "open", delay: 200 * time.Millisecond}, false, contracts.SessionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(tt.provider, 50*time.Millisecond, logger.NewNop())

			d := gate.Check(context.Background(), contracts.TriggerAutomatic)
			assert.Equal(t, tt.wantProceed, d.Proceed)
			assert.Equal(t, tt.wantStatus, d.Status)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestManualAlwaysProceeds(t *testing.T) {
	providers := []*fakeStatus{
		{status: "open"},
		{status: "closed"},
		{err: errors.New("connection reset")},
		{status: "open", delay: 200 * time.Millisecond},
	}

	for _, p := range providers {
		gate := NewGate(p, 50*time.Millisecond, logger.NewNop())
		d := gate.Check(context.Background(), contracts.TriggerManual)

		assert.True(t, d.Proceed)
		assert.Equal(t, ReasonManualOverride, d.Reason)
	}
}

func TestManualAnnotatesStatus(t *testing.T) {
	gate := NewGate(&fakeStatus{status: "Closed"}, time.Second, logger.NewNop())
	d := gate.Check(context.Background(), contracts.TriggerManual)

	assert.Equal(t, contracts.SessionClosed, d.Status)
	assert.Equal(t, "Closed", d.RawStatus)
}
