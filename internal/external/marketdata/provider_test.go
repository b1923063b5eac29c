package marketdata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

type fakeIndicators struct{ err error }

func (f fakeIndicators) GetIndicators(ctx context.Context, symbol string) (*contracts.Indicators, error) {
	if f.err != nil {
		return nil, f.err
	}
	v := 42.0
	return &contracts.Indicators{RSI14: &v}, nil
}

type fakeValuation struct{}

func (fakeValuation) GetIndexValuation(ctx context.Context, index string) (*contracts.IndexValuation, error) {
	return &contracts.IndexValuation{Index: index}, nil
}

func TestProviderDelegates(t *testing.T) {
	p := NewProvider(fakeIndicators{}, fakeValuation{})

	ind, err := p.GetIndicators(context.Background(), "TCS")
	assert.NoError(t, err)
	assert.InDelta(t, 42.0, *ind.RSI14, 1e-9)

	val, err := p.GetIndexValuation(context.Background(), "NIFTY 50")
	assert.NoError(t, err)
	assert.Equal(t, "NIFTY 50", val.Index)

	_, err = NewProvider(fakeIndicators{err: errors.New("down")}, nil).GetIndicators(context.Background(), "TCS")
	assert.EqualError(t, err, "down")
}

func TestProviderNilSources(t *testing.T) {
	p := NewProvider(nil, nil)

	ind, err := p.GetIndicators(context.Background(), "TCS")
	assert.NoError(t, err)
	assert.Nil(t, ind)

	val, err := p.GetIndexValuation(context.Background(), "NIFTY 50")
	assert.NoError(t, err)
	assert.Nil(t, val)
}
