package trading

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stocksim/internal/quote"
	"stocksim/internal/store/gormstore"
)

// fakeQuotes 可按股票代码设定价格的行情源；没设价格的代码视为行情不可用。
type fakeQuotes struct {
	prices map[string]float64
	err    error
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{prices: map[string]float64{}}
}

func (f *fakeQuotes) setPrice(stockCode string, price float64) {
	f.prices[stockCode] = price
}

func (f *fakeQuotes) clearPrice(stockCode string) {
	delete(f.prices, stockCode)
}

func (f *fakeQuotes) RealtimeQuote(_ context.Context, stockCode string) (*quote.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	price, ok := f.prices[stockCode]
	if !ok {
		return nil, nil
	}
	return &quote.Quote{
		StockCode:    stockCode,
		StockName:    fmt.Sprintf("股票%s", stockCode),
		CurrentPrice: price,
	}, nil
}

// flakyQuotes 只放行前 allowed 次查询，之后一律按行情不可用处理。
type flakyQuotes struct {
	inner   *fakeQuotes
	allowed int
	calls   int
}

func (f *flakyQuotes) RealtimeQuote(ctx context.Context, stockCode string) (*quote.Quote, error) {
	f.calls++
	if f.calls > f.allowed {
		return nil, nil
	}
	return f.inner.RealtimeQuote(ctx, stockCode)
}

func newTestService(t *testing.T) (*Service, *fakeQuotes) {
	t.Helper()
	store, err := gormstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	quotes := newFakeQuotes()
	svc := NewService(store, quotes, Config{InitialBalance: 1000000})
	return svc, quotes
}
