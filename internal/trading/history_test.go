package trading

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocksim/internal/store/model"
)

func setClock(svc *Service, day string) {
	svc.nowFn = func() time.Time {
		ts, _ := time.Parse(dateLayout, day)
		return ts
	}
}

func TestRecordAccountHistoryFirstSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	setClock(svc, "2026-09-01")

	result, err := svc.RecordAccountHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01", result.RecordDate)
	assert.InDelta(t, 1000000, result.TotalBalance, 1e-9)
	assert.Zero(t, result.DailyReturnPct)
	assert.Zero(t, result.CumulativeReturnPct)
}

func TestRecordAccountHistoryIdempotentPerDay(t *testing.T) {
	svc, quotes := newTestService(t)
	ctx := context.Background()
	setClock(svc, "2026-09-01")

	_, err := svc.RecordAccountHistory(ctx)
	require.NoError(t, err)

	// 同日重跑覆盖当日行，不新增
	quotes.setPrice("600001", 10.00)
	buyStock(t, svc, "600001", 100)
	result, err := svc.RecordAccountHistory(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 999994.90, result.TotalBalance, 1e-9)

	histories, err := svc.GetAccountHistory(ctx, 30)
	require.NoError(t, err)
	require.Len(t, histories, 1)
	assert.InDelta(t, 999994.90, histories[0].TotalBalance, 1e-9)
}

func TestRecordAccountHistoryDailyReturn(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// 前一日快照余额 950000，今日账户回到初始资金
	require.NoError(t, svc.store.DB().Create(&model.AccountHistory{
		RecordDate:   "2026-08-31",
		TotalBalance: 950000,
		CashBalance:  950000,
	}).Error)

	setClock(svc, "2026-09-01")
	result, err := svc.RecordAccountHistory(ctx)
	require.NoError(t, err)
	assert.InDelta(t, (1000000.0-950000.0)/950000.0*100, result.DailyReturnPct, 1e-9)
	assert.Zero(t, result.CumulativeReturnPct)
}

func TestGetAccountHistoryWindow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, day := range []string{"2026-06-01", "2026-08-25", "2026-08-30"} {
		require.NoError(t, svc.store.DB().Create(&model.AccountHistory{
			RecordDate:   day,
			TotalBalance: 1000000,
		}).Error)
	}

	setClock(svc, "2026-09-01")
	histories, err := svc.GetAccountHistory(ctx, 30)
	require.NoError(t, err)
	require.Len(t, histories, 2)
	assert.Equal(t, "2026-08-25", histories[0].RecordDate)
	assert.Equal(t, "2026-08-30", histories[1].RecordDate)
}

func TestGetPerformanceMetricsNeedsTwoSnapshots(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	metrics, err := svc.GetPerformanceMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, PerformanceMetrics{}, metrics)

	require.NoError(t, svc.store.DB().Create(&model.AccountHistory{
		RecordDate:   "2026-09-01",
		TotalBalance: 1000000,
	}).Error)
	metrics, err = svc.GetPerformanceMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, PerformanceMetrics{}, metrics)
}

func TestGetPerformanceMetrics(t *testing.T) {
	svc, quotes := newTestService(t)
	ctx := context.Background()

	balances := map[string]float64{
		"2026-08-01": 1000000,
		"2026-08-02": 1100000,
		"2026-08-03": 900000,
		"2026-08-04": 950000,
	}
	for day, balance := range balances {
		require.NoError(t, svc.store.DB().Create(&model.AccountHistory{
			RecordDate:   day,
			TotalBalance: balance,
		}).Error)
	}

	quotes.setPrice("600001", 10.00)
	buyStock(t, svc, "600001", 100)
	quotes.setPrice("600001", 12.00)
	_, err := svc.GetPositions(ctx) // 刷新持仓盈亏
	require.NoError(t, err)

	metrics, err := svc.GetPerformanceMetrics(ctx)
	require.NoError(t, err)

	assert.InDelta(t, -5.0, metrics.TotalReturnPct, 1e-9)
	assert.InDelta(t, (math.Pow(0.95, 365.0/4.0)-1)*100, metrics.AnnualizedReturnPct, 1e-9)
	// 峰值 1100000 回撤到 900000
	assert.InDelta(t, (1100000.0-900000.0)/1100000.0*100, metrics.MaxDrawdownPct, 1e-9)
	assert.Equal(t, int64(1), metrics.TotalTrades)
	assert.Equal(t, int64(1), metrics.ProfitableTrades)
	assert.InDelta(t, 100.0, metrics.WinRatePct, 1e-9)
}

func TestHoldingDays(t *testing.T) {
	svc, quotes := newTestService(t)
	ctx := context.Background()
	quotes.setPrice("600001", 10.00)
	buyStock(t, svc, "600001", 100)

	positions, err := svc.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	assert.Equal(t, 0, svc.HoldingDays(&positions[0]))

	svc.nowFn = func() time.Time { return time.Now().AddDate(0, 0, 5) }
	assert.Equal(t, 5, svc.HoldingDays(&positions[0]))

	assert.Equal(t, 0, svc.HoldingDays(nil))
}
