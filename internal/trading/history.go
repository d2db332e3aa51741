package trading

import (
	"context"
	"math"

	"gorm.io/gorm"

	"stocksim/internal/store/model"
)

const dateLayout = "2006-01-02"

// SnapshotResult 快照写入结果。
type SnapshotResult struct {
	RecordDate          string  `json:"record_date"`
	TotalBalance        float64 `json:"total_balance"`
	DailyReturnPct      float64 `json:"daily_return_pct"`
	CumulativeReturnPct float64 `json:"cumulative_return_pct"`
}

// PerformanceMetrics 绩效指标。
// 胜率与平均持仓天数基于当前持仓而非已平仓交易，是口径上的近似；
// profitable_trades 同样沿用该持仓口径，与 total_trades（全部成交委托数）并非同一母体。
type PerformanceMetrics struct {
	TotalReturnPct      float64 `json:"total_return_pct"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	WinRatePct          float64 `json:"win_rate_pct"`
	TotalTrades         int64   `json:"total_trades"`
	ProfitableTrades    int64   `json:"profitable_trades"`
	AverageHoldingDays  float64 `json:"average_holding_days"`
}

// RecordAccountHistory 写当日账户快照。按日期幂等：同日重跑覆盖当日行。
// 日收益率相对日期上最近的一条更早快照计算（与写入顺序无关）。
func (s *Service) RecordAccountHistory(ctx context.Context) (SnapshotResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result SnapshotResult
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		account, err := s.getOrCreateAccount(tx)
		if err != nil {
			return err
		}
		if err := s.refreshAccount(tx, account); err != nil {
			return err
		}

		today := s.nowFn().Format(dateLayout)

		var previous model.AccountHistory
		hasPrevious := true
		err = tx.Where("record_date < ?", today).
			Order("record_date DESC").
			First(&previous).Error
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			hasPrevious = false
		}

		dailyReturnPct := 0.0
		if hasPrevious && previous.TotalBalance > 0 {
			prev := decFromFloat(previous.TotalBalance)
			dailyReturnPct = decToFloat(decFromFloat(account.TotalBalance).Sub(prev).Div(prev).Mul(decHundred))
		}

		cumulativeReturnPct := 0.0
		initial := decFromFloat(s.cfg.InitialBalance)
		if initial.IsPositive() {
			cumulativeReturnPct = decToFloat(decFromFloat(account.TotalBalance).Sub(initial).Div(initial).Mul(decHundred))
		}

		var history model.AccountHistory
		err = tx.Where("record_date = ?", today).First(&history).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		history.RecordDate = today
		history.TotalBalance = account.TotalBalance
		history.CashBalance = account.CashBalance
		history.MarketValue = account.MarketValue
		history.ProfitLoss = account.ProfitLoss
		history.ProfitLossPct = account.ProfitLossPct
		history.DailyReturnPct = dailyReturnPct
		history.CumulativeReturnPct = cumulativeReturnPct
		if err := tx.Save(&history).Error; err != nil {
			return err
		}

		result = SnapshotResult{
			RecordDate:          today,
			TotalBalance:        account.TotalBalance,
			DailyReturnPct:      dailyReturnPct,
			CumulativeReturnPct: cumulativeReturnPct,
		}
		return nil
	})
	if err != nil {
		return SnapshotResult{}, err
	}
	return result, nil
}

// GetAccountHistory 获取最近 days 天的账户快照，按日期升序（用于收益率曲线）。
func (s *Service) GetAccountHistory(ctx context.Context, days int) ([]model.AccountHistory, error) {
	if days <= 0 {
		days = 30
	}
	startDate := s.nowFn().AddDate(0, 0, -days).Format(dateLayout)
	var histories []model.AccountHistory
	err := s.store.DB().WithContext(ctx).
		Where("record_date >= ?", startDate).
		Order("record_date ASC").
		Find(&histories).Error
	if err != nil {
		return nil, err
	}
	return histories, nil
}

// GetPerformanceMetrics 从账户快照序列推导绩效指标。
// 快照不足两条时返回全零。年化按快照条数折算（交易日近似，非自然日跨度）。
func (s *Service) GetPerformanceMetrics(ctx context.Context) (PerformanceMetrics, error) {
	var histories []model.AccountHistory
	err := s.store.DB().WithContext(ctx).
		Order("record_date ASC").
		Find(&histories).Error
	if err != nil {
		return PerformanceMetrics{}, err
	}
	if len(histories) < 2 {
		return PerformanceMetrics{}, nil
	}

	first := histories[0].TotalBalance
	last := histories[len(histories)-1].TotalBalance

	totalReturnPct := 0.0
	if first > 0 {
		f := decFromFloat(first)
		totalReturnPct = decToFloat(decFromFloat(last).Sub(f).Div(f).Mul(decHundred))
	}

	annualizedReturnPct := 0.0
	dayCount := len(histories)
	if dayCount > 0 && first > 0 {
		annualizedReturnPct = (math.Pow(last/first, 365.0/float64(dayCount)) - 1) * 100
	}

	maxDrawdownPct := 0.0
	peak := first
	for _, h := range histories {
		if h.TotalBalance > peak {
			peak = h.TotalBalance
		}
		if peak > 0 {
			drawdown := (peak - h.TotalBalance) / peak * 100
			if drawdown > maxDrawdownPct {
				maxDrawdownPct = drawdown
			}
		}
	}

	var totalTrades int64
	err = s.store.DB().WithContext(ctx).
		Model(&model.Order{}).
		Where("status = ?", model.OrderStatusFilled).
		Count(&totalTrades).Error
	if err != nil {
		return PerformanceMetrics{}, err
	}

	var positions []model.Position
	if err := s.store.DB().WithContext(ctx).Find(&positions).Error; err != nil {
		return PerformanceMetrics{}, err
	}

	var profitableTrades int64
	totalHoldingDays := 0
	for i := range positions {
		totalHoldingDays += s.holdingDays(&positions[i])
		if positions[i].ProfitLoss > 0 {
			profitableTrades++
		}
	}

	winRatePct := 0.0
	averageHoldingDays := 0.0
	if len(positions) > 0 {
		winRatePct = float64(profitableTrades) / float64(len(positions)) * 100
		averageHoldingDays = float64(totalHoldingDays) / float64(len(positions))
	}

	return PerformanceMetrics{
		TotalReturnPct:      totalReturnPct,
		AnnualizedReturnPct: annualizedReturnPct,
		MaxDrawdownPct:      maxDrawdownPct,
		WinRatePct:          winRatePct,
		TotalTrades:         totalTrades,
		ProfitableTrades:    profitableTrades,
		AverageHoldingDays:  averageHoldingDays,
	}, nil
}

// HoldingDays 对外暴露持仓天数计算（持仓列表展示用）。
func (s *Service) HoldingDays(position *model.Position) int {
	return s.holdingDays(position)
}
