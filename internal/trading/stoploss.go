package trading

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"stocksim/internal/logger"
	"stocksim/internal/store/model"
)

// SetStopLossRequest 止盈止损设置参数。百分比阈值相对持仓成本价，写入时即换算为绝对价格。
type SetStopLossRequest struct {
	StockCode       string
	TakeProfitPrice *float64
	TakeProfitPct   *float64
	StopLossPrice   *float64
	StopLossPct     *float64
}

// StopLossResult 设置/删除止盈止损的结果。
type StopLossResult struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	StopLoss *model.StopLoss `json:"stop_loss,omitempty"`
}

// TriggeredEvent 单次巡检中被触发的止盈止损。
type TriggeredEvent struct {
	StockCode    string  `json:"stock_code"`
	StockName    string  `json:"stock_name"`
	TriggerType  string  `json:"trigger_type"`
	TriggerPrice float64 `json:"trigger_price"`
	Quantity     int64   `json:"quantity"`
	OrderID      int64   `json:"order_id"`
}

// SetStopLoss 为已有持仓设置（或覆盖）止盈止损。覆盖会重新激活并清空触发状态。
func (s *Service) SetStopLoss(ctx context.Context, req SetStopLossRequest) (StopLossResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result StopLossResult
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		position, err := findPosition(tx, req.StockCode)
		if err != nil {
			return err
		}
		if position == nil {
			result = StopLossResult{
				Success: false,
				Message: fmt.Sprintf("股票 %s 没有持仓，无法设置止盈止损", req.StockCode),
			}
			return nil
		}

		takeProfitPrice := req.TakeProfitPrice
		if req.TakeProfitPct != nil {
			price := pctOfCost(position.AvgCost, *req.TakeProfitPct, true)
			takeProfitPrice = &price
		}
		stopLossPrice := req.StopLossPrice
		if req.StopLossPct != nil {
			price := pctOfCost(position.AvgCost, *req.StopLossPct, false)
			stopLossPrice = &price
		}

		var stopLoss model.StopLoss
		err = tx.Where("stock_code = ?", req.StockCode).First(&stopLoss).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		stopLoss.StockCode = req.StockCode
		stopLoss.StockName = position.StockName
		stopLoss.PositionID = position.ID
		stopLoss.TakeProfitPrice = takeProfitPrice
		stopLoss.TakeProfitPct = req.TakeProfitPct
		stopLoss.StopLossPrice = stopLossPrice
		stopLoss.StopLossPct = req.StopLossPct
		stopLoss.IsActive = true
		stopLoss.TriggeredType = model.TriggerNone
		stopLoss.TriggeredAt = nil
		if err := tx.Save(&stopLoss).Error; err != nil {
			return err
		}
		result = StopLossResult{Success: true, Message: "止盈止损设置成功", StopLoss: &stopLoss}
		return nil
	})
	if err != nil {
		return StopLossResult{}, err
	}
	return result, nil
}

// GetStopLoss 查询单只股票的止盈止损设置，不存在返回 nil。
func (s *Service) GetStopLoss(ctx context.Context, stockCode string) (*model.StopLoss, error) {
	var stopLoss model.StopLoss
	err := s.store.DB().WithContext(ctx).Where("stock_code = ?", stockCode).First(&stopLoss).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &stopLoss, nil
}

// ListStopLoss 列出所有激活中的止盈止损设置。
func (s *Service) ListStopLoss(ctx context.Context) ([]model.StopLoss, error) {
	var stopLosses []model.StopLoss
	err := s.store.DB().WithContext(ctx).Where("is_active = ?", true).Find(&stopLosses).Error
	if err != nil {
		return nil, err
	}
	return stopLosses, nil
}

// DeleteStopLoss 删除止盈止损设置。
func (s *Service) DeleteStopLoss(ctx context.Context, stockCode string) (StopLossResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result StopLossResult
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var stopLoss model.StopLoss
		err := tx.Where("stock_code = ?", stockCode).First(&stopLoss).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				result = StopLossResult{
					Success: false,
					Message: fmt.Sprintf("股票 %s 没有止盈止损设置", stockCode),
				}
				return nil
			}
			return err
		}
		if err := tx.Delete(&stopLoss).Error; err != nil {
			return err
		}
		result = StopLossResult{Success: true, Message: "止盈止损设置已删除"}
		return nil
	})
	if err != nil {
		return StopLossResult{}, err
	}
	return result, nil
}

// CheckStopLoss 巡检所有激活的止盈止损规则并触发全仓市价卖出。
// 同价位同时满足止盈与止损时止盈优先；单条规则单次巡检至多触发一种。
// 行情拿不到的规则本轮跳过，下轮重试；清仓失败的规则保持激活等待重试。
func (s *Service) CheckStopLoss(ctx context.Context) ([]TriggeredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stopLosses []model.StopLoss
	if err := s.store.DB().WithContext(ctx).Where("is_active = ?", true).Find(&stopLosses).Error; err != nil {
		return nil, err
	}

	var triggered []TriggeredEvent
	var deactivate []int64 // 持仓已不存在的规则
	type ruleUpdate struct {
		id          int64
		triggerType string
	}
	var fired []ruleUpdate

	for i := range stopLosses {
		sl := &stopLosses[i]

		position, err := findPosition(s.store.DB().WithContext(ctx), sl.StockCode)
		if err != nil {
			return nil, err
		}
		if position == nil {
			deactivate = append(deactivate, sl.ID)
			continue
		}

		q := s.fetchQuote(ctx, sl.StockCode)
		if !q.Valid() {
			continue
		}
		currentPrice := q.CurrentPrice

		triggerType := ""
		if sl.TakeProfitPrice != nil && decimalGTE(currentPrice, *sl.TakeProfitPrice) {
			triggerType = model.TriggerTakeProfit
			logger.Infof("触发止盈: %s, 当前价 ¥%.2f >= 止盈价 ¥%.2f", sl.StockCode, currentPrice, *sl.TakeProfitPrice)
		} else if sl.StopLossPrice != nil && decimalLTE(currentPrice, *sl.StopLossPrice) {
			triggerType = model.TriggerStopLoss
			logger.Infof("触发止损: %s, 当前价 ¥%.2f <= 止损价 ¥%.2f", sl.StockCode, currentPrice, *sl.StopLossPrice)
		}
		if triggerType == "" {
			continue
		}

		price := currentPrice
		result, err := s.placeOrder(ctx, PlaceOrderRequest{
			StockCode: sl.StockCode,
			OrderType: model.OrderTypeSell,
			Quantity:  position.Quantity,
			Price:     &price,
		})
		if err != nil {
			return nil, err
		}
		if result.Status != model.OrderStatusFilled {
			logger.Warnf("止盈止损清仓失败，规则保持激活 code=%s msg=%s", sl.StockCode, result.Message)
			continue
		}

		fired = append(fired, ruleUpdate{id: sl.ID, triggerType: triggerType})
		triggered = append(triggered, TriggeredEvent{
			StockCode:    sl.StockCode,
			StockName:    sl.StockName,
			TriggerType:  triggerType,
			TriggerPrice: currentPrice,
			Quantity:     position.Quantity,
			OrderID:      result.OrderID,
		})
	}

	if len(deactivate) == 0 && len(fired) == 0 {
		return triggered, nil
	}

	// 规则状态与触发流水在一个事务里一次性落库。
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if len(deactivate) > 0 {
			if err := tx.Model(&model.StopLoss{}).
				Where("id IN ?", deactivate).
				Update("is_active", false).Error; err != nil {
				return err
			}
		}
		now := s.nowFn()
		for _, f := range fired {
			if err := tx.Model(&model.StopLoss{}).
				Where("id = ?", f.id).
				Updates(map[string]interface{}{
					"is_active":      false,
					"triggered_type": f.triggerType,
					"triggered_at":   now,
				}).Error; err != nil {
				return err
			}
		}
		for _, ev := range triggered {
			detail, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			record := model.TriggerEvent{
				StockCode:    ev.StockCode,
				StockName:    ev.StockName,
				TriggerType:  ev.TriggerType,
				TriggerPrice: ev.TriggerPrice,
				Quantity:     ev.Quantity,
				OrderID:      ev.OrderID,
				Detail:       datatypes.JSON(detail),
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return triggered, nil
}

// ListTriggerEvents 查询最近的触发流水，按时间倒序。
func (s *Service) ListTriggerEvents(ctx context.Context, limit int) ([]model.TriggerEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []model.TriggerEvent
	err := s.store.DB().WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
