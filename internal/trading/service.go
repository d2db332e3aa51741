// Package trading 实现模拟交易引擎：下单与持仓成本核算、A股手续费、
// 止盈止损巡检、账户快照与绩效统计。所有资金变动都在单个事务内完成。
package trading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stocksim/internal/logger"
	"stocksim/internal/quote"
	"stocksim/internal/store/gormstore"
	"stocksim/internal/store/model"
)

// Config 引擎级配置：初始资金与费率表。
type Config struct {
	InitialBalance float64
	Fees           FeeConfig
}

// Service 模拟交易服务。互斥锁保证同一时刻只有一个写入者：
// 并发下单或巡检触发卖出不会在 avg_cost/quantity/cash_balance 上相互覆盖。
type Service struct {
	store  *gormstore.Store
	quotes quote.Provider
	cfg    Config

	mu    sync.Mutex
	nowFn func() time.Time
}

// NewService 构造交易服务。
func NewService(store *gormstore.Store, quotes quote.Provider, cfg Config) *Service {
	if cfg.InitialBalance <= 0 {
		cfg.InitialBalance = 1000000
	}
	if cfg.Fees == (FeeConfig{}) {
		cfg.Fees = DefaultFeeConfig()
	}
	return &Service{
		store:  store,
		quotes: quotes,
		cfg:    cfg,
		nowFn:  time.Now,
	}
}

// PlaceOrderRequest 下单参数。Price 为 nil 表示市价单。
type PlaceOrderRequest struct {
	StockCode string
	OrderType string
	Quantity  int64
	Price     *float64
}

// OrderResult 下单结果。业务规则失败不返回 error，而是 Status=failed 加可读消息。
type OrderResult struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// GetAccount 获取账户信息（读取时重算市值与盈亏）。
func (s *Service) GetAccount(ctx context.Context) (*model.Account, error) {
	var account *model.Account
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		acct, err := s.getOrCreateAccount(tx)
		if err != nil {
			return err
		}
		if err := s.refreshAccount(tx, acct); err != nil {
			return err
		}
		account = acct
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetPositions 获取持仓列表，顺便按最新行情刷新价格与盈亏（尽力而为，行情拿不到就保留旧值）。
func (s *Service) GetPositions(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Order("created_at ASC").Find(&positions).Error; err != nil {
			return err
		}
		for i := range positions {
			q := s.fetchQuote(ctx, positions[i].StockCode)
			if err := s.refreshPositionPrice(tx, &positions[i], q); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// GetOrders 获取委托记录，按时间倒序。
func (s *Service) GetOrders(ctx context.Context, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var orders []model.Order
	err := s.store.DB().WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// PlaceOrder 下单。行情不可用时立即失败且不落库（订单号为 0）；
// 资金/持仓/类型校验失败会落一条 failed 委托记录；其余情况同步成交。
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placeOrder(ctx, req)
}

// placeOrder 持锁执行下单；止盈止损巡检复用此入口。
func (s *Service) placeOrder(ctx context.Context, req PlaceOrderRequest) (OrderResult, error) {
	if req.Quantity <= 0 {
		return OrderResult{
			Status:  model.OrderStatusFailed,
			Message: fmt.Sprintf("无效的委托数量: %d", req.Quantity),
		}, nil
	}

	q := s.fetchQuote(ctx, req.StockCode)
	if !q.Valid() {
		return OrderResult{
			Status:  model.OrderStatusFailed,
			Message: fmt.Sprintf("无法获取股票 %s 的实时行情", req.StockCode),
		}, nil
	}

	// 限价单按委托价立即成交（不与市价比对），市价单按当前行情价成交。
	executionPrice := q.CurrentPrice
	if req.Price != nil {
		executionPrice = *req.Price
	}
	amount := decToFloat(decFromFloat(executionPrice).Mul(decFromFloat(float64(req.Quantity))))

	var result OrderResult
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		account, err := s.getOrCreateAccount(tx)
		if err != nil {
			return err
		}

		switch req.OrderType {
		case model.OrderTypeBuy:
			// 资金校验不含手续费（成交扣款含手续费），余额可能因此透支最多一笔手续费。
			if account.CashBalance < amount {
				msg := fmt.Sprintf("可用资金不足，需要 ¥%.2f，当前 ¥%.2f", amount, account.CashBalance)
				return s.recordFailedOrder(tx, req, q, amount, msg, &result)
			}
		case model.OrderTypeSell:
			position, err := findPosition(tx, req.StockCode)
			if err != nil {
				return err
			}
			if position == nil || position.Quantity < req.Quantity {
				var held int64
				if position != nil {
					held = position.Quantity
				}
				msg := fmt.Sprintf("持仓不足，需要 %d 股，当前 %d 股", req.Quantity, held)
				return s.recordFailedOrder(tx, req, q, amount, msg, &result)
			}
		default:
			msg := fmt.Sprintf("无效的订单类型: %s", req.OrderType)
			return s.recordFailedOrder(tx, req, q, amount, msg, &result)
		}

		fees := s.cfg.Fees.CalculateFees(req.StockCode, req.OrderType, amount)

		order := model.Order{
			StockCode:      req.StockCode,
			StockName:      q.StockName,
			OrderType:      req.OrderType,
			Quantity:       req.Quantity,
			Price:          req.Price,
			Amount:         amount,
			Status:         model.OrderStatusFilled,
			FilledQuantity: req.Quantity,
			FilledPrice:    &executionPrice,
			FilledAmount:   &amount,
			Commission:     fees.Commission,
			StampDuty:      fees.StampDuty,
			TransferFee:    fees.TransferFee,
			TotalFee:       fees.TotalFee,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		switch req.OrderType {
		case model.OrderTypeBuy:
			if err := s.applyBuy(tx, account, req, q, amount, fees); err != nil {
				return err
			}
		case model.OrderTypeSell:
			if err := s.applySell(tx, account, req, q, amount, fees); err != nil {
				return err
			}
		}

		if err := s.refreshAccount(tx, account); err != nil {
			return err
		}

		action := "买入"
		if req.OrderType == model.OrderTypeSell {
			action = "卖出"
		}
		result = OrderResult{
			OrderID: order.ID,
			Status:  model.OrderStatusFilled,
			Message: fmt.Sprintf("%s成功，成交价 ¥%.2f", action, executionPrice),
		}
		return nil
	})
	if err != nil {
		return OrderResult{}, err
	}
	logger.Infof("委托完成 code=%s type=%s qty=%d status=%s", req.StockCode, req.OrderType, req.Quantity, result.Status)
	return result, nil
}

// recordFailedOrder 落一条失败委托并组装失败结果；不触碰账户与持仓。
func (s *Service) recordFailedOrder(tx *gorm.DB, req PlaceOrderRequest, q *quote.Quote, amount float64, msg string, result *OrderResult) error {
	order := model.Order{
		StockCode:    req.StockCode,
		StockName:    q.StockName,
		OrderType:    req.OrderType,
		Quantity:     req.Quantity,
		Price:        req.Price,
		Amount:       amount,
		Status:       model.OrderStatusFailed,
		ErrorMessage: msg,
	}
	if err := tx.Create(&order).Error; err != nil {
		return err
	}
	*result = OrderResult{OrderID: order.ID, Status: model.OrderStatusFailed, Message: msg}
	return nil
}

// applyBuy 扣款并按含费摊薄成本建仓/加仓。
// 平均成本每次整体重算而非增量更新，避免长期小额交易累积浮点误差。
func (s *Service) applyBuy(tx *gorm.DB, account *model.Account, req PlaceOrderRequest, q *quote.Quote, amount float64, fees FeeDetail) error {
	totalCost := decFromFloat(amount).Add(decFromFloat(fees.TotalFee))
	account.CashBalance = decToFloat(decFromFloat(account.CashBalance).Sub(totalCost))

	position, err := findPosition(tx, req.StockCode)
	if err != nil {
		return err
	}
	if position == nil {
		avgCost := totalCost.Div(decFromFloat(float64(req.Quantity)))
		position = &model.Position{
			StockCode:    req.StockCode,
			StockName:    q.StockName,
			Quantity:     req.Quantity,
			AvgCost:      decToFloat(avgCost),
			CurrentPrice: q.CurrentPrice,
			MarketValue:  decToFloat(decFromFloat(q.CurrentPrice).Mul(decFromFloat(float64(req.Quantity)))),
		}
		return tx.Create(position).Error
	}

	oldCost := decFromFloat(position.AvgCost).Mul(decFromFloat(float64(position.Quantity)))
	newQuantity := position.Quantity + req.Quantity
	position.AvgCost = decToFloat(oldCost.Add(totalCost).Div(decFromFloat(float64(newQuantity))))
	position.Quantity = newQuantity
	return s.refreshPositionPrice(tx, position, q)
}

// applySell 回款（扣除手续费）并减仓；数量清零时删除持仓行。
func (s *Service) applySell(tx *gorm.DB, account *model.Account, req PlaceOrderRequest, q *quote.Quote, amount float64, fees FeeDetail) error {
	proceeds := decFromFloat(amount).Sub(decFromFloat(fees.TotalFee))
	account.CashBalance = decToFloat(decFromFloat(account.CashBalance).Add(proceeds))

	position, err := findPosition(tx, req.StockCode)
	if err != nil {
		return err
	}
	if position == nil {
		return nil
	}
	position.Quantity -= req.Quantity
	if position.Quantity == 0 {
		return tx.Delete(position).Error
	}
	return s.refreshPositionPrice(tx, position, q)
}

// getOrCreateAccount 读取账户，不存在时按初始资金惰性创建（固定主键单行）。
func (s *Service) getOrCreateAccount(tx *gorm.DB) (*model.Account, error) {
	account := model.Account{
		ID:           model.AccountID,
		CashBalance:  s.cfg.InitialBalance,
		TotalBalance: s.cfg.InitialBalance,
	}
	if err := tx.Where(model.Account{ID: model.AccountID}).FirstOrCreate(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// refreshAccount 重算账户市值、总资产与盈亏并保存。派生字段只能重算，不单独赋值。
func (s *Service) refreshAccount(tx *gorm.DB, account *model.Account) error {
	var positions []model.Position
	if err := tx.Find(&positions).Error; err != nil {
		return err
	}
	marketValue := decimal.Zero
	for _, p := range positions {
		marketValue = marketValue.Add(decFromFloat(p.MarketValue))
	}
	account.MarketValue = decToFloat(marketValue)
	account.TotalBalance = decToFloat(decFromFloat(account.CashBalance).Add(marketValue))

	initial := decFromFloat(s.cfg.InitialBalance)
	profit := decFromFloat(account.TotalBalance).Sub(initial)
	account.ProfitLoss = decToFloat(profit)
	if initial.IsPositive() {
		account.ProfitLossPct = decToFloat(profit.Div(initial).Mul(decHundred))
	} else {
		account.ProfitLossPct = 0
	}
	return tx.Save(account).Error
}

// refreshPositionPrice 按行情刷新持仓价格与盈亏。行情缺失保留旧值，刷新是尽力而为。
func (s *Service) refreshPositionPrice(tx *gorm.DB, position *model.Position, q *quote.Quote) error {
	if q.Valid() {
		qty := decFromFloat(float64(position.Quantity))
		price := decFromFloat(q.CurrentPrice)
		cost := decFromFloat(position.AvgCost)
		position.CurrentPrice = q.CurrentPrice
		position.MarketValue = decToFloat(price.Mul(qty))
		position.ProfitLoss = decToFloat(price.Sub(cost).Mul(qty))
		if cost.IsPositive() {
			position.ProfitLossPct = decToFloat(price.Sub(cost).Div(cost).Mul(decHundred))
		} else {
			position.ProfitLossPct = 0
		}
	}
	return tx.Save(position).Error
}

// fetchQuote 拉取行情。任何错误都降级为“无行情”，由各调用方决定失败或跳过。
func (s *Service) fetchQuote(ctx context.Context, stockCode string) *quote.Quote {
	q, err := s.quotes.RealtimeQuote(ctx, stockCode)
	if err != nil {
		logger.Warnf("获取行情失败 code=%s err=%v", stockCode, err)
		return nil
	}
	return q
}

func findPosition(tx *gorm.DB, stockCode string) (*model.Position, error) {
	var position model.Position
	err := tx.Where("stock_code = ?", stockCode).First(&position).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &position, nil
}

// holdingDays 计算建仓至今的自然日天数。
func (s *Service) holdingDays(position *model.Position) int {
	if position == nil || position.CreatedAt.IsZero() {
		return 0
	}
	created := position.CreatedAt.Truncate(24 * time.Hour)
	today := s.nowFn().Truncate(24 * time.Hour)
	days := int(today.Sub(created).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
