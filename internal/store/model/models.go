package model

import (
	"time"

	"gorm.io/datatypes"
)

// 订单类型 / 状态取值。本引擎没有挂单生命周期：每笔委托同步成交或失败。
const (
	OrderTypeBuy  = "buy"
	OrderTypeSell = "sell"

	OrderStatusFilled = "filled"
	OrderStatusFailed = "failed"
)

// 止盈止损触发类型。
const (
	TriggerNone       = "not_triggered"
	TriggerTakeProfit = "take_profit"
	TriggerStopLoss   = "stop_loss"
)

// AccountID 是模拟账户的固定主键：整个系统只有一行账户记录。
const AccountID int64 = 1

// Account 模拟交易账户（单行）。
// 市值/总资产/盈亏均为派生字段，由引擎在每次读写时重算，不单独变更。
type Account struct {
	ID            int64     `gorm:"column:id;primaryKey" json:"id"`
	CashBalance   float64   `gorm:"column:cash_balance" json:"cash_balance"`
	MarketValue   float64   `gorm:"column:market_value" json:"market_value"`
	TotalBalance  float64   `gorm:"column:total_balance" json:"total_balance"`
	ProfitLoss    float64   `gorm:"column:profit_loss" json:"profit_loss"`
	ProfitLossPct float64   `gorm:"column:profit_loss_pct" json:"profit_loss_pct"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string { return "trading_accounts" }

// Position 持仓，每只股票一行。数量减到 0 时整行删除，不保留零持仓。
// avg_cost 为含手续费的摊薄成本。
type Position struct {
	ID            int64     `gorm:"column:id;primaryKey" json:"id"`
	StockCode     string    `gorm:"column:stock_code;uniqueIndex" json:"stock_code"`
	StockName     string    `gorm:"column:stock_name" json:"stock_name"`
	Quantity      int64     `gorm:"column:quantity" json:"quantity"`
	AvgCost       float64   `gorm:"column:avg_cost" json:"avg_cost"`
	CurrentPrice  float64   `gorm:"column:current_price" json:"current_price"`
	MarketValue   float64   `gorm:"column:market_value" json:"market_value"`
	ProfitLoss    float64   `gorm:"column:profit_loss" json:"profit_loss"`
	ProfitLossPct float64   `gorm:"column:profit_loss_pct" json:"profit_loss_pct"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Position) TableName() string { return "trading_positions" }

// Order 委托记录，只追加不更新。
type Order struct {
	ID             int64      `gorm:"column:id;primaryKey" json:"id"`
	StockCode      string     `gorm:"column:stock_code;index" json:"stock_code"`
	StockName      string     `gorm:"column:stock_name" json:"stock_name"`
	OrderType      string     `gorm:"column:order_type" json:"order_type"`
	Quantity       int64      `gorm:"column:quantity" json:"quantity"`
	Price          *float64   `gorm:"column:price" json:"price"` // 委托价，市价单为 NULL
	Amount         float64    `gorm:"column:amount" json:"amount"`
	Status         string     `gorm:"column:status;index" json:"status"`
	FilledQuantity int64      `gorm:"column:filled_quantity" json:"filled_quantity"`
	FilledPrice    *float64   `gorm:"column:filled_price" json:"filled_price"`
	FilledAmount   *float64   `gorm:"column:filled_amount" json:"filled_amount"`
	Commission     float64    `gorm:"column:commission" json:"commission"`
	StampDuty      float64    `gorm:"column:stamp_duty" json:"stamp_duty"`
	TransferFee    float64    `gorm:"column:transfer_fee" json:"transfer_fee"`
	TotalFee       float64    `gorm:"column:total_fee" json:"total_fee"`
	ErrorMessage   string     `gorm:"column:error_message" json:"error_message"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string { return "trading_orders" }

// StopLoss 止盈止损设置，每只股票最多一条，逻辑上挂在对应持仓下。
// 百分比阈值在写入时即按持仓成本换算成绝对价格。
type StopLoss struct {
	ID              int64      `gorm:"column:id;primaryKey" json:"id"`
	StockCode       string     `gorm:"column:stock_code;uniqueIndex" json:"stock_code"`
	StockName       string     `gorm:"column:stock_name" json:"stock_name"`
	PositionID      int64      `gorm:"column:position_id" json:"position_id"`
	TakeProfitPrice *float64   `gorm:"column:take_profit_price" json:"take_profit_price"`
	TakeProfitPct   *float64   `gorm:"column:take_profit_pct" json:"take_profit_pct"`
	StopLossPrice   *float64   `gorm:"column:stop_loss_price" json:"stop_loss_price"`
	StopLossPct     *float64   `gorm:"column:stop_loss_pct" json:"stop_loss_pct"`
	IsActive        bool       `gorm:"column:is_active;index" json:"is_active"`
	TriggeredType   string     `gorm:"column:triggered_type" json:"triggered_type"`
	TriggeredAt     *time.Time `gorm:"column:triggered_at" json:"triggered_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (StopLoss) TableName() string { return "trading_stop_losses" }

// AccountHistory 账户每日快照，按日期唯一，重复记录当日会覆盖。
// record_date 使用 YYYY-MM-DD 文本，字典序即时间序。
type AccountHistory struct {
	ID                  int64     `gorm:"column:id;primaryKey" json:"id"`
	RecordDate          string    `gorm:"column:record_date;uniqueIndex" json:"record_date"`
	TotalBalance        float64   `gorm:"column:total_balance" json:"total_balance"`
	CashBalance         float64   `gorm:"column:cash_balance" json:"cash_balance"`
	MarketValue         float64   `gorm:"column:market_value" json:"market_value"`
	ProfitLoss          float64   `gorm:"column:profit_loss" json:"profit_loss"`
	ProfitLossPct       float64   `gorm:"column:profit_loss_pct" json:"profit_loss_pct"`
	DailyReturnPct      float64   `gorm:"column:daily_return_pct" json:"daily_return_pct"`
	CumulativeReturnPct float64   `gorm:"column:cumulative_return_pct" json:"cumulative_return_pct"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (AccountHistory) TableName() string { return "trading_account_histories" }

// TriggerEvent 止盈止损触发流水，供通知与审计查询。
type TriggerEvent struct {
	ID           int64          `gorm:"column:id;primaryKey" json:"id"`
	StockCode    string         `gorm:"column:stock_code;index" json:"stock_code"`
	StockName    string         `gorm:"column:stock_name" json:"stock_name"`
	TriggerType  string         `gorm:"column:trigger_type" json:"trigger_type"`
	TriggerPrice float64        `gorm:"column:trigger_price" json:"trigger_price"`
	Quantity     int64          `gorm:"column:quantity" json:"quantity"`
	OrderID      int64          `gorm:"column:order_id" json:"order_id"`
	Detail       datatypes.JSON `gorm:"column:detail;type:TEXT" json:"detail"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (TriggerEvent) TableName() string { return "trading_trigger_events" }
