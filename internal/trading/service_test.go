package trading

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocksim/internal/store/model"
)

func TestPlaceOrderBuy(t *testing.T) {
	svc, quotes := newTestService(t)
	ctx := context.Background()
	quotes.setPrice("600001", 10.00)

	result, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "600001",
		OrderType: model.OrderTypeBuy,
		Quantity:  100,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFilled, result.Status)
	assert.NotZero(t, result.OrderID)
	assert.Contains(t, result.Message, "买入成功")

	// 金额 1000，佣金 5（触发最低），过户费 0.10，总费 5.10
	account, err := svc.GetAccount(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 998994.90, account.CashBalance, 1e-9)
	assert.InDelta(t, 1000.00, account.MarketValue, 1e-9)
	assert.InDelta(t, 999994.90, account.TotalBalance, 1e-9)
	assert.InDelta(t, -5.10, account.ProfitLoss, 1e-9)

	positions, err := svc.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, int64(100), positions[0].Quantity)
	assert.InDelta(t, 10.051, positions[0].AvgCost, 1e-9)

	orders, err := svc.GetOrders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.InDelta(t, 5.0, orders[0].Commission, 1e-9)
	assert.InDelta(t, 0.10, orders[0].TransferFee, 1e-9)
	assert.InDelta(t, 5.10, orders[0].TotalFee, 1e-9)
	assert.Zero(t, orders[0].StampDuty)
}

func TestPlaceOrderSellAtLimitPrice(t *testing.T) {
	svc, quotes := newTestService(t)
	ctx := context.Background()
	quotes.setPrice("600001", 10.00)

	_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "600001",
		OrderType: model.OrderTypeBuy,
		Quantity:  100,
	})
	require.NoError(t, err)

	// 限价单直接按委托价成交，不与市价比对
	limit := 12.00
	result, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "600001",
		OrderType: model.OrderTypeSell,
		Quantity:  100,
		Price:     &limit,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFilled, result.Status)
	assert.Contains(t, result.Message, "卖出成功")
	assert.Contains(t, result.Message, "12.00")

	// 金额 1200，佣金 5，印花税 1.20，过户费 0.12，净回款 1193.68
	account, err := svc.GetAccount(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1000188.58, account.CashBalance, 1e-9)
	assert.Zero(t, account.MarketValue)

	positions, err := svc.GetPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestPlaceOrderPartialSellKeepsPosition(t *testing.T) {
	svc, quotes := newTestService(t)
	ctx := context.Background()
	quotes.setPrice("000001", 10.00)

	_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "000001",
		OrderType: model.OrderTypeBuy,
		Quantity:  200,
	})
	require.NoError(t, err)

	_, err = svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "000001",
		OrderType: model.OrderTypeSell,
		Quantity:  100,
	})
	require.NoError(t, err)

	positions, err := svc.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, int64(100), positions[0].Quantity)
	// 减仓不改摊薄成本：2000+5 的建仓成本摊在 200 股上
	assert.InDelta(t, 10.025, positions[0].AvgCost, 1e-9)
}

func TestPlaceOrderWeightedAverageCost(t *testing.T) {
	svc, quotes := newTestService(t)
	ctx := context.Background()

	quotes.setPrice("000001", 10.00)
	_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "000001",
		OrderType: model.OrderTypeBuy,
		Quantity:  100,
	})
	require.NoError(t, err)

	quotes.setPrice("000001", 20.00)
	_, err = svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "000001",
		OrderType: model.OrderTypeBuy,
		Quantity:  100,
	})
	require.NoError(t, err)

	// (1000+5 + 2000+5) / 200 = 15.05
	positions, err := svc.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, int64(200), positions[0].Quantity)
	assert.InDelta(t, 15.05, positions[0].AvgCost, 1e-9)
}

func TestPlaceOrderInsufficientCash(t *testing.T) {
	svc, quotes := newTestService(t)
	ctx := context.Background()
	quotes.setPrice("600001", 100.00)

	result, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "600001",
		OrderType: model.OrderTypeBuy,
		Quantity:  20000, // 需要 200 万
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFailed, result.Status)
	assert.NotZero(t, result.OrderID)
	assert.Contains(t, result.Message, "可用资金不足")

	// 失败委托落库，账户与持仓不动
	orders, err := svc.GetOrders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, model.OrderStatusFailed, orders[0].Status)
	assert.Equal(t, result.Message, orders[0].ErrorMessage)

	account, err := svc.GetAccount(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1000000, account.CashBalance, 1e-9)

	positions, err := svc.GetPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestPlaceOrderInsufficientHoldings(t *testing.T) {
	svc, quotes := newTestService(t)
	ctx := context.Background()
	quotes.setPrice("600001", 10.00)

	_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "600001",
		OrderType: model.OrderTypeBuy,
		Quantity:  100,
	})
	require.NoError(t, err)

	result, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "600001",
		OrderType: model.OrderTypeSell,
		Quantity:  200,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFailed, result.Status)
	assert.Contains(t, result.Message, "持仓不足，需要 200 股，当前 100 股")

	// 持仓保持不变
	positions, err := svc.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, int64(100), positions[0].Quantity)
}

func TestPlaceOrderInvalidType(t *testing.T) {
	svc, quotes := newTestService(t)
	ctx := context.Background()
	quotes.setPrice("600001", 10.00)

	result, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "600001",
		OrderType: "short",
		Quantity:  100,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFailed, result.Status)
	assert.Contains(t, result.Message, "无效的订单类型")

	orders, err := svc.GetOrders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, model.OrderStatusFailed, orders[0].Status)
}

func TestPlaceOrderQuoteUnavailable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "600999",
		OrderType: model.OrderTypeBuy,
		Quantity:  100,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFailed, result.Status)
	assert.Zero(t, result.OrderID)
	assert.Contains(t, result.Message, "无法获取股票 600999 的实时行情")

	// 行情失败不落委托记录
	orders, err := svc.GetOrders(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderInvalidQuantity(t *testing.T) {
	svc, quotes := newTestService(t)
	ctx := context.Background()
	quotes.setPrice("600001", 10.00)

	result, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "600001",
		OrderType: model.OrderTypeBuy,
		Quantity:  0,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFailed, result.Status)
	assert.Zero(t, result.OrderID)

	orders, err := svc.GetOrders(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestGetAccountCreatesInitialAccount(t *testing.T) {
	svc, _ := newTestService(t)

	account, err := svc.GetAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.AccountID, account.ID)
	assert.InDelta(t, 1000000, account.CashBalance, 1e-9)
	assert.InDelta(t, 1000000, account.TotalBalance, 1e-9)
	assert.Zero(t, account.ProfitLoss)
}

func TestGetPositionsRefreshesPrice(t *testing.T) {
	svc, quotes := newTestService(t)
	ctx := context.Background()
	quotes.setPrice("000001", 10.00)

	_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: "000001",
		OrderType: model.OrderTypeBuy,
		Quantity:  100,
	})
	require.NoError(t, err)

	quotes.setPrice("000001", 11.00)
	positions, err := svc.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.InDelta(t, 11.00, positions[0].CurrentPrice, 1e-9)
	assert.InDelta(t, 1100.00, positions[0].MarketValue, 1e-9)
	// 成本 10.05，(11-10.05)*100 = 95
	assert.InDelta(t, 95.00, positions[0].ProfitLoss, 1e-9)

	// 行情断流时保留旧值
	quotes.clearPrice("000001")
	positions, err = svc.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.InDelta(t, 11.00, positions[0].CurrentPrice, 1e-9)
	assert.InDelta(t, 1100.00, positions[0].MarketValue, 1e-9)
}
