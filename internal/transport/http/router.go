package tradinghttp

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stocksim/internal/logger"
	"stocksim/internal/report"
	"stocksim/internal/store/model"
	"stocksim/internal/trading"
)

// Router 暴露模拟交易的查询与操作接口。
type Router struct {
	service *trading.Service
}

func NewRouter(service *trading.Service) *Router {
	return &Router{service: service}
}

// Register 将交易路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/account", r.handleGetAccount)
	group.GET("/positions", r.handleGetPositions)
	group.GET("/orders", r.handleGetOrders)
	group.POST("/order", r.handlePlaceOrder)
	group.POST("/stop-loss", r.handleSetStopLoss)
	group.GET("/stop-loss", r.handleListStopLoss)
	group.GET("/stop-loss/:code", r.handleGetStopLoss)
	group.DELETE("/stop-loss/:code", r.handleDeleteStopLoss)
	group.GET("/history", r.handleGetHistory)
	group.GET("/metrics", r.handleGetMetrics)
	group.GET("/events", r.handleListEvents)
	group.GET("/report/equity", r.handleEquityReport)
}

// placeOrderRequest 下单请求体。
type placeOrderRequest struct {
	StockCode string   `json:"stock_code" binding:"required"`
	OrderType string   `json:"order_type" binding:"required"`
	Quantity  int64    `json:"quantity" binding:"required,gt=0"`
	Price     *float64 `json:"price"`
}

// setStopLossRequest 止盈止损设置请求体。
type setStopLossRequest struct {
	StockCode       string   `json:"stock_code" binding:"required"`
	TakeProfitPrice *float64 `json:"take_profit_price"`
	TakeProfitPct   *float64 `json:"take_profit_pct"`
	StopLossPrice   *float64 `json:"stop_loss_price"`
	StopLossPct     *float64 `json:"stop_loss_pct"`
}

// positionView 在持仓之上附加持仓天数。
type positionView struct {
	model.Position
	HoldingDays int `json:"holding_days"`
}

func (r *Router) handleGetAccount(c *gin.Context) {
	account, err := r.service.GetAccount(c.Request.Context())
	if err != nil {
		internalError(c, "获取账户信息失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

func (r *Router) handleGetPositions(c *gin.Context) {
	positions, err := r.service.GetPositions(c.Request.Context())
	if err != nil {
		internalError(c, "获取持仓列表失败", err)
		return
	}
	views := make([]positionView, len(positions))
	for i := range positions {
		views[i] = positionView{
			Position:    positions[i],
			HoldingDays: r.service.HoldingDays(&positions[i]),
		}
	}
	c.JSON(http.StatusOK, gin.H{"positions": views, "total": len(views)})
}

func (r *Router) handleGetOrders(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	orders, err := r.service.GetOrders(c.Request.Context(), limit)
	if err != nil {
		internalError(c, "获取委托记录失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

func (r *Router) handlePlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	result, err := r.service.PlaceOrder(c.Request.Context(), trading.PlaceOrderRequest{
		StockCode: strings.TrimSpace(req.StockCode),
		OrderType: strings.TrimSpace(req.OrderType),
		Quantity:  req.Quantity,
		Price:     req.Price,
	})
	if err != nil {
		internalError(c, "下单失败", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r *Router) handleSetStopLoss(c *gin.Context) {
	var req setStopLossRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	result, err := r.service.SetStopLoss(c.Request.Context(), trading.SetStopLossRequest{
		StockCode:       strings.TrimSpace(req.StockCode),
		TakeProfitPrice: req.TakeProfitPrice,
		TakeProfitPct:   req.TakeProfitPct,
		StopLossPrice:   req.StopLossPrice,
		StopLossPct:     req.StopLossPct,
	})
	if err != nil {
		internalError(c, "设置止盈止损失败", err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r *Router) handleGetStopLoss(c *gin.Context) {
	stopLoss, err := r.service.GetStopLoss(c.Request.Context(), c.Param("code"))
	if err != nil {
		internalError(c, "获取止盈止损失败", err)
		return
	}
	if stopLoss == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "未设置止盈止损"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stop_loss": stopLoss})
}

func (r *Router) handleListStopLoss(c *gin.Context) {
	stopLosses, err := r.service.ListStopLoss(c.Request.Context())
	if err != nil {
		internalError(c, "获取止盈止损列表失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stop_losses": stopLosses, "total": len(stopLosses)})
}

func (r *Router) handleDeleteStopLoss(c *gin.Context) {
	result, err := r.service.DeleteStopLoss(c.Request.Context(), c.Param("code"))
	if err != nil {
		internalError(c, "删除止盈止损失败", err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusNotFound, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r *Router) handleGetHistory(c *gin.Context) {
	days := queryInt(c, "days", 30)
	if days > 365 {
		days = 365
	}
	histories, err := r.service.GetAccountHistory(c.Request.Context(), days)
	if err != nil {
		internalError(c, "获取账户历史失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"histories": histories, "total": len(histories)})
}

func (r *Router) handleGetMetrics(c *gin.Context) {
	metrics, err := r.service.GetPerformanceMetrics(c.Request.Context())
	if err != nil {
		internalError(c, "获取绩效指标失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": metrics})
}

func (r *Router) handleListEvents(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	events, err := r.service.ListTriggerEvents(c.Request.Context(), limit)
	if err != nil {
		internalError(c, "获取触发流水失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": len(events)})
}

func (r *Router) handleEquityReport(c *gin.Context) {
	days := queryInt(c, "days", 90)
	histories, err := r.service.GetAccountHistory(c.Request.Context(), days)
	if err != nil {
		internalError(c, "获取账户历史失败", err)
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderEquityCurve(c.Writer, histories); err != nil {
		internalError(c, "渲染收益曲线失败", err)
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func internalError(c *gin.Context, msg string, err error) {
	logger.Errorf("%s: %v", msg, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": msg})
}
