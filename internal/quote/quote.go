// Package quote 提供实时行情访问能力。
// 引擎对“查无此股”“价格字段缺失”“网络失败”一视同仁：拿不到有效价格即视为行情不可用。
package quote

import "context"

// Quote 单只股票的实时快照。
type Quote struct {
	StockCode    string
	StockName    string
	CurrentPrice float64
}

// Valid 报告行情是否携带可用于定价的价格。
func (q *Quote) Valid() bool {
	return q != nil && q.CurrentPrice > 0
}

// Provider 抽象行情数据源。返回 (nil, nil) 表示查询成功但无该股行情。
type Provider interface {
	RealtimeQuote(ctx context.Context, stockCode string) (*Quote, error)
}
