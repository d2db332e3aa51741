package trading

import (
	"strings"

	"github.com/shopspring/decimal"

	"stocksim/internal/store/model"
)

// FeeConfig A股交易费率表。作为显式配置注入，便于用不同费率表做确定性测试。
type FeeConfig struct {
	CommissionRate  float64 // 佣金率，双向收取
	CommissionMin   float64 // 佣金最低收取额
	StampDutyRate   float64 // 印花税率，仅卖出
	TransferFeeRate float64 // 过户费率，仅沪市（6 开头）
}

// DefaultFeeConfig 返回默认费率：佣金万3（最低5元）、印花税千1、过户费万1。
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		CommissionRate:  0.0003,
		CommissionMin:   5.0,
		StampDutyRate:   0.001,
		TransferFeeRate: 0.0001,
	}
}

// FeeDetail 单笔交易的手续费拆分。
type FeeDetail struct {
	Commission  float64 `json:"commission"`
	StampDuty   float64 `json:"stamp_duty"`
	TransferFee float64 `json:"transfer_fee"`
	TotalFee    float64 `json:"total_fee"`
}

// CalculateFees 计算一笔交易的手续费，纯函数。
// 佣金 = max(金额×佣金率, 最低佣金)；印花税仅卖出；过户费仅沪市代码。
func (f FeeConfig) CalculateFees(stockCode, orderType string, amount float64) FeeDetail {
	amt := decFromFloat(amount)

	commission := amt.Mul(decFromFloat(f.CommissionRate))
	floor := decFromFloat(f.CommissionMin)
	if commission.Cmp(floor) < 0 {
		commission = floor
	}

	stampDuty := decimal.Zero
	if orderType == model.OrderTypeSell {
		stampDuty = amt.Mul(decFromFloat(f.StampDutyRate))
	}

	transferFee := decimal.Zero
	if isShanghaiCode(stockCode) {
		transferFee = amt.Mul(decFromFloat(f.TransferFeeRate))
	}

	total := commission.Add(stampDuty).Add(transferFee)
	return FeeDetail{
		Commission:  decToFloat(commission),
		StampDuty:   decToFloat(stampDuty),
		TransferFee: decToFloat(transferFee),
		TotalFee:    decToFloat(total),
	}
}

// isShanghaiCode 按代码首位约定识别沪市股票（过户费仅沪市收取）。
func isShanghaiCode(stockCode string) bool {
	return strings.HasPrefix(strings.TrimSpace(stockCode), "6")
}
