// Package report 将账户快照渲染为收益率曲线页面。
package report

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	talib "github.com/markcheno/go-talib"

	"stocksim/internal/store/model"
)

const smaPeriod = 5

// RenderEquityCurve 渲染总资产曲线（带 SMA 均线叠加）为 HTML。
// histories 需按日期升序。
func RenderEquityCurve(w io.Writer, histories []model.AccountHistory) error {
	dates := make([]string, len(histories))
	balances := make([]float64, len(histories))
	balanceData := make([]opts.LineData, len(histories))
	returnData := make([]opts.LineData, len(histories))
	for i, h := range histories {
		dates[i] = h.RecordDate
		balances[i] = h.TotalBalance
		balanceData[i] = opts.LineData{Value: h.TotalBalance}
		returnData[i] = opts.LineData{Value: h.CumulativeReturnPct}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "模拟账户收益曲线", Left: "left"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	line.SetXAxis(dates)
	line.AddSeries("总资产", balanceData)
	if len(balances) >= smaPeriod {
		sma := talib.Sma(balances, smaPeriod)
		line.AddSeries("SMA5", toLineData(sma))
	}
	line.AddSeries("累计收益率%", returnData)

	return line.Render(w)
}

// toLineData 将 talib 序列转换为图表数据；talib 输出的前导 0 期保持空点。
func toLineData(series []float64) []opts.LineData {
	data := make([]opts.LineData, len(series))
	for i, v := range series {
		if i < smaPeriod-1 {
			data[i] = opts.LineData{Value: nil}
			continue
		}
		data[i] = opts.LineData{Value: v}
	}
	return data
}
