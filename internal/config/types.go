package config

import "strings"

// Config 是 stocksim 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app"`
	Store   StoreConfig   `toml:"store"`
	Quote   QuoteConfig   `toml:"quote"`
	Trading TradingConfig `toml:"trading"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

// QuoteConfig 描述实时行情数据源的访问方式。
type QuoteConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TradingConfig 控制模拟账户初始资金、A股手续费率与后台任务周期。
// 费率是配置而非写死的业务规则，测试可注入自定义费率表。
type TradingConfig struct {
	InitialBalance          float64 `toml:"initial_balance"`
	CommissionRate          float64 `toml:"commission_rate"`           // 佣金率，默认万分之3
	CommissionMin           float64 `toml:"commission_min"`            // 佣金最低，默认5元
	StampDutyRate           float64 `toml:"stamp_duty_rate"`           // 印花税率，仅卖出
	TransferFeeRate         float64 `toml:"transfer_fee_rate"`         // 过户费率，仅沪市
	SweepIntervalSeconds    int     `toml:"sweep_interval_seconds"`    // 止盈止损巡检周期
	SnapshotIntervalSeconds int     `toml:"snapshot_interval_seconds"` // 账户快照周期（按日幂等）
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
