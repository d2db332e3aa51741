package config

import "strings"

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9992"
	defaultStorePath        = "data/stocksim.db"
	defaultQuoteBaseURL     = "https://push2.eastmoney.com"
	defaultQuoteTimeout     = 10
	defaultInitialBalance   = 1000000.0
	defaultCommissionRate   = 0.0003
	defaultCommissionMin    = 5.0
	defaultStampDutyRate    = 0.001
	defaultTransferFeeRate  = 0.0001
	defaultSweepInterval    = 30
	defaultSnapshotInterval = 600
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Quote.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
	)
}

func (q *QuoteConfig) applyDefaults(keys keySet) {
	if q == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("quote.base_url", &q.BaseURL, defaultQuoteBaseURL),
		fieldDefault{
			key:   "quote.timeout_seconds",
			need:  func() bool { return q.TimeoutSeconds <= 0 },
			apply: func() { q.TimeoutSeconds = defaultQuoteTimeout },
		},
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "trading.initial_balance",
			need:  func() bool { return t.InitialBalance <= 0 },
			apply: func() { t.InitialBalance = defaultInitialBalance },
		},
		fieldDefault{
			key:   "trading.commission_rate",
			need:  func() bool { return t.CommissionRate <= 0 },
			apply: func() { t.CommissionRate = defaultCommissionRate },
		},
		fieldDefault{
			key:   "trading.commission_min",
			need:  func() bool { return t.CommissionMin <= 0 },
			apply: func() { t.CommissionMin = defaultCommissionMin },
		},
		fieldDefault{
			key:   "trading.stamp_duty_rate",
			need:  func() bool { return t.StampDutyRate <= 0 },
			apply: func() { t.StampDutyRate = defaultStampDutyRate },
		},
		fieldDefault{
			key:   "trading.transfer_fee_rate",
			need:  func() bool { return t.TransferFeeRate <= 0 },
			apply: func() { t.TransferFeeRate = defaultTransferFeeRate },
		},
		fieldDefault{
			key:   "trading.sweep_interval_seconds",
			need:  func() bool { return t.SweepIntervalSeconds <= 0 },
			apply: func() { t.SweepIntervalSeconds = defaultSweepInterval },
		},
		fieldDefault{
			key:   "trading.snapshot_interval_seconds",
			need:  func() bool { return t.SnapshotIntervalSeconds <= 0 },
			apply: func() { t.SnapshotIntervalSeconds = defaultSnapshotInterval },
		},
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
