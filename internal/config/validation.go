package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Quote.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("store.path cannot be empty")
	}
	return nil
}

func (q *QuoteConfig) validate() error {
	if strings.TrimSpace(q.BaseURL) == "" {
		return fmt.Errorf("quote.base_url cannot be empty")
	}
	if q.TimeoutSeconds <= 0 {
		return fmt.Errorf("quote.timeout_seconds must be > 0")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.InitialBalance <= 0 {
		return fmt.Errorf("trading.initial_balance must be > 0")
	}
	if t.CommissionRate < 0 || t.StampDutyRate < 0 || t.TransferFeeRate < 0 {
		return fmt.Errorf("trading fee rates must be >= 0")
	}
	if t.CommissionMin < 0 {
		return fmt.Errorf("trading.commission_min must be >= 0")
	}
	if t.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("trading.sweep_interval_seconds must be > 0")
	}
	if t.SnapshotIntervalSeconds <= 0 {
		return fmt.Errorf("trading.snapshot_interval_seconds must be > 0")
	}
	return nil
}
