// Package app 负责应用级编排：配置 → 存储 → 行情 → 交易服务 → HTTP 与后台任务。
package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"stocksim/internal/config"
	"stocksim/internal/logger"
	"stocksim/internal/quote"
	"stocksim/internal/scheduler"
	"stocksim/internal/store/gormstore"
	"stocksim/internal/trading"
	tradinghttp "stocksim/internal/transport/http"
)

type App struct {
	cfg     *config.Config
	store   *gormstore.Store
	service *trading.Service
	server  *tradinghttp.Server
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	store, err := gormstore.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	provider := quote.NewEastmoneyClient(cfg.Quote.BaseURL, time.Duration(cfg.Quote.TimeoutSeconds)*time.Second)

	service := trading.NewService(store, provider, trading.Config{
		InitialBalance: cfg.Trading.InitialBalance,
		Fees: trading.FeeConfig{
			CommissionRate:  cfg.Trading.CommissionRate,
			CommissionMin:   cfg.Trading.CommissionMin,
			StampDutyRate:   cfg.Trading.StampDutyRate,
			TransferFeeRate: cfg.Trading.TransferFeeRate,
		},
	})

	server, err := tradinghttp.NewServer(cfg.App.HTTPAddr, service)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
	}

	return &App{cfg: cfg, store: store, service: service, server: server}, nil
}

// Run 启动 HTTP 服务与后台任务，阻塞直到 ctx 取消或出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.store.Close()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		sweep := scheduler.NewIntervalScheduler(ctx, "stoploss-sweep",
			time.Duration(a.cfg.Trading.SweepIntervalSeconds)*time.Second)
		sweep.Start(func() {
			triggered, err := a.service.CheckStopLoss(ctx)
			if err != nil {
				logger.Errorf("止盈止损巡检失败: %v", err)
				return
			}
			if len(triggered) > 0 {
				logger.Infof("止盈止损巡检完成，本轮触发 %d 条", len(triggered))
			}
		})
		return nil
	})

	group.Go(func() error {
		snapshot := scheduler.NewIntervalScheduler(ctx, "account-snapshot",
			time.Duration(a.cfg.Trading.SnapshotIntervalSeconds)*time.Second)
		snapshot.RunImmediately = true
		snapshot.Start(func() {
			result, err := a.service.RecordAccountHistory(ctx)
			if err != nil {
				logger.Errorf("账户快照失败: %v", err)
				return
			}
			logger.Debugf("账户快照完成 date=%s total=%.2f", result.RecordDate, result.TotalBalance)
		})
		return nil
	})

	return group.Wait()
}

// Service 暴露交易服务实例（测试用）。
func (a *App) Service() *trading.Service {
	if a == nil {
		return nil
	}
	return a.service
}
