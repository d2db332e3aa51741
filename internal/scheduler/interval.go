// Package scheduler 提供串行的固定周期任务循环。
// 上一轮执行完才计算下一轮等待时间，同一任务不会出现并发执行。
package scheduler

import (
	"context"
	"time"

	"stocksim/internal/logger"
)

type IntervalScheduler struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	ctx context.Context
}

func NewIntervalScheduler(ctx context.Context, name string, interval time.Duration) *IntervalScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &IntervalScheduler{
		Name:     name,
		Interval: interval,
		ctx:      ctx,
	}
}

// Start 阻塞运行任务循环，直到 ctx 取消。
func (s *IntervalScheduler) Start(task func()) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("IntervalScheduler[%s]: task is nil, exit", s.Name)
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("IntervalScheduler[%s]: invalid interval=%s, exit", s.Name, s.Interval)
		return
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}

	logger.Infof("IntervalScheduler[%s]: started interval=%s run_immediately=%v", s.Name, s.Interval, s.RunImmediately)

	if s.RunImmediately {
		task()
	}

	timer := time.NewTimer(s.Interval)
	defer timer.Stop()
	for {
		select {
		case <-s.ctx.Done():
			logger.Infof("IntervalScheduler[%s]: ctx done, exit", s.Name)
			return
		case <-timer.C:
		}
		task()
		timer.Reset(s.Interval)
	}
}
