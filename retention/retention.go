// Package retention 周期性清理过期数据: 报文存储、订单投影、
// 告警日志与归档表共用同一把留存刻度。
package retention

import (
	"context"
	"time"

	"github.com/wyfcoding/fixmonitor/config"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/metrics"

	"github.com/robfig/cron/v3"
)

const (
	defaultSchedule = "@every 5m"
	defaultMaxAge   = 24 * time.Hour
	sweepTimeout    = time.Minute
)

// Pruner 可被留存任务清理的数据面。
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

// namedPruner 带名称, 用于日志与指标归因。
type namedPruner struct {
	name   string
	pruner Pruner
}

// Sweeper 留存清理任务。
type Sweeper struct {
	cron    *cron.Cron
	pruners []namedPruner
	maxAge  time.Duration
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewSweeper 创建清理任务, 被清理方通过 Register 挂载。
func NewSweeper(cfg config.RetentionConfig, logger *logging.Logger, m *metrics.Metrics) *Sweeper {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	return &Sweeper{
		cron:    cron.New(),
		maxAge:  maxAge,
		logger:  logger,
		metrics: m,
	}
}

// Register 挂载一个数据面。nil pruner 忽略。
func (s *Sweeper) Register(name string, p Pruner) {
	if p == nil {
		return
	}
	s.pruners = append(s.pruners, namedPruner{name: name, pruner: p})
}

// Start 按 cron 表达式调度清理, 立即返回。
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = defaultSchedule
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("retention sweeper started", "schedule", schedule, "max_age", s.maxAge)
	return nil
}

// Stop 停止调度并等待进行中的清理结束。
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("retention sweeper stopped")
}

// Sweep 立即执行一轮清理, 返回总删除数。运维接口也会直接调用。
func (s *Sweeper) Sweep(ctx context.Context) int {
	cutoff := time.Now().Add(-s.maxAge)
	total := 0

	for _, np := range s.pruners {
		pruned, err := np.pruner.Prune(ctx, cutoff)
		if err != nil {
			s.logger.Warn("retention prune failed", "target", np.name, "error", err)
			continue
		}
		if pruned > 0 {
			s.logger.Info("retention pruned", "target", np.name, "count", pruned)
		}
		total += pruned
	}

	if total > 0 && s.metrics != nil && s.metrics.RetentionPrunedTotal != nil {
		s.metrics.RetentionPrunedTotal.Add(float64(total))
	}
	return total
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	s.Sweep(ctx)
}
