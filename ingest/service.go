// Package ingest 是报文处理流水线: 宽松解析 → 入库 → 订单投影 →
// 告警求值 → 实时广播, 归档与事件发布在有界 worker 池里异步执行。
// 严格校验是独立入口, 校验请求不落库。
package ingest

import (
	"context"
	"time"

	"github.com/wyfcoding/fixmonitor/alert"
	"github.com/wyfcoding/fixmonitor/archive"
	"github.com/wyfcoding/fixmonitor/broadcast"
	"github.com/wyfcoding/fixmonitor/events"
	"github.com/wyfcoding/fixmonitor/fix"
	"github.com/wyfcoding/fixmonitor/idgen"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/metrics"
	"github.com/wyfcoding/fixmonitor/security"
	"github.com/wyfcoding/fixmonitor/store"
	"github.com/wyfcoding/fixmonitor/worker"
	"github.com/wyfcoding/fixmonitor/xerrors"
)

const defaultMaxMessageBytes = 64 * 1024

// Options 流水线的可选协作方, 均可为 nil (对应能力关闭)。
type Options struct {
	Alerts    *alert.Engine
	Archive   *archive.Archive
	Publisher *events.Publisher
	Hub       *broadcast.Hub
	Metrics   *metrics.Metrics
	Pool      *worker.Pool
}

// Service 摄取服务。
type Service struct {
	store           store.Store
	orders          *store.OrderProjection
	opts            Options
	logger          *logging.Logger
	maxMessageBytes int
}

// NewService 创建摄取服务。
func NewService(s store.Store, orders *store.OrderProjection, maxMessageBytes int, opts Options, logger *logging.Logger) *Service {
	if maxMessageBytes <= 0 {
		maxMessageBytes = defaultMaxMessageBytes
	}
	return &Service{
		store:           s,
		orders:          orders,
		opts:            opts,
		logger:          logger,
		maxMessageBytes: maxMessageBytes,
	}
}

func (s *Service) countIngested(source, result string) {
	if s.opts.Metrics != nil && s.opts.Metrics.MessagesIngestedTotal != nil {
		s.opts.Metrics.MessagesIngestedTotal.WithLabelValues(source, result).Inc()
	}
}

// Ingest 处理单条原始报文: 宽松解析后入库并触发全部下游动作。
// 宽松解析永不失败, 错误只来自参数或存储后端。
func (s *Service) Ingest(ctx context.Context, raw, source string) (*store.Message, error) {
	if raw == "" {
		s.countIngested(source, "rejected")
		return nil, xerrors.ErrEmptyBody
	}
	if len(raw) > s.maxMessageBytes {
		s.countIngested(source, "rejected")
		return nil, xerrors.ErrBodyTooLarge
	}

	parsed := fix.ParseRelaxed(raw)
	msg := &store.Message{
		ID:            idgen.GenMessageID(),
		Source:        source,
		Fingerprint:   security.Fingerprint(parsed.Raw),
		ReceivedAt:    time.Now(),
		ParsedMessage: parsed,
	}

	if err := s.store.Append(ctx, msg); err != nil {
		s.countIngested(source, "rejected")
		s.logger.ErrorContext(ctx, "failed to append message", "source", source, "error", err)
		return nil, xerrors.Wrap(err, xerrors.ErrUnavailable, "message store unavailable")
	}
	s.countIngested(source, "accepted")

	s.orders.Apply(msg)

	if s.opts.Hub != nil {
		s.opts.Hub.Publish(broadcast.TopicMessages, msg)
	}

	if s.opts.Alerts != nil {
		for _, fired := range s.opts.Alerts.Evaluate(ctx, msg) {
			if s.opts.Hub != nil {
				s.opts.Hub.Publish(broadcast.TopicAlerts, fired)
			}
			if s.opts.Publisher != nil {
				s.submitAsync(func(taskCtx context.Context) {
					s.opts.Publisher.AlertFired(taskCtx, fired)
				})
			}
		}
	}

	s.submitAsync(func(taskCtx context.Context) {
		if s.opts.Archive != nil {
			if err := s.opts.Archive.Save(taskCtx, msg); err != nil {
				s.logger.Warn("failed to archive message", "id", msg.ID, "error", err)
			}
		}
		if s.opts.Publisher != nil {
			s.opts.Publisher.MessageIngested(taskCtx, msg)
		}
	})

	return msg, nil
}

// submitAsync 尽力而为地提交异步任务, 池满时丢弃并告警。
func (s *Service) submitAsync(task worker.Task) {
	if s.opts.Pool == nil {
		task(context.Background())
		return
	}
	if err := s.opts.Pool.TrySubmit(task); err != nil {
		s.logger.Warn("ingest side-effect queue saturated, dropping task", "error", err)
	}
}

// ValidationReport 严格校验的完整诊断: 判定结果 + 修复建议一次给全。
type ValidationReport struct {
	Result      fix.StrictResult       `json:"result"`
	Suggestions []fix.RepairSuggestion `json:"suggestions,omitempty"`
}

// Validate 严格校验一条报文, 不落库。
// 失败时附带修复建议并广播到 validation 主题。
func (s *Service) Validate(ctx context.Context, raw string) ValidationReport {
	result := fix.ParseStrict(raw)
	report := ValidationReport{Result: result}

	if result.Success {
		return report
	}

	report.Suggestions = fix.GenerateRepairSuggestions(raw, result.Issues)

	if s.opts.Metrics != nil {
		if s.opts.Metrics.ParseIssuesTotal != nil {
			for _, issue := range result.Issues {
				s.opts.Metrics.ParseIssuesTotal.WithLabelValues(string(issue.Type)).Inc()
			}
		}
		if s.opts.Metrics.RepairSuggestionsTotal != nil {
			for _, sg := range report.Suggestions {
				s.opts.Metrics.RepairSuggestionsTotal.WithLabelValues(string(sg.Type)).Inc()
			}
		}
	}

	if s.opts.Hub != nil {
		s.opts.Hub.Publish(broadcast.TopicValidation, report)
	}
	if s.opts.Publisher != nil {
		s.submitAsync(func(taskCtx context.Context) {
			s.opts.Publisher.ValidationFailed(taskCtx, result)
		})
	}
	return report
}

// Suggest 为原始报文生成修复建议 (内部先跑严格校验)。
func (s *Service) Suggest(raw string) []fix.RepairSuggestion {
	result := fix.ParseStrict(raw)
	if result.Success {
		return nil
	}
	return fix.GenerateRepairSuggestions(raw, result.Issues)
}

// RepairResult 自动修复的结果。Repaired 为 nil 表示无可修复项。
type RepairResult struct {
	Repaired *string `json:"repaired"`
	Changed  bool    `json:"changed"`
}

// AutoRepair 应用安全修复子集 (去首尾空白、统一分隔符)。
func (s *Service) AutoRepair(raw string) RepairResult {
	repaired, changed := fix.AutoRepair(raw)
	if !changed {
		return RepairResult{Changed: false}
	}
	return RepairResult{Repaired: &repaired, Changed: true}
}
