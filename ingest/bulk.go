package ingest

import (
	"context"
	"strings"

	"github.com/sourcegraph/conc"
)

const (
	defaultMaxBulkLines    = 1000
	defaultBulkParallelism = 8
)

// BulkLineResult 批量摄取中单行的处理结果, 按输入行序返回。
type BulkLineResult struct {
	Line      int    `json:"line"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BulkResult 一次批量摄取的汇总。
type BulkResult struct {
	BatchID  string           `json:"batchId"`
	Total    int              `json:"total"`
	Accepted int              `json:"accepted"`
	Rejected int              `json:"rejected"`
	Results  []BulkLineResult `json:"results"`
}

// BulkLimits 批量摄取的行数与并发度约束。
type BulkLimits struct {
	MaxLines    int
	Parallelism int
}

func (l BulkLimits) normalize() BulkLimits {
	if l.MaxLines <= 0 {
		l.MaxLines = defaultMaxBulkLines
	}
	if l.Parallelism <= 0 {
		l.Parallelism = defaultBulkParallelism
	}
	return l
}

// SplitLines 把批量请求体切成非空行, 每行一条报文。
// 上传文件与 textarea 粘贴都走这条路径, 容忍 CRLF。
func SplitLines(body string) []string {
	rawLines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(rawLines))
	for _, line := range rawLines {
		if trimmed := strings.TrimRight(line, "\r"); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// IngestBulk 并发摄取多行报文, 结果保持输入顺序。
// 解析与入库逐行独立, 单行失败不影响其余行。
func (s *Service) IngestBulk(ctx context.Context, batchID string, lines []string, source string, limits BulkLimits) BulkResult {
	limits = limits.normalize()
	if len(lines) > limits.MaxLines {
		lines = lines[:limits.MaxLines]
	}

	results := make([]BulkLineResult, len(lines))
	sem := make(chan struct{}, limits.Parallelism)

	var wg conc.WaitGroup
	for i, line := range lines {
		sem <- struct{}{}
		wg.Go(func() {
			defer func() { <-sem }()

			msg, err := s.Ingest(ctx, line, source)
			if err != nil {
				results[i] = BulkLineResult{Line: i + 1, Error: err.Error()}
				return
			}
			results[i] = BulkLineResult{Line: i + 1, MessageID: msg.ID}
		})
	}
	wg.Wait()

	out := BulkResult{BatchID: batchID, Total: len(lines), Results: results}
	for _, r := range results {
		if r.Error == "" {
			out.Accepted++
		} else {
			out.Rejected++
		}
	}
	return out
}
