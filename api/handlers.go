// Package api 实现 fixmonitor 的 HTTP 接口层: 报文摄取、解析/校验/修复、
// 查询与实时流。处理器只做参数装配与响应包装, 业务都在 ingest/store 层。
package api

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/wyfcoding/fixmonitor/alert"
	"github.com/wyfcoding/fixmonitor/archive"
	"github.com/wyfcoding/fixmonitor/fix"
	"github.com/wyfcoding/fixmonitor/idgen"
	"github.com/wyfcoding/fixmonitor/ingest"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/response"
	"github.com/wyfcoding/fixmonitor/storage"
	"github.com/wyfcoding/fixmonitor/store"
	"github.com/wyfcoding/fixmonitor/xerrors"

	"github.com/gin-gonic/gin"
)

// Handler 聚合接口层依赖。Archive 与 ObjectStorage 可为 nil (能力关闭)。
type Handler struct {
	Service        *ingest.Service
	Store          store.Store
	Orders         *store.OrderProjection
	Alerts         *alert.Engine
	Archive        *archive.Archive
	ObjectStorage  storage.Storage
	ArchiveUploads bool
	BulkLimits     ingest.BulkLimits
	Logger         *logging.Logger
}

// rawRequest JSON 请求体。text/plain 请求直接取整个 body。
type rawRequest struct {
	Raw string `json:"raw"`
}

// readRaw 从请求中提取原始报文文本, 兼容 JSON 与纯文本两种提交方式。
func readRaw(c *gin.Context) (string, error) {
	contentType := c.ContentType()
	if strings.Contains(contentType, "application/json") {
		var req rawRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return "", xerrors.ErrEmptyBody
		}
		if req.Raw == "" {
			return "", xerrors.ErrEmptyBody
		}
		return req.Raw, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		return "", xerrors.ErrEmptyBody
	}
	return string(body), nil
}

// IngestMessage POST /api/v1/messages
func (h *Handler) IngestMessage(c *gin.Context) {
	raw, err := readRaw(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	msg, err := h.Service.Ingest(c.Request.Context(), raw, "api")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, "message ingested", msg)
}

// IngestBulk POST /api/v1/messages/bulk
// 支持两种形态: multipart 文件字段 "file", 或换行分隔的请求体。
func (h *Handler) IngestBulk(c *gin.Context) {
	body, source, err := h.bulkBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	lines := ingest.SplitLines(body)
	if len(lines) == 0 {
		response.Error(c, xerrors.ErrEmptyBody)
		return
	}

	batchID := idgen.GenBatchID()
	if h.ArchiveUploads && h.ObjectStorage != nil && source == "upload" {
		h.archiveUpload(c, batchID, body)
	}

	result := h.Service.IngestBulk(c.Request.Context(), batchID, lines, source, h.BulkLimits)
	response.SuccessWithStatus(c, http.StatusCreated, "bulk ingested", result)
}

func (h *Handler) bulkBody(c *gin.Context) (body, source string, err error) {
	if file, fileErr := c.FormFile("file"); fileErr == nil {
		f, openErr := file.Open()
		if openErr != nil {
			return "", "", xerrors.WrapInternal(openErr, "failed to open uploaded file")
		}
		defer f.Close()

		data, readErr := io.ReadAll(f)
		if readErr != nil {
			return "", "", xerrors.WrapInternal(readErr, "failed to read uploaded file")
		}
		return string(data), "upload", nil
	}

	data, readErr := io.ReadAll(c.Request.Body)
	if readErr != nil || len(data) == 0 {
		return "", "", xerrors.ErrEmptyBody
	}
	return string(data), "api", nil
}

// archiveUpload 尽力而为地把原始上传内容存入对象存储。
func (h *Handler) archiveUpload(c *gin.Context, batchID, body string) {
	objectName := "uploads/" + batchID + ".fix"
	reader := bytes.NewReader([]byte(body))
	err := h.ObjectStorage.Upload(c.Request.Context(), objectName, reader, int64(len(body)), "text/plain")
	if err != nil {
		h.Logger.WarnContext(c.Request.Context(), "failed to archive upload",
			"object", objectName, "error", err)
	}
}

// Parse POST /api/v1/parse — 宽松解析, 不落库。
func (h *Handler) Parse(c *gin.Context) {
	raw, err := readRaw(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, fix.ParseRelaxed(raw))
}

// Validate POST /api/v1/validate — 严格校验。
// 失败返回 422, error/issues/suggestions 一次给全。
func (h *Handler) Validate(c *gin.Context) {
	raw, err := readRaw(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	report := h.Service.Validate(c.Request.Context(), raw)
	if report.Result.Success {
		response.SuccessWithRawData(c, report.Result)
		return
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"success":     false,
		"error":       report.Result.Err,
		"issues":      report.Result.Issues,
		"suggestions": report.Suggestions,
	})
}

// Suggestions POST /api/v1/repair/suggestions
func (h *Handler) Suggestions(c *gin.Context) {
	raw, err := readRaw(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	suggestions := h.Service.Suggest(raw)
	if suggestions == nil {
		suggestions = []fix.RepairSuggestion{}
	}
	response.Success(c, gin.H{"suggestions": suggestions})
}

// AutoRepair POST /api/v1/repair/auto
// 无可修复项时 repaired 为 null, changed 为 false。
func (h *Handler) AutoRepair(c *gin.Context) {
	raw, err := readRaw(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.Service.AutoRepair(raw))
}

// ListMessages GET /api/v1/messages
func (h *Handler) ListMessages(c *gin.Context) {
	q := store.Query{
		Limit:    queryInt(c, "limit", 50),
		Offset:   queryInt(c, "offset", 0),
		Symbol:   c.Query("symbol"),
		MsgType:  c.Query("msgType"),
		OrderKey: c.Query("orderKey"),
		Source:   c.Query("source"),
	}

	messages, err := h.Store.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, xerrors.ErrStoreUnavailable)
		return
	}
	total, _ := h.Store.Len(c.Request.Context())
	response.SuccessWithPagination(c, messages, int64(total), q.Limit, q.Offset)
}

// GetMessage GET /api/v1/messages/:id
func (h *Handler) GetMessage(c *gin.Context) {
	msg, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == store.ErrMessageNotFound {
			response.Error(c, xerrors.ErrMessageNotFound)
			return
		}
		response.Error(c, xerrors.ErrStoreUnavailable)
		return
	}
	response.Success(c, msg)
}

// ListOrders GET /api/v1/orders
func (h *Handler) ListOrders(c *gin.Context) {
	response.Success(c, h.Orders.List())
}

// GetOrder GET /api/v1/orders/:key
func (h *Handler) GetOrder(c *gin.Context) {
	flow, ok := h.Orders.Get(c.Param("key"))
	if !ok {
		response.Error(c, xerrors.ErrOrderNotFound)
		return
	}
	response.Success(c, flow)
}

// ListAlerts GET /api/v1/alerts
func (h *Handler) ListAlerts(c *gin.Context) {
	if h.Alerts == nil {
		response.Success(c, []alert.Alert{})
		return
	}
	response.Success(c, h.Alerts.Recent(queryInt(c, "limit", 100)))
}

// Dictionary GET /api/v1/dictionary — UI 展示用的静态码表。
func (h *Handler) Dictionary(c *gin.Context) {
	response.Success(c, gin.H{
		"tags":           fix.TagDictionary,
		"msgTypes":       fix.MsgTypes,
		"sideCodes":      fix.SideCodes,
		"ordStatusCodes": fix.OrdStatusCodes,
		"execTypeCodes":  fix.ExecTypeCodes,
	})
}

// ListArchive GET /api/v1/archive
func (h *Handler) ListArchive(c *gin.Context) {
	if h.Archive == nil {
		response.Error(c, xerrors.ErrArchiveDisabled)
		return
	}

	q := archive.Query{
		Symbol:   c.Query("symbol"),
		MsgType:  c.Query("msgType"),
		OrderKey: c.Query("orderKey"),
		Limit:    queryInt(c, "limit", 50),
		Offset:   queryInt(c, "offset", 0),
	}
	records, total, err := h.Archive.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPagination(c, records, total, q.Limit, q.Offset)
}

// GetArchived GET /api/v1/archive/:id
func (h *Handler) GetArchived(c *gin.Context) {
	if h.Archive == nil {
		response.Error(c, xerrors.ErrArchiveDisabled)
		return
	}
	record, err := h.Archive.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, record)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
