// Package archive 提供报文的持久化历史归档。
// 内存/Redis 存储面向实时看板, 归档面向事后查询与合规留痕;
// 写入在摄取流水线的异步侧执行, 失败不影响实时路径。
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/wyfcoding/fixmonitor/database"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/store"
	"github.com/wyfcoding/fixmonitor/xerrors"

	"gorm.io/gorm"
)

// ArchivedMessage 归档表记录。Summary 为序列化后的报文摘要 JSON。
type ArchivedMessage struct {
	ID           string    `gorm:"primaryKey;size:32"      json:"id"`
	Seq          int64     `gorm:"index"                   json:"seq"`
	Source       string    `gorm:"size:16;index"           json:"source"`
	OrderKey     string    `gorm:"size:64;index"           json:"orderKey"`
	Symbol       string    `gorm:"size:32;index"           json:"symbol"`
	MsgType      string    `gorm:"size:8;index"            json:"msgType"`
	Raw          string    `gorm:"type:text"               json:"raw"`
	Summary      string    `gorm:"type:text"               json:"summary"`
	WarningCount int       `gorm:""                        json:"warningCount"`
	ReceivedAt   time.Time `gorm:"index"                   json:"receivedAt"`
	ArchivedAt   time.Time `gorm:"autoCreateTime"          json:"archivedAt"`
}

// TableName 固定表名, 与驱动无关。
func (ArchivedMessage) TableName() string { return "archived_messages" }

// Archive 归档仓储。
type Archive struct {
	db     *database.DB
	repo   *database.GormRepository[ArchivedMessage]
	logger *logging.Logger
}

// New 建表 (AutoMigrate) 并返回归档仓储。
func New(db *database.DB, logger *logging.Logger) (*Archive, error) {
	if err := db.RawDB().AutoMigrate(&ArchivedMessage{}); err != nil {
		return nil, xerrors.WrapInternal(err, "failed to migrate archive schema")
	}
	return &Archive{
		db:     db,
		repo:   database.NewGormRepository[ArchivedMessage](db.RawDB()),
		logger: logger,
	}, nil
}

// Save 归档一条已存储的报文。
func (a *Archive) Save(ctx context.Context, msg *store.Message) error {
	if msg == nil {
		return nil
	}
	summary, err := json.Marshal(msg.Summary)
	if err != nil {
		return xerrors.WrapInternal(err, "failed to marshal message summary")
	}

	record := &ArchivedMessage{
		ID:           msg.ID,
		Seq:          msg.Seq,
		Source:       msg.Source,
		OrderKey:     msg.OrderKey,
		Symbol:       msg.Summary.Symbol,
		MsgType:      msg.Summary.MsgType,
		Raw:          msg.Raw,
		Summary:      string(summary),
		WarningCount: len(msg.Warnings),
		ReceivedAt:   msg.ReceivedAt,
	}
	return a.repo.Upsert(ctx, record)
}

// Query 归档查询条件。
type Query struct {
	Symbol   string
	MsgType  string
	OrderKey string
	Limit    int
	Offset   int
}

// List 按接收时间倒序分页查询, 同时返回命中总数。
func (a *Archive) List(ctx context.Context, q Query) ([]*ArchivedMessage, int64, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	tx := a.db.RawDB().WithContext(ctx).Model(&ArchivedMessage{})
	if q.Symbol != "" {
		tx = tx.Where("symbol = ?", q.Symbol)
	}
	if q.MsgType != "" {
		tx = tx.Where("msg_type = ?", q.MsgType)
	}
	if q.OrderKey != "" {
		tx = tx.Where("order_key = ?", q.OrderKey)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, xerrors.WrapInternal(err, "failed to count archived messages")
	}

	var records []*ArchivedMessage
	err := tx.Order("received_at DESC").Limit(q.Limit).Offset(q.Offset).Find(&records).Error
	if err != nil {
		return nil, 0, xerrors.WrapInternal(err, "failed to list archived messages")
	}
	return records, total, nil
}

// Get 按 ID 查询归档记录。
func (a *Archive) Get(ctx context.Context, id string) (*ArchivedMessage, error) {
	var record ArchivedMessage
	err := a.db.RawDB().WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerrors.ErrMessageNotFound
		}
		return nil, xerrors.WrapInternal(err, "failed to load archived message")
	}
	return &record, nil
}

// Prune 删除接收时间早于 olderThan 的归档, 返回删除行数。
func (a *Archive) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	result := a.db.RawDB().WithContext(ctx).
		Where("received_at < ?", olderThan).
		Delete(&ArchivedMessage{})
	if result.Error != nil {
		return 0, xerrors.WrapInternal(result.Error, "failed to prune archive")
	}
	return int(result.RowsAffected), nil
}
