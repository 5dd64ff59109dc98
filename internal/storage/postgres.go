package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roomModel struct {
	Code     string `gorm:"primaryKey;size:16"`
	Variant  string `gorm:"size:64;not null"`
	Status   string `gorm:"size:16;not null;index"`
	HostID   string `gorm:"size:64"`
	Roster   string `gorm:"type:text"`
	Settings string `gorm:"type:text"`
	Created  int64  `gorm:"not null;index"`
	Updated  int64  `gorm:"not null"`
}

func (roomModel) TableName() string { return "rooms" }

type snapshotModel struct {
	RoomCode string `gorm:"primaryKey;size:16"`
	Data     string `gorm:"type:text;not null"`
	Updated  int64  `gorm:"not null"`
}

func (snapshotModel) TableName() string { return "snapshots" }

// Postgres stores rooms through gorm for multi-instance deployments.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres connects with retries and migrates the schema.
func NewPostgres(dsn string, logger *zap.Logger) (*Postgres, error) {
	const maxRetries = 3
	const retryInterval = 5 * time.Second
	var db *gorm.DB
	var err error
	for i := 0; i <= maxRetries; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			break
		}
		logger.Error("postgres connect retry", zap.Int("retry", i), zap.Error(err))
		if i < maxRetries {
			time.Sleep(retryInterval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.AutoMigrate(&roomModel{}, &snapshotModel{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) SaveRoom(ctx context.Context, row RoomRow) error {
	now := time.Now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	m := roomModel{
		Code:     row.Code,
		Variant:  row.Variant,
		Status:   row.Status,
		HostID:   row.HostID,
		Roster:   orDefault(row.Roster, "[]"),
		Settings: orDefault(row.Settings, "{}"),
		Created:  millis(row.CreatedAt),
		Updated:  millis(now),
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"variant", "status", "host_id", "roster", "settings", "updated"}),
	}).Create(&m).Error
}

func (m roomModel) row() RoomRow {
	return RoomRow{
		Code:      m.Code,
		Variant:   m.Variant,
		Status:    m.Status,
		HostID:    m.HostID,
		Roster:    m.Roster,
		Settings:  m.Settings,
		CreatedAt: fromMillis(m.Created),
		UpdatedAt: fromMillis(m.Updated),
	}
}

func (p *Postgres) GetRoom(ctx context.Context, code string) (*RoomRow, error) {
	var m roomModel
	err := p.db.WithContext(ctx).Where("code = ?", code).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r := m.row()
	return &r, nil
}

func (p *Postgres) ListRooms(ctx context.Context, status string) ([]RoomRow, error) {
	q := p.db.WithContext(ctx).Order("created DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var models []roomModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	rows := make([]RoomRow, len(models))
	for i, m := range models {
		rows[i] = m.row()
	}
	return rows, nil
}

func (p *Postgres) SaveSnapshot(ctx context.Context, code string, data []byte) error {
	m := snapshotModel{RoomCode: code, Data: string(data), Updated: time.Now().UnixMilli()}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated"}),
	}).Create(&m).Error
}

func (p *Postgres) GetSnapshot(ctx context.Context, code string) ([]byte, error) {
	var m snapshotModel
	err := p.db.WithContext(ctx).Where("room_code = ?", code).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(m.Data), nil
}

func (p *Postgres) DeleteRoom(ctx context.Context, code string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_code = ?", code).Delete(&snapshotModel{}).Error; err != nil {
			return err
		}
		return tx.Where("code = ?", code).Delete(&roomModel{}).Error
	})
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
