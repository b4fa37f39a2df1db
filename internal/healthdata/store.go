package healthdata

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Store 封装对健康数据表的读写操作。
type Store struct {
	db *gorm.DB
}

// NewStore 创建 Store 并迁移数据表结构。
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&HealthRecord{}, &UserProfile{}); err != nil {
		return nil, fmt.Errorf("健康数据表迁移失败: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveRecord 写入一条健康记录。
func (s *Store) SaveRecord(ctx context.Context, record *HealthRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

// RecentRecords 返回用户在给定时间之后的记录，按记录时间倒序。
// recordType 为空时不过滤类型。
func (s *Store) RecentRecords(ctx context.Context, userID string, recordType RecordType, since time.Time, limit int) ([]*HealthRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := s.db.WithContext(ctx).
		Where("user_id = ? AND recorded_at >= ?", userID, since)
	if recordType != "" {
		query = query.Where("type = ?", recordType)
	}

	var records []*HealthRecord
	err := query.Order("recorded_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("查询健康记录失败: %w", err)
	}
	return records, nil
}

// LatestMetric 返回用户某项指标的最近一条测量记录，不存在时返回 gorm.ErrRecordNotFound。
func (s *Store) LatestMetric(ctx context.Context, userID, metric string) (*HealthRecord, error) {
	var record HealthRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND metric = ?", userID, RecordMeasurement, metric).
		Order("recorded_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Profile 返回用户档案，不存在时返回 gorm.ErrRecordNotFound。
func (s *Store) Profile(ctx context.Context, userID string) (*UserProfile, error) {
	var profile UserProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile 新建或更新用户档案。
func (s *Store) UpsertProfile(ctx context.Context, profile *UserProfile) error {
	var existing UserProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", profile.UserID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return s.db.WithContext(ctx).Create(profile).Error
	}
	if err != nil {
		return err
	}
	profile.ID = existing.ID
	return s.db.WithContext(ctx).Save(profile).Error
}
