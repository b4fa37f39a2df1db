package healthdata

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecordType 定义健康记录的类型。
type RecordType string

const (
	RecordMeasurement RecordType = "measurement" // 体征测量，如体重、血压、心率
	RecordMeal        RecordType = "meal"        // 饮食记录
	RecordExercise    RecordType = "exercise"    // 运动记录
	RecordSleep       RecordType = "sleep"       // 睡眠记录
)

// HealthRecord 代表用户的一条健康数据记录。
// Payload 按记录类型存放结构化数据，例如测量记录的
// {"metric": "blood_pressure", "systolic": 135, "diastolic": 88}。
type HealthRecord struct {
	gorm.Model

	UserID     string     `gorm:"index:idx_user_recorded;not null;size:255"`
	Type       RecordType `gorm:"type:varchar(20);not null"`
	Metric     string     `gorm:"index;size:64"` // 测量指标名，非测量类记录可为空
	Payload    datatypes.JSON
	RecordedAt time.Time `gorm:"index:idx_user_recorded;not null"`
}

func (HealthRecord) TableName() string {
	return "health_records"
}

// UserProfile 保存用户的基础生理档案，供计算类工具使用。
type UserProfile struct {
	gorm.Model

	UserID   string `gorm:"uniqueIndex;not null;size:255"`
	Gender   string `gorm:"type:varchar(10)"`
	Age      int
	HeightCm float64
	WeightKg float64
	Goals    datatypes.JSON
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
