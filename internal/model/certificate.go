package model

import "time"

// Certificate 结业证书记录。上链铸造由外部协作方完成，这里只保存回执。
// swagger:model Certificate
type Certificate struct {
	UUIDBase
	UserID       uint   `gorm:"index;type:bigint unsigned" json:"userId"`
	CourseID     uint   `gorm:"index;type:bigint unsigned" json:"courseId"`
	EnrollmentID uint   `gorm:"uniqueIndex;type:bigint unsigned" json:"enrollmentId"`
	SerialNumber string `gorm:"size:64;uniqueIndex" json:"serialNumber"`
	VerifyCode   string `gorm:"size:64;uniqueIndex" json:"verifyCode"`
	// 签发人，0 表示定时任务自动签发
	IssuedBy   uint       `gorm:"type:bigint unsigned" json:"issuedBy"`
	IssuedAt   time.Time  `json:"issuedAt"`
	AssetURL   string     `gorm:"size:255" json:"assetUrl"`
	MintTxHash string     `gorm:"size:128" json:"mintTxHash,omitempty"`
	MintedAt   *time.Time `json:"mintedAt,omitempty"`
}

func (Certificate) TableName() string {
	return "certificates"
}
