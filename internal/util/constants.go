package util

import "eco_mentor_backend/internal/constants"

const TimeFormat = "2006-01-02 15:04:05"

const (
	StorageLocal = constants.StorageLocal
	StorageMinio = constants.StorageMinio
)

// 测验策略默认值（可在配置中覆盖）
const (
	DefaultPassThreshold = constants.DefaultPassThreshold
	DefaultMaxAttempts   = constants.DefaultMaxAttempts
	DefaultCooldownHours = constants.DefaultCooldownHours
)
