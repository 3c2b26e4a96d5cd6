package constants

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 测验策略默认值（可在配置中覆盖）
const (
	DefaultPassThreshold = 70
	DefaultMaxAttempts   = 3
	DefaultCooldownHours = 8
)
