package collector

import (
	"laowang/db-health-check/pkg/core"
)

// 类型别名，简化在 collector 包中使用 core 包类型时的写法。
type (
	Query  = core.Query
	Sample = core.Sample
)

// 采集器支持的指标名，对应 Query.Metric
const (
	MetricBackupAge      = "backup_age"
	MetricRole           = "role"
	MetricConnections    = "connections"
	MetricReplicationLag = "replication_lag"
	MetricVersion        = "version"
)

// 备份 tier，由粗到细
const (
	TierFull        = "full"
	TierIncremental = "incremental"
	TierDelta       = "delta"
)
