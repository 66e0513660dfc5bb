package check

import (
	"fmt"

	"laowang/db-health-check/internal/collector"
	"laowang/db-health-check/pkg/core"
)

// Probe 一个检查的定义。单指标检查只有一个 tier。
type Probe struct {
	// Name 检查名，出现在输出和性能数据前缀里
	Name string
	// Metric 交给采集器的指标名
	Metric string
	// Tiers 按汇总顺序排列，未启用的 tier 会被跳过
	Tiers []TierConfig
	// ExemptRole 处于该角色时只采集不评估；RoleUnknown 表示不查角色
	ExemptRole core.Role
	// Required 必须启用的 tier，空表示不限制
	Required string
	// Unit 性能数据单位
	Unit string
	// Describe 生成单个 tier 的说明
	Describe func(tier string, value int64) string
}

// Enabled 返回启用的 tier，顺序不变
func (p Probe) Enabled() []TierConfig {
	out := make([]TierConfig, 0, len(p.Tiers))
	for _, t := range p.Tiers {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out
}

// Validate 检查定义是否可以运行
func (p Probe) Validate() error {
	if p.Metric == "" {
		return fmt.Errorf("probe %s: metric is empty", p.Name)
	}
	enabled := p.Enabled()
	if len(enabled) == 0 {
		return fmt.Errorf("probe %s: no tier has thresholds configured", p.Name)
	}
	if p.Required != "" && !p.tierEnabled(p.Required) {
		return fmt.Errorf("probe %s: tier %s must be configured", p.Name, p.Required)
	}
	seen := make(map[string]bool, len(enabled))
	for _, t := range enabled {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("probe %s: %w", p.Name, err)
		}
		if seen[t.Name] {
			return fmt.Errorf("probe %s: duplicate tier %s", p.Name, t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

func (p Probe) tierEnabled(name string) bool {
	for _, t := range p.Tiers {
		if t.Name == name && t.Enabled {
			return true
		}
	}
	return false
}

func (p Probe) describe(tier string, value int64) string {
	if p.Describe != nil {
		return p.Describe(tier, value)
	}
	return fmt.Sprintf("%s=%d%s", tier, value, p.Unit)
}

// BackupProbe 备份时效检查。full 必须启用，incremental/delta 可以为 Disabled。
// 在备库上不评估。
func BackupProbe(full, incremental, delta TierConfig) Probe {
	full.Name = collector.TierFull
	incremental.Name = collector.TierIncremental
	delta.Name = collector.TierDelta
	return Probe{
		Name:       "backup",
		Metric:     collector.MetricBackupAge,
		Tiers:      []TierConfig{full, incremental, delta},
		ExemptRole: core.RoleStandby,
		Required:   collector.TierFull,
		Describe: func(tier string, hours int64) string {
			return fmt.Sprintf("last %s backup %dh ago", tier, hours)
		},
	}
}

// ConnectionsProbe 当前客户端会话数
func ConnectionsProbe(t TierConfig) Probe {
	t.Name = "connections"
	return Probe{
		Name:   "connections",
		Metric: collector.MetricConnections,
		Tiers:  []TierConfig{t},
		Describe: func(_ string, n int64) string {
			return fmt.Sprintf("%d client connections", n)
		},
	}
}

// ReplicationLagProbe 复制延迟（秒），在主库上不评估
func ReplicationLagProbe(t TierConfig) Probe {
	t.Name = "lag"
	return Probe{
		Name:       "replication_lag",
		Metric:     collector.MetricReplicationLag,
		Tiers:      []TierConfig{t},
		ExemptRole: core.RolePrimary,
		Unit:       "s",
		Describe: func(_ string, secs int64) string {
			return fmt.Sprintf("replication lag %ds", secs)
		},
	}
}
