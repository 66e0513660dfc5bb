package check

import (
	"fmt"

	"laowang/db-health-check/pkg/core"
)

// Verdict 单个 tier 的评估结果
type Verdict = core.HealthLevel

const (
	VerdictOK            = core.HealthOK
	VerdictWarning       = core.HealthWarn
	VerdictCritical      = core.HealthCritical
	VerdictIndeterminate = core.HealthUnknown
)

// TierConfig 一个 tier 的告警阈值。Enabled 为 false 表示该 tier 不监控，
// 不采集、不评估、不出现在性能数据中。
type TierConfig struct {
	Name     string
	Warning  int64
	Critical int64
	Enabled  bool
}

// NewTierConfig 构造并校验一个启用的 tier
func NewTierConfig(name string, warning, critical int64) (TierConfig, error) {
	t := TierConfig{Name: name, Warning: warning, Critical: critical, Enabled: true}
	return t, t.Validate()
}

// Disabled 构造一个未配置的 tier
func Disabled(name string) TierConfig {
	return TierConfig{Name: name}
}

// Validate 启用时要求 0 < warning < critical
func (t TierConfig) Validate() error {
	if !t.Enabled {
		return nil
	}
	if t.Name == "" {
		return fmt.Errorf("tier name is empty")
	}
	if t.Warning <= 0 || t.Critical <= 0 {
		return fmt.Errorf("tier %s: thresholds must be positive (warning=%d, critical=%d)", t.Name, t.Warning, t.Critical)
	}
	if t.Warning >= t.Critical {
		return fmt.Errorf("tier %s: warning %d must be lower than critical %d", t.Name, t.Warning, t.Critical)
	}
	return nil
}

// Metric 一次运行中某个 tier 的采集结果，Err 非空时 Value 无意义
type Metric struct {
	Name  string
	Value int64
	Err   error
}

// Collected 是否拿到了数值
func (m Metric) Collected() bool { return m.Err == nil }
