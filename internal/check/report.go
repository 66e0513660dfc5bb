package check

import (
	"strconv"
	"strings"

	"laowang/db-health-check/pkg/core"
)

// PerfData 一条性能数据 name=value[unit];warning;critical
type PerfData struct {
	Name     string
	Value    int64
	Known    bool
	Unit     string
	Warning  int64
	Critical int64
}

// String 监控插件格式，值未知时写 U
func (p PerfData) String() string {
	var b strings.Builder
	b.WriteString(perfLabel(p.Name))
	b.WriteByte('=')
	if p.Known {
		b.WriteString(strconv.FormatInt(p.Value, 10))
		b.WriteString(p.Unit)
	} else {
		b.WriteByte('U')
	}
	b.WriteByte(';')
	b.WriteString(strconv.FormatInt(p.Warning, 10))
	b.WriteByte(';')
	b.WriteString(strconv.FormatInt(p.Critical, 10))
	return b.String()
}

// perfLabel 含空格或等号的标签要加单引号
func perfLabel(name string) string {
	if strings.ContainsAny(name, " ='") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

// Report 一次检查的结构化结果，由导出层渲染。不含时间戳，相同输入得到相同结果。
type Report struct {
	Check   string
	Status  core.HealthLevel
	Summary string
	Details []string
	Metrics []PerfData
}

// Build 组装报告。tiers 与 metrics 按下标一一对应，只包含启用的 tier。
func Build(check string, status core.HealthLevel, summary string, details []string, unit string, tiers []TierConfig, metrics []Metric) Report {
	r := Report{
		Check:   check,
		Status:  status,
		Summary: summary,
		Details: details,
	}
	for i, t := range tiers {
		if !t.Enabled {
			continue
		}
		p := PerfData{
			Name:     t.Name,
			Unit:     unit,
			Warning:  t.Warning,
			Critical: t.Critical,
		}
		if i < len(metrics) && metrics[i].Collected() {
			p.Value = metrics[i].Value
			p.Known = true
		}
		r.Metrics = append(r.Metrics, p)
	}
	if r.Summary == "" {
		r.Summary = "check finished without a summary"
	}
	return r
}

// Failed 采集开始前的前置条件失败（配置非法、实例不可用等），整体 UNKNOWN
func Failed(check string, err error) Report {
	summary := "check could not run"
	if err != nil && err.Error() != "" {
		summary = err.Error()
	}
	return Report{
		Check:   check,
		Status:  core.HealthUnknown,
		Summary: summary,
	}
}
