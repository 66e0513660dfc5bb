package exporter

import (
	"fmt"
	"io"
	"strings"

	"laowang/db-health-check/internal/check"
)

// Exporter 把一次检查的报告渲染为监控系统能读的格式
type Exporter interface {
	Export(w io.Writer, r check.Report) error
}

// New 按格式名构造导出器，hostName 只对 checkmk 生效
func New(format, hostName string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "nagios":
		return NewNagiosExporter(), nil
	case "checkmk":
		return NewCheckmkExporter(hostName), nil
	case "json":
		return NewJSONExporter(), nil
	default:
		return nil, fmt.Errorf("不支持的输出格式: %s", format)
	}
}

func perfString(r check.Report) string {
	parts := make([]string, 0, len(r.Metrics))
	for _, m := range r.Metrics {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, " ")
}

// sanitize 去掉文本中会破坏插件输出格式的字符
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "|", "/")
	return strings.ReplaceAll(s, "\n", " ")
}
