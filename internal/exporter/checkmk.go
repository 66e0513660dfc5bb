package exporter

import (
	"fmt"
	"io"
	"strings"

	"laowang/db-health-check/internal/check"
)

// CheckmkExporter local check 格式：<状态码> <服务名> <性能数据> <摘要>
type CheckmkExporter struct {
	hostName string
}

func NewCheckmkExporter(hostName string) *CheckmkExporter {
	return &CheckmkExporter{hostName: hostName}
}

func (e *CheckmkExporter) Export(w io.Writer, r check.Report) error {
	// Checkmk 只接受数值，未采集到的 tier 不输出指标
	parts := make([]string, 0, len(r.Metrics))
	for _, m := range r.Metrics {
		if m.Known {
			parts = append(parts, m.String())
		}
	}
	perf := "-"
	if len(parts) > 0 {
		perf = strings.Join(parts, "|")
	}

	// 多行详情用字面量 \n 连接
	text := sanitize(r.Summary)
	for _, d := range r.Details {
		text += `\n` + sanitize(d)
	}

	_, err := fmt.Fprintf(w, "%d %s %s %s\n", r.Status.ExitCode(), e.serviceName(r.Check), perf, text)
	return err
}

func (e *CheckmkExporter) serviceName(check string) string {
	name := "db_" + check
	if e.hostName != "" {
		name += "_" + e.hostName
	}
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return '_'
		}
		return r
	}, name)
}
