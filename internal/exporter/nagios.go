package exporter

import (
	"bufio"
	"io"
	"strings"

	"laowang/db-health-check/internal/check"
)

// NagiosExporter 标准插件输出：第一行 摘要|性能数据，其余行为详情
type NagiosExporter struct{}

func NewNagiosExporter() *NagiosExporter { return &NagiosExporter{} }

func (e *NagiosExporter) Export(w io.Writer, r check.Report) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strings.ToUpper(r.Check))
	bw.WriteByte(' ')
	bw.WriteString(r.Status.String())
	bw.WriteString(" - ")
	bw.WriteString(sanitize(r.Summary))
	if perf := perfString(r); perf != "" {
		bw.WriteByte('|')
		bw.WriteString(perf)
	}
	bw.WriteByte('\n')
	for _, d := range r.Details {
		bw.WriteString(sanitize(d))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
