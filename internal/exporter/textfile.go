package exporter

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"laowang/db-health-check/internal/check"
)

// TextfileWriter 把报告写成 node_exporter textfile collector 读取的 .prom 文件
type TextfileWriter struct {
	path     string
	hostName string
}

func NewTextfileWriter(path, hostName string) *TextfileWriter {
	return &TextfileWriter{path: path, hostName: hostName}
}

// Registry 构造只包含本次报告的指标集合
func (t *TextfileWriter) Registry(r check.Report) *prometheus.Registry {
	constLabels := prometheus.Labels{}
	if t.hostName != "" {
		constLabels["host"] = t.hostName
	}

	status := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "db_health_check_status",
		Help:        "Check status as plugin exit code: 0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN.",
		ConstLabels: constLabels,
	}, []string{"check"})
	value := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "db_health_check_metric_value",
		Help:        "Collected value per tier; absent when the tier could not be collected.",
		ConstLabels: constLabels,
	}, []string{"check", "tier", "unit"})
	warning := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "db_health_check_metric_warning",
		Help:        "Warning threshold per tier.",
		ConstLabels: constLabels,
	}, []string{"check", "tier"})
	critical := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "db_health_check_metric_critical",
		Help:        "Critical threshold per tier.",
		ConstLabels: constLabels,
	}, []string{"check", "tier"})

	reg := prometheus.NewRegistry()
	reg.MustRegister(status, value, warning, critical)

	status.WithLabelValues(r.Check).Set(float64(r.Status.ExitCode()))
	for _, m := range r.Metrics {
		if m.Known {
			value.WithLabelValues(r.Check, m.Name, m.Unit).Set(float64(m.Value))
		}
		warning.WithLabelValues(r.Check, m.Name).Set(float64(m.Warning))
		critical.WithLabelValues(r.Check, m.Name).Set(float64(m.Critical))
	}
	return reg
}

// Write 原子写入 textfile
func (t *TextfileWriter) Write(r check.Report) error {
	if err := prometheus.WriteToTextfile(t.path, t.Registry(r)); err != nil {
		return fmt.Errorf("写入 textfile 失败: %w", err)
	}
	return nil
}
