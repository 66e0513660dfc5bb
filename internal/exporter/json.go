package exporter

import (
	"encoding/json"
	"io"

	"laowang/db-health-check/internal/check"
)

type JSONExporter struct{}

func NewJSONExporter() *JSONExporter { return &JSONExporter{} }

type jsonMetric struct {
	Name     string `json:"name"`
	Value    *int64 `json:"value"`
	Unit     string `json:"unit,omitempty"`
	Warning  int64  `json:"warning"`
	Critical int64  `json:"critical"`
}

type jsonReport struct {
	Check    string       `json:"check"`
	Status   string       `json:"status"`
	ExitCode int          `json:"exit_code"`
	Summary  string       `json:"summary"`
	Details  []string     `json:"details"`
	Metrics  []jsonMetric `json:"metrics"`
}

func (e *JSONExporter) Export(w io.Writer, r check.Report) error {
	out := jsonReport{
		Check:    r.Check,
		Status:   r.Status.String(),
		ExitCode: r.Status.ExitCode(),
		Summary:  r.Summary,
		Details:  r.Details,
		Metrics:  make([]jsonMetric, 0, len(r.Metrics)),
	}
	if out.Details == nil {
		out.Details = []string{}
	}
	for _, m := range r.Metrics {
		jm := jsonMetric{Name: m.Name, Unit: m.Unit, Warning: m.Warning, Critical: m.Critical}
		if m.Known {
			v := m.Value
			jm.Value = &v
		}
		out.Metrics = append(out.Metrics, jm)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
