package check

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"laowang/db-health-check/internal/collector"
	"laowang/db-health-check/internal/logger"
	"laowang/db-health-check/pkg/core"
)

// MetricCollector 采集一个指标。collector.CollectorManager 是生产实现。
type MetricCollector interface {
	Collect(ctx context.Context, q core.Query) (core.Sample, error)
}

// Engine 运行一次检查：角色判断、采集、评估、汇总、生成报告
type Engine struct {
	collector   MetricCollector
	parallelism int
	timeout     time.Duration
	instance    *core.InstanceInfo
}

type Option func(*Engine)

// WithParallelism 同时采集的 tier 数，默认 1 即顺序采集
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithTimeout 单次采集的超时，超时记为 Timeout 类错误
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithInstance 在详情中附带实例信息。版本在运行时采集补全，查询失败不影响结论。
func WithInstance(info core.InstanceInfo) Option {
	return func(e *Engine) { e.instance = &info }
}

func NewEngine(c MetricCollector, opts ...Option) *Engine {
	e := &Engine{collector: c, parallelism: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run 执行检查，总是返回完整的 Report
func (e *Engine) Run(ctx context.Context, p Probe) Report {
	if err := p.Validate(); err != nil {
		logger.Error("检查定义非法", "check", p.Name, "error", err)
		return Failed(p.Name, err)
	}
	tiers := p.Enabled()
	var details []string

	exempt := false
	if p.ExemptRole != core.RoleUnknown {
		role, err := e.role(ctx)
		switch {
		case err != nil:
			// 查不到角色时按非豁免角色继续评估，不阻塞检查
			logger.Warn("角色查询失败，继续评估阈值", "check", p.Name, "error", err)
			details = append(details, fmt.Sprintf("role lookup failed, thresholds evaluated: %v", err))
		default:
			logger.Debug("角色", "check", p.Name, "role", role.String())
			details = append(details, "role: "+role.String())
			exempt = role == p.ExemptRole
		}
	}

	metrics := e.collect(ctx, p.Metric, tiers)

	verdicts := make([]TierVerdict, len(tiers))
	for i, t := range tiers {
		m := metrics[i]
		v := TierVerdict{Tier: t.Name, Verdict: Evaluate(t, m), Err: m.Err}
		if exempt {
			v.Verdict = VerdictOK
		}
		if m.Err != nil {
			v.Message = fmt.Sprintf("%s: %v", t.Name, m.Err)
		} else {
			v.Message = p.describe(t.Name, m.Value)
		}
		verdicts[i] = v
		details = append(details, detailLine(t, m, v.Verdict, p.Unit))
	}

	exemption := ""
	if exempt {
		exemption = fmt.Sprintf("%s role: %s thresholds are evaluated on the %s only",
			p.ExemptRole, p.Name, counterpart(p.ExemptRole))
	}
	status, summary := Reduce(verdicts, exemption)

	if e.instance != nil {
		info := *e.instance
		info.Version = e.instanceVersion(ctx)
		details = append(details, info.String())
	}

	logger.Info("检查完成", "check", p.Name, "status", status.String())
	return Build(p.Name, status, summary, details, p.Unit, tiers, metrics)
}

func (e *Engine) role(ctx context.Context) (core.Role, error) {
	s, err := e.collectOne(ctx, core.Query{Metric: collector.MetricRole})
	if err != nil {
		return core.RoleUnknown, err
	}
	role := core.ParseRole(s.Label)
	if role == core.RoleUnknown {
		return role, fmt.Errorf("unrecognized role %q", s.Label)
	}
	return role, nil
}

func (e *Engine) instanceVersion(ctx context.Context) string {
	s, err := e.collectOne(ctx, core.Query{Metric: collector.MetricVersion})
	if err != nil {
		logger.Debug("读取版本失败", "error", err)
		return ""
	}
	return s.Label
}

// collect 采集所有启用的 tier。每个 goroutine 只写自己的下标，结果顺序与 tiers 一致；
// goroutine 不向 errgroup 返回错误，一个 tier 失败不会取消其它 tier。
func (e *Engine) collect(ctx context.Context, metric string, tiers []TierConfig) []Metric {
	metrics := make([]Metric, len(tiers))
	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i, t := range tiers {
		i, t := i, t
		g.Go(func() error {
			s, err := e.collectOne(ctx, core.Query{Metric: metric, Tier: t.Name})
			metrics[i] = Metric{Name: t.Name, Value: s.Value, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return metrics
}

type collectResult struct {
	sample core.Sample
	err    error
}

// collectOne 在超时范围内采集一次。采集器不理会 ctx 时也按时返回，
// 残留的 goroutine 随进程退出。
func (e *Engine) collectOne(ctx context.Context, q core.Query) (core.Sample, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	done := make(chan collectResult, 1)
	go func() {
		s, err := e.collector.Collect(ctx, q)
		done <- collectResult{sample: s, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return core.Sample{}, normalize(ctx, q.Metric, r.err)
		}
		return r.sample, nil
	case <-ctx.Done():
		return core.Sample{}, normalize(ctx, q.Metric, ctx.Err())
	}
}

// normalize 保证错误是 *core.CollectionError
func normalize(ctx context.Context, metric string, err error) error {
	var ce *core.CollectionError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return core.NewCollectionError(core.KindTimeout, metric, err)
	}
	return core.NewCollectionError(core.KindConnectionFailure, metric, err)
}

func counterpart(r core.Role) string {
	if r == core.RoleStandby {
		return core.RolePrimary.String()
	}
	return core.RoleStandby.String()
}

func detailLine(t TierConfig, m Metric, v Verdict, unit string) string {
	value := "U"
	if m.Collected() {
		value = strconv.FormatInt(m.Value, 10) + unit
	}
	line := fmt.Sprintf("%s %s: value=%s warning=%d critical=%d", v, t.Name, value, t.Warning, t.Critical)
	if m.Err != nil {
		line += " error=" + m.Err.Error()
	}
	return line
}
