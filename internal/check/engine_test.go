package check

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laowang/db-health-check/internal/collector"
	"laowang/db-health-check/pkg/core"
)

type stubResult struct {
	sample core.Sample
	err    error
	delay  time.Duration
}

// stubCollector 按 Query 返回预设结果，未预设的返回 EmptyResult
type stubCollector struct {
	results map[core.Query]stubResult

	mu       sync.Mutex
	calls    []core.Query
	inFlight int
	maxSeen  int
}

func newStub() *stubCollector {
	return &stubCollector{results: map[core.Query]stubResult{}}
}

func (s *stubCollector) role(label string) *stubCollector {
	s.results[core.Query{Metric: collector.MetricRole}] = stubResult{sample: core.Sample{Label: label}}
	return s
}

func (s *stubCollector) roleErr(err error) *stubCollector {
	s.results[core.Query{Metric: collector.MetricRole}] = stubResult{err: err}
	return s
}

func (s *stubCollector) backup(tier string, hours int64) *stubCollector {
	s.results[core.Query{Metric: collector.MetricBackupAge, Tier: tier}] = stubResult{sample: core.Sample{Value: hours}}
	return s
}

func (s *stubCollector) backupErr(tier string, err error) *stubCollector {
	s.results[core.Query{Metric: collector.MetricBackupAge, Tier: tier}] = stubResult{err: err}
	return s
}

func (s *stubCollector) Collect(ctx context.Context, q core.Query) (core.Sample, error) {
	s.mu.Lock()
	s.calls = append(s.calls, q)
	s.inFlight++
	if s.inFlight > s.maxSeen {
		s.maxSeen = s.inFlight
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	r, ok := s.results[q]
	if !ok {
		return core.Sample{}, core.NewCollectionError(core.KindEmptyResult, q.Metric, nil)
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.sample, r.err
}

func (s *stubCollector) called(metric string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.calls {
		if q.Metric == metric {
			return true
		}
	}
	return false
}

func tier(w, c int64) TierConfig {
	return TierConfig{Warning: w, Critical: c, Enabled: true}
}

func perf(r Report) []string {
	out := make([]string, 0, len(r.Metrics))
	for _, m := range r.Metrics {
		out = append(out, m.String())
	}
	return out
}

func TestRun_FullTierCritical(t *testing.T) {
	stub := newStub().role("primary").backup(collector.TierFull, 250)
	r := NewEngine(stub).Run(context.Background(), BackupProbe(tier(168, 240), Disabled(""), Disabled("")))

	assert.Equal(t, core.HealthCritical, r.Status)
	assert.Equal(t, []string{"full=250;168;240"}, perf(r))
	assert.Contains(t, r.Summary, "CRITICAL: last full backup 250h ago")
}

func TestRun_IncrementalWarning(t *testing.T) {
	stub := newStub().role("primary").
		backup(collector.TierFull, 40).
		backup(collector.TierIncremental, 60)
	r := NewEngine(stub).Run(context.Background(), BackupProbe(tier(168, 240), tier(50, 140), Disabled("")))

	assert.Equal(t, core.HealthWarn, r.Status)
	assert.Equal(t, []string{"full=40;168;240", "incremental=60;50;140"}, perf(r))
	assert.Equal(t, "OK: last full backup 40h ago, WARNING: last incremental backup 60h ago", r.Summary)
	for _, q := range stub.calls {
		assert.NotEqual(t, collector.TierDelta, q.Tier)
	}
}

func TestRun_ConnectionFailureReportedOnce(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:3306: connect: refused")
	cerr := core.NewCollectionError(core.KindConnectionFailure, collector.MetricBackupAge, cause)
	stub := newStub().
		roleErr(core.NewCollectionError(core.KindConnectionFailure, collector.MetricRole, cause)).
		backupErr(collector.TierFull, cerr)
	r := NewEngine(stub).Run(context.Background(), BackupProbe(tier(168, 240), Disabled(""), Disabled("")))

	assert.Equal(t, core.HealthUnknown, r.Status)
	assert.Equal(t, 1, strings.Count(r.Summary, "connection failure"), r.Summary)
	assert.Equal(t, []string{"full=U;168;240"}, perf(r))
}

func TestRun_StandbyIsExempt(t *testing.T) {
	stub := newStub().role("standby").backup(collector.TierFull, 999)
	r := NewEngine(stub).Run(context.Background(), BackupProbe(tier(168, 240), Disabled(""), Disabled("")))

	assert.Equal(t, core.HealthOK, r.Status)
	assert.True(t, strings.HasPrefix(r.Summary, "standby role"), r.Summary)
	assert.Equal(t, []string{"full=999;168;240"}, perf(r))
}

func TestRun_StandbyExemptEvenOnErrors(t *testing.T) {
	stub := newStub().role("replica").backupErr(collector.TierFull, core.ErrHistoryCorrupted)
	r := NewEngine(stub).Run(context.Background(), BackupProbe(tier(168, 240), Disabled(""), Disabled("")))

	assert.Equal(t, core.HealthOK, r.Status)
	assert.Contains(t, r.Summary, "standby")
}

func TestRun_RoleLookupFailureStillEvaluates(t *testing.T) {
	stub := newStub().
		roleErr(core.NewCollectionError(core.KindReplicationConflict, collector.MetricRole, nil)).
		backup(collector.TierFull, 250)
	r := NewEngine(stub).Run(context.Background(), BackupProbe(tier(168, 240), Disabled(""), Disabled("")))

	assert.Equal(t, core.HealthCritical, r.Status)
	require.NotEmpty(t, r.Details)
	assert.Contains(t, r.Details[0], "role lookup failed")
}

func TestRun_UnrecognizedRoleStillEvaluates(t *testing.T) {
	stub := newStub().role("witness").backup(collector.TierFull, 250)
	r := NewEngine(stub).Run(context.Background(), BackupProbe(tier(168, 240), Disabled(""), Disabled("")))

	assert.Equal(t, core.HealthCritical, r.Status)
}

func TestRun_ReplicationLagExemptOnPrimary(t *testing.T) {
	stub := newStub().role("primary")
	stub.results[core.Query{Metric: collector.MetricReplicationLag, Tier: "lag"}] = stubResult{sample: core.Sample{Value: 9000}}
	r := NewEngine(stub).Run(context.Background(), ReplicationLagProbe(tier(60, 300)))

	assert.Equal(t, core.HealthOK, r.Status)
	assert.True(t, strings.HasPrefix(r.Summary, "primary role"), r.Summary)
	assert.Equal(t, []string{"lag=9000s;60;300"}, perf(r))
}

func TestRun_NoRoleLookupWithoutExemption(t *testing.T) {
	stub := newStub()
	stub.results[core.Query{Metric: collector.MetricConnections, Tier: "connections"}] = stubResult{sample: core.Sample{Value: 12}}
	r := NewEngine(stub).Run(context.Background(), ConnectionsProbe(tier(100, 200)))

	assert.Equal(t, core.HealthOK, r.Status)
	assert.Equal(t, "OK: 12 client connections", r.Summary)
	assert.False(t, stub.called(collector.MetricRole))
}

func TestRun_TimeoutIsClassified(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	stub := newStub().role("primary")
	blocking := collectorFunc(func(ctx context.Context, q core.Query) (core.Sample, error) {
		if q.Metric == collector.MetricRole {
			return stub.Collect(ctx, q)
		}
		<-block
		return core.Sample{}, nil
	})

	start := time.Now()
	r := NewEngine(blocking, WithTimeout(20*time.Millisecond)).
		Run(context.Background(), BackupProbe(tier(168, 240), Disabled(""), Disabled("")))

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, core.HealthUnknown, r.Status)
	assert.Contains(t, r.Summary, "timeout")
}

func TestRun_UnclassifiedErrorIsWrapped(t *testing.T) {
	stub := newStub().role("primary").backupErr(collector.TierFull, errors.New("boom"))
	r := NewEngine(stub).Run(context.Background(), BackupProbe(tier(168, 240), Disabled(""), Disabled("")))

	assert.Equal(t, core.HealthUnknown, r.Status)
	assert.Equal(t, "connection failure: backup_age: boom", r.Summary)
}

func TestRun_ParallelKeepsTierOrder(t *testing.T) {
	stub := newStub().role("primary")
	q := func(tier string) core.Query { return core.Query{Metric: collector.MetricBackupAge, Tier: tier} }
	stub.results[q(collector.TierFull)] = stubResult{sample: core.Sample{Value: 1}, delay: 40 * time.Millisecond}
	stub.results[q(collector.TierIncremental)] = stubResult{sample: core.Sample{Value: 2}, delay: 20 * time.Millisecond}
	stub.results[q(collector.TierDelta)] = stubResult{sample: core.Sample{Value: 3}}

	r := NewEngine(stub, WithParallelism(2)).
		Run(context.Background(), BackupProbe(tier(10, 20), tier(10, 20), tier(10, 20)))

	assert.Equal(t, []string{"full=1;10;20", "incremental=2;10;20", "delta=3;10;20"}, perf(r))
	assert.LessOrEqual(t, stub.maxSeen, 2)
}

func TestRun_Idempotent(t *testing.T) {
	stub := newStub().role("primary").
		backup(collector.TierFull, 40).
		backupErr(collector.TierIncremental, core.ErrEmptyResult).
		backup(collector.TierDelta, 30)
	e := NewEngine(stub, WithParallelism(3))
	p := BackupProbe(tier(168, 240), tier(50, 140), tier(24, 48))

	first := e.Run(context.Background(), p)
	second := e.Run(context.Background(), p)
	assert.Equal(t, first, second)
	assert.Equal(t, core.HealthWarn, first.Status)
}

func TestRun_InvalidProbeFailsBeforeCollecting(t *testing.T) {
	stub := newStub()
	r := NewEngine(stub).Run(context.Background(), BackupProbe(Disabled(""), tier(50, 140), Disabled("")))

	assert.Equal(t, core.HealthUnknown, r.Status)
	assert.Contains(t, r.Summary, "full")
	assert.Empty(t, stub.calls)
}

func TestRun_InstanceDetail(t *testing.T) {
	instance := core.InstanceInfo{Driver: "mysql", Host: "10.0.0.5", Port: 3306, Database: "app"}

	stub := newStub().role("primary").backup(collector.TierFull, 1)
	stub.results[core.Query{Metric: collector.MetricVersion}] = stubResult{sample: core.Sample{Label: "8.0.36"}}
	r := NewEngine(stub, WithInstance(instance)).
		Run(context.Background(), BackupProbe(tier(168, 240), Disabled(""), Disabled("")))

	assert.Equal(t, "instance: mysql 10.0.0.5:3306/app, version 8.0.36", r.Details[len(r.Details)-1])
	assert.Equal(t, core.HealthOK, r.Status)
}

func TestRun_InstanceVersionFailureDoesNotChangeStatus(t *testing.T) {
	instance := core.InstanceInfo{Driver: "postgres", Host: "/var/run/postgresql", Database: "app"}

	// 未预设版本，采集返回 EmptyResult
	stub := newStub().role("primary").backup(collector.TierFull, 250)
	r := NewEngine(stub, WithInstance(instance)).
		Run(context.Background(), BackupProbe(tier(168, 240), Disabled(""), Disabled("")))

	assert.Equal(t, core.HealthCritical, r.Status)
	assert.Contains(t, r.Details, "instance: postgres /var/run/postgresql/app, version unknown")
}

type collectorFunc func(ctx context.Context, q core.Query) (core.Sample, error)

func (f collectorFunc) Collect(ctx context.Context, q core.Query) (core.Sample, error) {
	return f(ctx, q)
}
