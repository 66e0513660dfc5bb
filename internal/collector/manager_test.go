package collector

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laowang/db-health-check/pkg/core"
	"laowang/db-health-check/pkg/dbconn"
)

type funcCollector struct {
	name string
	fn   func(ctx context.Context, s *Session, q Query) (Sample, error)
}

func (f funcCollector) Name() string { return f.name }

func (f funcCollector) Collect(ctx context.Context, s *Session, q Query) (Sample, error) {
	return f.fn(ctx, s, q)
}

func TestCollectorManager_UnknownMetric(t *testing.T) {
	m := NewCollectorManager(nil, nil, time.Second)
	_, err := m.Collect(context.Background(), Query{Metric: "uptime"})
	assert.ErrorIs(t, err, core.ErrEmptyResult)
	assert.ErrorContains(t, err, "uptime")
}

func TestCollectorManager_Timeout(t *testing.T) {
	m := NewCollectorManager(nil, nil, 10*time.Millisecond)
	m.Register(funcCollector{name: MetricConnections, fn: func(ctx context.Context, _ *Session, _ Query) (Sample, error) {
		<-ctx.Done()
		return Sample{}, ctx.Err()
	}})

	_, err := m.Collect(context.Background(), Query{Metric: MetricConnections, Tier: "connections"})
	assert.ErrorIs(t, err, core.ErrTimeout)
}

func TestCollectorManager_NoDatabaseIsConnectionFailure(t *testing.T) {
	m := NewCollectorManager(nil, nil, time.Second)
	m.Register(NewMySQLBackupCollector())

	_, err := m.Collect(context.Background(), Query{Metric: MetricBackupAge, Tier: TierFull})
	assert.ErrorIs(t, err, core.ErrConnectionFailure)
	assert.ErrorContains(t, err, MetricBackupAge)
}

func TestCollectorManager_NoRunner(t *testing.T) {
	m := NewCollectorManager(nil, nil, time.Second)
	m.Register(NewPgBackRestCollector("", "", ""))

	_, err := m.Collect(context.Background(), Query{Metric: MetricBackupAge, Tier: TierFull})
	assert.ErrorIs(t, err, core.ErrConnectionFailure)
}

func TestCollectorManager_Success(t *testing.T) {
	m := NewCollectorManager(nil, &fakeRunner{}, 0)
	m.Register(funcCollector{name: MetricRole, fn: func(_ context.Context, s *Session, _ Query) (Sample, error) {
		_, err := s.Run(context.Background(), "true")
		return Sample{Label: "primary"}, err
	}})

	got, err := m.Collect(context.Background(), Query{Metric: MetricRole})
	require.NoError(t, err)
	assert.Equal(t, "primary", got.Label)
}

func TestRegisterDefaults(t *testing.T) {
	for _, driver := range []string{dbconn.DriverMySQL, dbconn.DriverPostgres} {
		m := NewCollectorManager(nil, nil, 0)
		require.NoError(t, RegisterDefaults(m, driver, PgBackRestOptions{}))
		names := m.Names()
		sort.Strings(names)
		assert.Equal(t, []string{MetricBackupAge, MetricConnections, MetricReplicationLag, MetricRole, MetricVersion}, names, driver)
	}
	assert.Error(t, RegisterDefaults(NewCollectorManager(nil, nil, 0), "oracle", PgBackRestOptions{}))
}

func TestBackupAge(t *testing.T) {
	got, err := backupAge(TierFull, sql.NullInt64{Int64: 250, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.Value)

	_, err = backupAge(TierDelta, sql.NullInt64{})
	assert.ErrorIs(t, err, core.ErrEmptyResult)
	assert.ErrorContains(t, err, "delta")

	_, err = backupAge(TierFull, sql.NullInt64{Int64: -1, Valid: true})
	assert.ErrorIs(t, err, core.ErrHistoryCorrupted)
}

func TestLagFromStatus(t *testing.T) {
	str := func(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

	got, err := lagFromStatus(map[string]sql.NullString{"Seconds_Behind_Source": str("42")})
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Value)

	got, err = lagFromStatus(map[string]sql.NullString{"Seconds_Behind_Master": str("7")})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Value)

	_, err = lagFromStatus(map[string]sql.NullString{"Seconds_Behind_Source": {}})
	assert.ErrorIs(t, err, core.ErrEmptyResult)

	_, err = lagFromStatus(map[string]sql.NullString{"Seconds_Behind_Source": str("soon")})
	assert.ErrorIs(t, err, core.ErrHistoryCorrupted)

	_, err = lagFromStatus(map[string]sql.NullString{"Replica_IO_Running": str("Yes")})
	assert.ErrorIs(t, err, core.ErrHistoryCorrupted)
}

func TestExecRunner(t *testing.T) {
	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo ok")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(out))

	_, err = ExecRunner{}.Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.ErrorContains(t, err, "broken")
	var exitErr interface{ ExitCode() int }
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())
}
