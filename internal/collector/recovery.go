package collector

import (
	"context"
	"database/sql"
	"errors"

	"laowang/db-health-check/pkg/core"
)

// PostgresRecoveryCollector 用 pg_is_in_recovery() 判断角色，
// 用最后一次回放事务的时间计算复制延迟
type PostgresRecoveryCollector struct {
	metric string
}

func NewPostgresRoleCollector() *PostgresRecoveryCollector {
	return &PostgresRecoveryCollector{metric: MetricRole}
}

func NewPostgresReplicationLagCollector() *PostgresRecoveryCollector {
	return &PostgresRecoveryCollector{metric: MetricReplicationLag}
}

func (c *PostgresRecoveryCollector) Name() string { return c.metric }

func (c *PostgresRecoveryCollector) Collect(ctx context.Context, s *Session, q Query) (Sample, error) {
	conn, err := s.Conn(ctx)
	if err != nil {
		return Sample{}, err
	}

	var inRecovery bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_is_in_recovery()").Scan(&inRecovery); err != nil {
		return Sample{}, err
	}

	if c.metric == MetricRole {
		if inRecovery {
			return Sample{Label: core.RoleStandby.String()}, nil
		}
		return Sample{Label: core.RolePrimary.String()}, nil
	}

	if !inRecovery {
		return Sample{}, core.NewCollectionError(core.KindEmptyResult, "",
			errors.New("server is not in recovery"))
	}

	var lag sql.NullInt64
	err = conn.QueryRowContext(ctx,
		"SELECT FLOOR(EXTRACT(EPOCH FROM (now() - pg_last_xact_replay_timestamp())))::bigint").Scan(&lag)
	if err != nil {
		return Sample{}, err
	}
	if !lag.Valid {
		return Sample{}, core.NewCollectionError(core.KindReplicationReplaying, "",
			errors.New("no transaction replayed since startup"))
	}
	if lag.Int64 < 0 {
		return Sample{Value: 0}, nil
	}
	return Sample{Value: lag.Int64}, nil
}
