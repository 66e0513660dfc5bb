package collector

import (
	"context"
	"fmt"
	"strconv"

	"laowang/db-health-check/pkg/core"
)

// ConnectionCollector 采集当前客户端会话数
type ConnectionCollector struct {
	query  string
	single bool
}

// NewMySQLConnectionCollector 读 Threads_connected
func NewMySQLConnectionCollector() *ConnectionCollector {
	return &ConnectionCollector{query: "SHOW GLOBAL STATUS LIKE 'Threads_connected'"}
}

// NewPostgresConnectionCollector 统计 pg_stat_activity 中的客户端后端
func NewPostgresConnectionCollector() *ConnectionCollector {
	return &ConnectionCollector{
		query:  "SELECT count(*) FROM pg_stat_activity WHERE backend_type = 'client backend'",
		single: true,
	}
}

func (c *ConnectionCollector) Name() string { return MetricConnections }

func (c *ConnectionCollector) Collect(ctx context.Context, s *Session, q Query) (Sample, error) {
	conn, err := s.Conn(ctx)
	if err != nil {
		return Sample{}, err
	}

	if c.single {
		var n int64
		if err := conn.QueryRowContext(ctx, c.query).Scan(&n); err != nil {
			return Sample{}, err
		}
		return Sample{Value: n}, nil
	}

	// SHOW GLOBAL STATUS 返回 (Variable_name, Value) 两列
	var name, val string
	if err := conn.QueryRowContext(ctx, c.query).Scan(&name, &val); err != nil {
		return Sample{}, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return Sample{}, core.NewCollectionError(core.KindHistoryCorrupted, "",
			fmt.Errorf("parse %s=%q: %w", name, val, err))
	}
	return Sample{Value: n}, nil
}
