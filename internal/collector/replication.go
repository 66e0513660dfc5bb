package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"laowang/db-health-check/pkg/core"
)

// MySQLReplicationCollector 通过 SHOW REPLICA STATUS 判断角色和复制延迟。
// 注册两次：一次作为 role 指标，一次作为 replication_lag 指标。
type MySQLReplicationCollector struct {
	metric string
}

func NewMySQLRoleCollector() *MySQLReplicationCollector {
	return &MySQLReplicationCollector{metric: MetricRole}
}

func NewMySQLReplicationLagCollector() *MySQLReplicationCollector {
	return &MySQLReplicationCollector{metric: MetricReplicationLag}
}

func (c *MySQLReplicationCollector) Name() string { return c.metric }

func (c *MySQLReplicationCollector) Collect(ctx context.Context, s *Session, q Query) (Sample, error) {
	conn, err := s.Conn(ctx)
	if err != nil {
		return Sample{}, err
	}
	status, err := replicaStatus(ctx, conn)
	if err != nil {
		return Sample{}, err
	}

	if c.metric == MetricRole {
		// 有复制状态行即为从库
		if status == nil {
			return Sample{Label: core.RolePrimary.String()}, nil
		}
		return Sample{Label: core.RoleStandby.String()}, nil
	}

	if status == nil {
		return Sample{}, core.NewCollectionError(core.KindEmptyResult, "",
			errors.New("server is not a replica"))
	}
	return lagFromStatus(status)
}

// replicaStatus 先用 8.0.22+ 的 SHOW REPLICA STATUS，语法不支持时回退到 SHOW SLAVE STATUS。
// 非从库时返回 nil。
func replicaStatus(ctx context.Context, conn *sql.Conn) (map[string]sql.NullString, error) {
	rows, err := conn.QueryContext(ctx, "SHOW REPLICA STATUS")
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1064 { // ER_PARSE_ERROR
		rows, err = conn.QueryContext(ctx, "SHOW SLAVE STATUS")
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, rows.Err()
	}
	// 动态 scan 所有列为字符串
	values := make([]sql.NullString, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	status := make(map[string]sql.NullString, len(cols))
	for i, n := range cols {
		status[n] = values[i]
	}
	return status, nil
}

// lagFromStatus 抽取 Seconds_Behind_Source（旧版本为 Seconds_Behind_Master）
func lagFromStatus(status map[string]sql.NullString) (Sample, error) {
	for _, col := range []string{"Seconds_Behind_Source", "Seconds_Behind_Master"} {
		v, ok := status[col]
		if !ok {
			continue
		}
		if !v.Valid {
			// NULL 表示复制线程没有在跑
			return Sample{}, core.NewCollectionError(core.KindEmptyResult, "",
				errors.New("replication threads are not running"))
		}
		n, err := strconv.ParseInt(v.String, 10, 64)
		if err != nil {
			return Sample{}, core.NewCollectionError(core.KindHistoryCorrupted, "",
				fmt.Errorf("parse %s=%q: %w", col, v.String, err))
		}
		return Sample{Value: n}, nil
	}
	return Sample{}, core.NewCollectionError(core.KindHistoryCorrupted, "",
		errors.New("replica status has no Seconds_Behind_Source column"))
}
