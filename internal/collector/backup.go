package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"laowang/db-health-check/pkg/core"
)

// mysqlBackupTypes MySQL Enterprise Backup 的 backup_type 与 tier 的对应关系：
// 差异备份相对上一次全备累积，对应 incremental；增量备份相对上一次任意备份，对应 delta。
var mysqlBackupTypes = map[string]string{
	TierFull:        "FULL",
	TierIncremental: "DIFFERENTIAL",
	TierDelta:       "INCREMENTAL",
}

const mysqlBackupAgeQuery = `
	SELECT TIMESTAMPDIFF(HOUR, MAX(end_time), NOW())
	FROM mysql.backup_history
	WHERE backup_type = ? AND exit_state = 'SUCCESS'
`

// MySQLBackupCollector 从 mysql.backup_history 计算某类备份距今的小时数
type MySQLBackupCollector struct{}

func NewMySQLBackupCollector() *MySQLBackupCollector { return &MySQLBackupCollector{} }

func (c *MySQLBackupCollector) Name() string { return MetricBackupAge }

func (c *MySQLBackupCollector) Collect(ctx context.Context, s *Session, q Query) (Sample, error) {
	backupType, ok := mysqlBackupTypes[q.Tier]
	if !ok {
		return Sample{}, fmt.Errorf("unknown backup tier %q", q.Tier)
	}

	conn, err := s.Conn(ctx)
	if err != nil {
		return Sample{}, err
	}

	// 没有匹配行时 MAX() 返回 NULL
	var age sql.NullInt64
	if err := conn.QueryRowContext(ctx, mysqlBackupAgeQuery, backupType).Scan(&age); err != nil {
		return Sample{}, err
	}
	return backupAge(q.Tier, age)
}

func backupAge(tier string, age sql.NullInt64) (Sample, error) {
	if !age.Valid {
		return Sample{}, core.NewCollectionError(core.KindEmptyResult, "",
			fmt.Errorf("no successful %s backup recorded", tier))
	}
	if age.Int64 < 0 {
		// 结束时间在未来，历史记录与服务器时钟不一致
		return Sample{}, core.NewCollectionError(core.KindHistoryCorrupted, "",
			errors.New("last backup ends in the future"))
	}
	return Sample{Value: age.Int64}, nil
}
