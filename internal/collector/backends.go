package collector

import (
	"fmt"

	"laowang/db-health-check/pkg/dbconn"
)

// PgBackRestOptions PostgreSQL 备份历史的命令参数
type PgBackRestOptions struct {
	Binary string
	Stanza string
	Config string
}

// RegisterDefaults 按驱动注册全部采集器
func RegisterDefaults(m *CollectorManager, driver string, pgbr PgBackRestOptions) error {
	switch driver {
	case dbconn.DriverMySQL:
		m.Register(NewMySQLBackupCollector())
		m.Register(NewMySQLRoleCollector())
		m.Register(NewMySQLReplicationLagCollector())
		m.Register(NewMySQLConnectionCollector())
		m.Register(NewMySQLVersionCollector())
	case dbconn.DriverPostgres:
		m.Register(NewPgBackRestCollector(pgbr.Binary, pgbr.Stanza, pgbr.Config))
		m.Register(NewPostgresRoleCollector())
		m.Register(NewPostgresReplicationLagCollector())
		m.Register(NewPostgresConnectionCollector())
		m.Register(NewPostgresVersionCollector())
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}
	return nil
}
