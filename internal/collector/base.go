package collector

import (
	"context"
	"errors"

	"laowang/db-health-check/pkg/core"
)

// VersionCollector 读取服务端版本，只用于报告中的实例信息
type VersionCollector struct {
	query string
}

// NewMySQLVersionCollector MySQL 版本
func NewMySQLVersionCollector() *VersionCollector {
	return &VersionCollector{query: "SELECT VERSION()"}
}

// NewPostgresVersionCollector PostgreSQL 版本
func NewPostgresVersionCollector() *VersionCollector {
	return &VersionCollector{query: "SHOW server_version"}
}

func (c *VersionCollector) Name() string { return MetricVersion }

func (c *VersionCollector) Collect(ctx context.Context, s *Session, q Query) (Sample, error) {
	conn, err := s.Conn(ctx)
	if err != nil {
		return Sample{}, err
	}
	var version string
	if err := conn.QueryRowContext(ctx, c.query).Scan(&version); err != nil {
		return Sample{}, err
	}
	if version == "" {
		return Sample{}, core.NewCollectionError(core.KindEmptyResult, "",
			errors.New("server returned an empty version"))
	}
	return Sample{Label: version}, nil
}
