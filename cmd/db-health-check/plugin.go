package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"laowang/db-health-check/internal/check"
	"laowang/db-health-check/internal/collector"
	"laowang/db-health-check/internal/config"
	"laowang/db-health-check/internal/exporter"
	"laowang/db-health-check/internal/logger"
	"laowang/db-health-check/pkg/dbconn"
)

type plugin struct {
	cfg     *config.Config
	loadErr error
	out     io.Writer
}

// run 执行一次检查并输出，返回插件退出码
func (p *plugin) run(ctx context.Context, cmd string) int {
	report := p.report(ctx, cmd)

	exp, err := exporter.New(p.cfg.Output.Format, p.cfg.Output.HostName)
	if err != nil {
		exp = exporter.NewNagiosExporter()
	}
	out := p.out
	if out == nil {
		out = os.Stdout
	}
	if err := exp.Export(out, report); err != nil {
		logger.Error("导出结果失败", "error", err)
	}

	if p.cfg.Output.Textfile != "" {
		if err := exporter.NewTextfileWriter(p.cfg.Output.Textfile, p.cfg.Output.HostName).Write(report); err != nil {
			logger.Error("写入 textfile 失败", "path", p.cfg.Output.Textfile, "error", err)
		}
	}
	return report.Status.ExitCode()
}

func (p *plugin) report(ctx context.Context, cmd string) check.Report {
	name := checkName(cmd)
	if p.loadErr != nil {
		logger.Error("配置无效", "error", p.loadErr)
		return check.Failed(name, fmt.Errorf("invalid configuration: %w", p.loadErr))
	}

	probe, err := p.probe(cmd)
	if err != nil {
		logger.Error("检查定义无效", "check", name, "error", err)
		return check.Failed(name, err)
	}

	db, err := dbconn.NewConnection(p.cfg.DBConfig())
	if err != nil {
		logger.Error("数据库连接初始化失败", "error", err)
		return check.Failed(name, fmt.Errorf("database unavailable: %w", err))
	}
	defer db.Close()

	m := collector.NewCollectorManager(db, collector.ExecRunner{}, p.cfg.Database.QueryTimeout)
	if err := collector.RegisterDefaults(m, p.cfg.Database.Driver, p.cfg.PgBackRestOptions()); err != nil {
		return check.Failed(name, err)
	}
	logger.Debug("开始检查", "check", name, "driver", p.cfg.Database.Driver, "collectors", m.Names())

	engine := check.NewEngine(m,
		check.WithParallelism(p.cfg.Collect.Parallelism),
		check.WithTimeout(p.cfg.Database.QueryTimeout),
		check.WithInstance(p.cfg.Instance()),
	)
	return engine.Run(ctx, probe)
}

func (p *plugin) probe(cmd string) (check.Probe, error) {
	switch cmd {
	case "backup":
		return p.cfg.BackupProbe()
	case "connections":
		return p.cfg.ConnectionsProbe()
	case "replication-lag":
		return p.cfg.ReplicationLagProbe()
	default:
		return check.Probe{}, fmt.Errorf("unknown command %q", cmd)
	}
}

func checkName(cmd string) string {
	if cmd == "replication-lag" {
		return "replication_lag"
	}
	return cmd
}
