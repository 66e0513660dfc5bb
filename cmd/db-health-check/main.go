package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/alecthomas/kingpin.v2"

	"laowang/db-health-check/internal/config"
	"laowang/db-health-check/internal/logger"
)

// 构建时通过 -ldflags "-X main.version=..." 注入
var (
	version = "dev"
	commit  = "none"
)

type thresholdFlags struct {
	warning  int64
	critical int64
}

var cli struct {
	configPath string
	verbose    bool
	format     string
	textfile   string
	driver     string
	database   string

	full, incremental, delta thresholdFlags
	connections              thresholdFlags
	lag                      thresholdFlags
}

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	app := kingpin.New(filepath.Base(os.Args[0]), "Database health check plugin: backup age, connections and replication lag.").UsageWriter(os.Stderr)
	app.HelpFlag.Short('h')
	app.Flag("config", "Path to the YAML configuration file.").Short('f').StringVar(&cli.configPath)
	app.Flag("verbose", "Enable debug logging on stderr.").Short('v').BoolVar(&cli.verbose)
	app.Flag("format", "Output format: nagios, checkmk or json.").StringVar(&cli.format)
	app.Flag("textfile", "Also write a Prometheus textfile to this path.").StringVar(&cli.textfile)
	app.Flag("driver", "Database driver: mysql or postgres.").StringVar(&cli.driver)
	app.Flag("database", "Target database name.").StringVar(&cli.database)

	backupCmd := app.Command("backup", "Check the age of the latest successful backup per tier.")
	backupCmd.Flag("warning", "Full backup warning threshold in hours.").Short('w').Int64Var(&cli.full.warning)
	backupCmd.Flag("critical", "Full backup critical threshold in hours.").Short('c').Int64Var(&cli.full.critical)
	backupCmd.Flag("incremental-warning", "Incremental backup warning threshold in hours.").Int64Var(&cli.incremental.warning)
	backupCmd.Flag("incremental-critical", "Incremental backup critical threshold in hours.").Int64Var(&cli.incremental.critical)
	backupCmd.Flag("delta-warning", "Delta backup warning threshold in hours.").Int64Var(&cli.delta.warning)
	backupCmd.Flag("delta-critical", "Delta backup critical threshold in hours.").Int64Var(&cli.delta.critical)

	connectionsCmd := app.Command("connections", "Check the number of client connections.")
	connectionsCmd.Flag("warning", "Warning threshold.").Short('w').Int64Var(&cli.connections.warning)
	connectionsCmd.Flag("critical", "Critical threshold.").Short('c').Int64Var(&cli.connections.critical)

	lagCmd := app.Command("replication-lag", "Check replication lag in seconds on a standby.")
	lagCmd.Flag("warning", "Warning threshold in seconds.").Short('w').Int64Var(&cli.lag.warning)
	lagCmd.Flag("critical", "Critical threshold in seconds.").Short('c').Int64Var(&cli.lag.critical)

	versionCmd := app.Command("version", "Print version information.")

	parsedCmd := kingpin.MustParse(app.Parse(os.Args[1:]))
	if parsedCmd == versionCmd.FullCommand() {
		fmt.Printf("db-health-check %s (%s)\n", version, commit)
		return
	}

	cfg, err := loadConfig()
	level := "warn"
	if cfg != nil {
		level = cfg.Logging.Level
	}
	if cli.verbose {
		level = "debug"
	}
	logger.InitLogger(level, os.Stderr, "run_id", uuid.NewString())

	p := &plugin{cfg: cfg, loadErr: err}
	os.Exit(p.run(context.Background(), parsedCmd))
}

// loadConfig 默认值 -> 配置文件 -> 命令行
func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if cli.configPath != "" {
		if err := cfg.LoadFromFile(cli.configPath); err != nil {
			return cfg, err
		}
	}
	if cli.driver != "" {
		cfg.Database.Driver = cli.driver
	}
	if cli.database != "" {
		cfg.Database.Name = cli.database
	}
	if cli.format != "" {
		cfg.Output.Format = cli.format
	}
	if cli.textfile != "" {
		cfg.Output.Textfile = cli.textfile
	}

	cfg.Checks.Backup.Full = override(cfg.Checks.Backup.Full, cli.full)
	cfg.Checks.Backup.Incremental = override(cfg.Checks.Backup.Incremental, cli.incremental)
	cfg.Checks.Backup.Delta = override(cfg.Checks.Backup.Delta, cli.delta)
	cfg.Checks.Connections.Connections = override(cfg.Checks.Connections.Connections, cli.connections)
	cfg.Checks.ReplicationLag.Lag = override(cfg.Checks.ReplicationLag.Lag, cli.lag)

	return cfg, cfg.Validate()
}

// override 命令行给出的阈值覆盖配置文件，0 表示未指定
func override(t *config.Threshold, f thresholdFlags) *config.Threshold {
	if f.warning == 0 && f.critical == 0 {
		return t
	}
	out := config.Threshold{}
	if t != nil {
		out = *t
	}
	if f.warning != 0 {
		out.Warning = f.warning
	}
	if f.critical != 0 {
		out.Critical = f.critical
	}
	return &out
}
