package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v2"

	"laowang/db-health-check/internal/check"
	"laowang/db-health-check/internal/collector"
	"laowang/db-health-check/pkg/core"
	"laowang/db-health-check/pkg/dbconn"
)

// Threshold 一个 tier 的阈值。配置里省略该 tier 即为 nil，表示不监控。
type Threshold struct {
	Warning  int64 `yaml:"warning"`
	Critical int64 `yaml:"critical"`
}

type DatabaseConfig struct {
	Driver         string        `yaml:"driver"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	Name           string        `yaml:"name"`
	Socket         string        `yaml:"socket"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
}

type PgBackRestConfig struct {
	Binary string `yaml:"binary"`
	Stanza string `yaml:"stanza"`
	Config string `yaml:"config"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type OutputConfig struct {
	// Format nagios | checkmk | json
	Format   string `yaml:"format"`
	HostName string `yaml:"host_name"`
	// Textfile 非空时额外写 Prometheus textfile
	Textfile string `yaml:"textfile"`
}

type CollectConfig struct {
	Parallelism int `yaml:"parallelism"`
}

type BackupChecks struct {
	Full        *Threshold `yaml:"full"`
	Incremental *Threshold `yaml:"incremental"`
	Delta       *Threshold `yaml:"delta"`
}

type ConnectionsChecks struct {
	Connections *Threshold `yaml:"connections"`
}

type ReplicationLagChecks struct {
	Lag *Threshold `yaml:"lag"`
}

type ChecksConfig struct {
	Backup         BackupChecks         `yaml:"backup"`
	Connections    ConnectionsChecks    `yaml:"connections"`
	ReplicationLag ReplicationLagChecks `yaml:"replication_lag"`
}

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	PgBackRest PgBackRestConfig `yaml:"pgbackrest"`
	Logging    LoggingConfig    `yaml:"logging"`
	Output     OutputConfig     `yaml:"output"`
	Collect    CollectConfig    `yaml:"collect"`
	Checks     ChecksConfig     `yaml:"checks"`
}

// NewConfig 默认配置，阈值全部为空，需要配置文件或命令行给出
func NewConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:         dbconn.DriverMySQL,
			Host:           "127.0.0.1",
			ConnectTimeout: 5 * time.Second,
			QueryTimeout:   10 * time.Second,
		},
		PgBackRest: PgBackRestConfig{Binary: "pgbackrest"},
		Logging:    LoggingConfig{Level: "warn"},
		Output:     OutputConfig{Format: "nagios"},
		Collect:    CollectConfig{Parallelism: 1},
	}
}

// LoadFromFile 读取 YAML 配置覆盖默认值，文件中的 ${VAR} 用环境变量展开
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("配置解析失败: %w", err)
	}
	c.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Port == 0 && c.Database.Socket == "" {
		switch c.Database.Driver {
		case dbconn.DriverMySQL:
			c.Database.Port = 3306
		case dbconn.DriverPostgres:
			c.Database.Port = 5432
		}
	}
	if c.Collect.Parallelism <= 0 {
		c.Collect.Parallelism = 1
	}
	if c.PgBackRest.Binary == "" {
		c.PgBackRest.Binary = "pgbackrest"
	}
}

// Validate 一次性返回所有连接与输出配置问题。
// 阈值只在构造本次要运行的检查时校验，其它检查的阈值写错不影响本次运行。
func (c *Config) Validate() error {
	c.applyDefaults()
	var result *multierror.Error

	switch c.Database.Driver {
	case dbconn.DriverMySQL, dbconn.DriverPostgres:
	default:
		result = multierror.Append(result, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Database.Driver == dbconn.DriverPostgres && c.Database.Name == "" {
		result = multierror.Append(result, errors.New("database.name is required for postgres"))
	}
	if c.Database.ConnectTimeout <= 0 {
		result = multierror.Append(result, errors.New("database.connect_timeout must be positive"))
	}
	if c.Database.QueryTimeout <= 0 {
		result = multierror.Append(result, errors.New("database.query_timeout must be positive"))
	}
	switch c.Output.Format {
	case "nagios", "checkmk", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("output.format %q is not supported", c.Output.Format))
	}

	return result.ErrorOrNil()
}

// BackupProbe 由 checks.backup 构造备份检查，full 必须配置
func (c *Config) BackupProbe() (check.Probe, error) {
	if c.Checks.Backup.Full == nil {
		return check.Probe{}, errors.New("checks.backup.full is required")
	}
	p := check.BackupProbe(
		tier(collector.TierFull, c.Checks.Backup.Full),
		tier(collector.TierIncremental, c.Checks.Backup.Incremental),
		tier(collector.TierDelta, c.Checks.Backup.Delta),
	)
	return p, p.Validate()
}

// ConnectionsProbe 由 checks.connections 构造连接数检查
func (c *Config) ConnectionsProbe() (check.Probe, error) {
	if c.Checks.Connections.Connections == nil {
		return check.Probe{}, errors.New("checks.connections.connections is required")
	}
	p := check.ConnectionsProbe(tier("connections", c.Checks.Connections.Connections))
	return p, p.Validate()
}

// ReplicationLagProbe 由 checks.replication_lag 构造复制延迟检查
func (c *Config) ReplicationLagProbe() (check.Probe, error) {
	if c.Checks.ReplicationLag.Lag == nil {
		return check.Probe{}, errors.New("checks.replication_lag.lag is required")
	}
	p := check.ReplicationLagProbe(tier("lag", c.Checks.ReplicationLag.Lag))
	return p, p.Validate()
}

func tier(name string, t *Threshold) check.TierConfig {
	if t == nil {
		return check.Disabled(name)
	}
	return check.TierConfig{Name: name, Warning: t.Warning, Critical: t.Critical, Enabled: true}
}

// DBConfig 转换为连接参数
func (c *Config) DBConfig() dbconn.Config {
	return dbconn.Config{
		Driver:         c.Database.Driver,
		Host:           c.Database.Host,
		Port:           c.Database.Port,
		Socket:         c.Database.Socket,
		User:           c.Database.User,
		Password:       c.Database.Password,
		Database:       c.Database.Name,
		ConnectTimeout: c.Database.ConnectTimeout,
		QueryTimeout:   c.Database.QueryTimeout,
	}
}

// Instance 报告中展示的实例信息，套接字连接时以套接字路径代替地址
func (c *Config) Instance() core.InstanceInfo {
	info := core.InstanceInfo{
		Driver:   c.Database.Driver,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Database: c.Database.Name,
	}
	if c.Database.Socket != "" {
		info.Host = c.Database.Socket
		info.Port = 0
	}
	return info
}

// PgBackRestOptions 转换为 pgBackRest 采集参数
func (c *Config) PgBackRestOptions() collector.PgBackRestOptions {
	return collector.PgBackRestOptions{
		Binary: c.PgBackRest.Binary,
		Stanza: c.PgBackRest.Stanza,
		Config: c.PgBackRest.Config,
	}
}
