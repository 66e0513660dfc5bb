package dbconn

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql 驱动名 "pgx"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver         string
	Host           string
	Port           int
	Socket         string
	User           string
	Password       string
	Database       string
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
}

// DSN 根据驱动拼接连接串
func (cfg Config) DSN() (string, error) {
	switch cfg.Driver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.DBName = cfg.Database
		mc.ParseTime = true
		mc.Timeout = cfg.ConnectTimeout
		mc.ReadTimeout = cfg.QueryTimeout
		mc.WriteTimeout = cfg.QueryTimeout
		if cfg.Socket != "" {
			mc.Net = "unix"
			mc.Addr = cfg.Socket
		} else {
			mc.Net = "tcp"
			mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		}
		return mc.FormatDSN(), nil
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Path:   "/" + cfg.Database,
		}
		q := url.Values{}
		if cfg.Socket != "" {
			q.Set("host", cfg.Socket)
		} else {
			u.Host = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		}
		if cfg.ConnectTimeout > 0 {
			secs := int(cfg.ConnectTimeout.Seconds())
			if secs < 1 {
				secs = 1
			}
			q.Set("connect_timeout", strconv.Itoa(secs))
		}
		q.Set("application_name", "db-health-check")
		u.RawQuery = q.Encode()
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// sqlDriverName database/sql 注册的驱动名
func (cfg Config) sqlDriverName() string {
	if cfg.Driver == DriverPostgres {
		return "pgx"
	}
	return cfg.Driver
}

// NewConnection 只创建连接池，不做 Ping。真正的网络连接在每次采集取会话时建立，
// 连接失败因此会落到具体指标上并被归类，而不是让整个检查提前退出。
func NewConnection(cfg Config) (*sql.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.sqlDriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	// 探针一次只跑几条查询，池子保持很小
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Minute)
	return db, nil
}
