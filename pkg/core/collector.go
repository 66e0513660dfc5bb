package core

import (
	"net"
	"strconv"
	"strings"
)

// HealthLevel 健康等级，取值与监控插件约定的退出码一致
type HealthLevel int

const (
	HealthOK HealthLevel = iota
	HealthWarn
	HealthCritical
	HealthUnknown
)

func (h HealthLevel) String() string {
	switch h {
	case HealthOK:
		return "OK"
	case HealthWarn:
		return "WARNING"
	case HealthCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ExitCode 监控插件退出码 0/1/2/3
func (h HealthLevel) ExitCode() int {
	switch h {
	case HealthOK, HealthWarn, HealthCritical:
		return int(h)
	default:
		return int(HealthUnknown)
	}
}

// Severity 聚合时使用的严重程度排序：
// CRITICAL > WARNING > UNKNOWN > OK。
// 无法采集不能掩盖已确认的故障，但必须盖过 OK。
func (h HealthLevel) Severity() int {
	switch h {
	case HealthCritical:
		return 3
	case HealthWarn:
		return 2
	case HealthOK:
		return 0
	default:
		return 1
	}
}

// Role 数据库在复制拓扑中的角色
type Role int

const (
	RoleUnknown Role = iota
	RolePrimary
	RoleStandby
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleStandby:
		return "standby"
	default:
		return "unknown"
	}
}

// ParseRole 把采集到的角色标签转换为 Role
func ParseRole(label string) Role {
	switch label {
	case "primary", "master", "source":
		return RolePrimary
	case "standby", "replica", "slave":
		return RoleStandby
	default:
		return RoleUnknown
	}
}

// Query 描述一次采集：采哪个指标，属于哪个 tier
type Query struct {
	Metric string
	Tier   string
}

// Sample 一次采集得到的原始值，数值或者分类标签二选一
type Sample struct {
	Value int64
	Label string
}

// InstanceInfo 被检查的实例，Version 由采集得到，其余来自连接配置
type InstanceInfo struct {
	Driver   string
	Host     string
	Port     int
	Database string
	Version  string
}

// String 报告详情中的实例行，例如 "instance: mysql 10.0.0.5:3306/app, version 8.0.36"。
// Port 为 0 时 Host 按套接字路径原样输出。
func (i InstanceInfo) String() string {
	var b strings.Builder
	b.WriteString("instance:")
	if i.Driver != "" {
		b.WriteString(" " + i.Driver)
	}
	addr := i.Host
	if i.Port > 0 {
		addr = net.JoinHostPort(i.Host, strconv.Itoa(i.Port))
	}
	if addr != "" {
		b.WriteString(" " + addr)
	}
	if i.Database != "" {
		b.WriteString("/" + i.Database)
	}
	if i.Version != "" {
		b.WriteString(", version " + i.Version)
	} else {
		b.WriteString(", version unknown")
	}
	return b.String()
}
