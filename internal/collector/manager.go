package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"laowang/db-health-check/internal/logger"
	"laowang/db-health-check/pkg/core"
)

// Collector 采集单个指标。实现只负责发查询和解析输出，错误分类由 CollectorManager 统一处理。
type Collector interface {
	Name() string
	Collect(ctx context.Context, s *Session, q Query) (Sample, error)
}

// Session 一次采集独占的外部会话。数据库连接在第一次使用时才从池中取出，
// 采集结束由 CollectorManager 归还，并发采集之间不共享会话。
type Session struct {
	db     *sql.DB
	runner Runner
	conn   *sql.Conn
}

// Conn 返回本次采集的数据库连接
func (s *Session) Conn(ctx context.Context) (*sql.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	if s.db == nil {
		return nil, errors.New("no database configured")
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return conn, nil
}

// Run 执行管理命令并返回标准输出
func (s *Session) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.runner == nil {
		return nil, errors.New("no command runner configured")
	}
	return s.runner.Run(ctx, name, args...)
}

func (s *Session) close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// CollectorManager 管理采集器注册，并按 Query.Metric 分发
type CollectorManager struct {
	db         *sql.DB
	runner     Runner
	timeout    time.Duration
	collectors map[string]Collector
}

func NewCollectorManager(db *sql.DB, runner Runner, timeout time.Duration) *CollectorManager {
	return &CollectorManager{
		db:         db,
		runner:     runner,
		timeout:    timeout,
		collectors: make(map[string]Collector),
	}
}

// Register 按 Name() 注册采集器，同名覆盖
func (m *CollectorManager) Register(c Collector) {
	m.collectors[c.Name()] = c
}

// Names 返回已注册的指标名
func (m *CollectorManager) Names() []string {
	names := make([]string, 0, len(m.collectors))
	for n := range m.collectors {
		names = append(names, n)
	}
	return names
}

// Collect 在独立会话和超时范围内执行一次采集。返回的错误总是 *core.CollectionError。
func (m *CollectorManager) Collect(ctx context.Context, q Query) (Sample, error) {
	c, ok := m.collectors[q.Metric]
	if !ok {
		return Sample{}, core.NewCollectionError(core.KindEmptyResult, q.Metric,
			fmt.Errorf("no collector registered for %q", q.Metric))
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	s := &Session{db: m.db, runner: m.runner}
	defer func() {
		if err := s.close(); err != nil {
			logger.Debug("归还会话失败", "metric", q.Metric, "error", err)
		}
	}()

	start := time.Now()
	sample, err := c.Collect(ctx, s, q)
	if err != nil {
		err = Classify(ctx, q.Metric, err)
		logger.Debug("采集失败", "metric", q.Metric, "tier", q.Tier, "error", err, "elapsed", time.Since(start))
		return Sample{}, err
	}
	logger.Debug("采集完成", "metric", q.Metric, "tier", q.Tier,
		"value", sample.Value, "label", sample.Label, "elapsed", time.Since(start))
	return sample, nil
}
