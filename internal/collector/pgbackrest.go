package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"laowang/db-health-check/pkg/core"
)

// pgBackRest 的备份类型：diff 基于上一次全备，incr 基于上一次任意备份
var pgbackrestBackupTypes = map[string]string{
	TierFull:        "full",
	TierIncremental: "diff",
	TierDelta:       "incr",
}

// pgBackRest info 的 status.code
const (
	pgbackrestStatusOK             = 0
	pgbackrestStatusNoValidBackups = 2
)

type pgbackrestStanza struct {
	Name   string `json:"name"`
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Backup []pgbackrestBackup `json:"backup"`
}

type pgbackrestBackup struct {
	Label     string `json:"label"`
	Type      string `json:"type"`
	Error     bool   `json:"error"`
	Timestamp struct {
		Start int64 `json:"start"`
		Stop  int64 `json:"stop"`
	} `json:"timestamp"`
}

// PgBackRestCollector 执行 pgbackrest info --output=json 计算某类备份距今的小时数
type PgBackRestCollector struct {
	Binary string
	Stanza string
	Config string
	now    func() time.Time
}

func NewPgBackRestCollector(binary, stanza, config string) *PgBackRestCollector {
	if binary == "" {
		binary = "pgbackrest"
	}
	return &PgBackRestCollector{Binary: binary, Stanza: stanza, Config: config, now: time.Now}
}

func (c *PgBackRestCollector) Name() string { return MetricBackupAge }

func (c *PgBackRestCollector) args() []string {
	args := []string{"--output=json"}
	if c.Stanza != "" {
		args = append(args, "--stanza="+c.Stanza)
	}
	if c.Config != "" {
		args = append(args, "--config="+c.Config)
	}
	return append(args, "info")
}

func (c *PgBackRestCollector) Collect(ctx context.Context, s *Session, q Query) (Sample, error) {
	backupType, ok := pgbackrestBackupTypes[q.Tier]
	if !ok {
		return Sample{}, fmt.Errorf("unknown backup tier %q", q.Tier)
	}

	out, err := s.Run(ctx, c.Binary, c.args()...)
	if err != nil {
		return Sample{}, err
	}

	stanza, err := c.parse(out)
	if err != nil {
		return Sample{}, err
	}

	switch stanza.Status.Code {
	case pgbackrestStatusOK:
	case pgbackrestStatusNoValidBackups:
		return Sample{}, core.NewCollectionError(core.KindEmptyResult, "",
			fmt.Errorf("stanza %s: %s", stanza.Name, stanza.Status.Message))
	default:
		return Sample{}, core.NewCollectionError(core.KindHistoryCorrupted, "",
			fmt.Errorf("stanza %s: status %d: %s", stanza.Name, stanza.Status.Code, stanza.Status.Message))
	}

	var last int64
	for _, b := range stanza.Backup {
		if b.Type != backupType || b.Error {
			continue
		}
		if b.Timestamp.Stop > last {
			last = b.Timestamp.Stop
		}
	}
	if last == 0 {
		return Sample{}, core.NewCollectionError(core.KindEmptyResult, "",
			fmt.Errorf("no successful %s backup in stanza %s", q.Tier, stanza.Name))
	}

	age := c.now().Sub(time.Unix(last, 0))
	if age < 0 {
		return Sample{}, core.NewCollectionError(core.KindHistoryCorrupted, "",
			errors.New("last backup ends in the future"))
	}
	return Sample{Value: int64(age / time.Hour)}, nil
}

// parse 挑出配置的 stanza；未指定 stanza 时要求输出里只有一个
func (c *PgBackRestCollector) parse(out []byte) (pgbackrestStanza, error) {
	var stanzas []pgbackrestStanza
	if err := json.Unmarshal(out, &stanzas); err != nil {
		return pgbackrestStanza{}, core.NewCollectionError(core.KindHistoryCorrupted, "",
			fmt.Errorf("decode pgbackrest info: %w", err))
	}
	if len(stanzas) == 0 {
		return pgbackrestStanza{}, core.NewCollectionError(core.KindEmptyResult, "",
			errors.New("pgbackrest info returned no stanza"))
	}
	if c.Stanza == "" {
		if len(stanzas) > 1 {
			return pgbackrestStanza{}, core.NewCollectionError(core.KindHistoryCorrupted, "",
				fmt.Errorf("pgbackrest info returned %d stanzas, set a stanza", len(stanzas)))
		}
		return stanzas[0], nil
	}
	for _, st := range stanzas {
		if st.Name == c.Stanza {
			return st, nil
		}
	}
	return pgbackrestStanza{}, core.NewCollectionError(core.KindEmptyResult, "",
		fmt.Errorf("stanza %s not found", c.Stanza))
}
