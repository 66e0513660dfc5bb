package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laowang/db-health-check/pkg/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want core.ErrorKind
	}{
		{"deadline", context.DeadlineExceeded, core.KindTimeout},
		{"wrapped deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), core.KindTimeout},
		{"no rows", sql.ErrNoRows, core.KindEmptyResult},
		{"mysql no such table", &mysql.MySQLError{Number: 1146, Message: "Table 'mysql.backup_history' doesn't exist"}, core.KindHistoryCorrupted},
		{"mysql bad field", &mysql.MySQLError{Number: 1054}, core.KindHistoryCorrupted},
		{"mysql read only", &mysql.MySQLError{Number: 1290}, core.KindReplicationConflict},
		{"mysql read only mode", &mysql.MySQLError{Number: 1836}, core.KindReplicationConflict},
		{"mysql access denied", &mysql.MySQLError{Number: 1045}, core.KindConnectionFailure},
		{"pg starting up", &pgconn.PgError{Code: "57P03"}, core.KindReplicationReplaying},
		{"pg read only", &pgconn.PgError{Code: "25006"}, core.KindReplicationConflict},
		{"pg recovery conflict", &pgconn.PgError{Code: "40001", Message: "canceling statement due to conflict with recovery"}, core.KindReplicationConflict},
		{"pg serialization", &pgconn.PgError{Code: "40001", Message: "could not serialize access"}, core.KindConnectionFailure},
		{"pg undefined function", &pgconn.PgError{Code: "42883"}, core.KindHistoryCorrupted},
		{"pg auth", &pgconn.PgError{Code: "28P01"}, core.KindConnectionFailure},
		{"unknown", errors.New("dial tcp: connection refused"), core.KindConnectionFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(context.Background(), MetricBackupAge, tt.err)
			var ce *core.CollectionError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.want, ce.Kind)
			assert.Equal(t, MetricBackupAge, ce.Metric)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassify_ExpiredContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := Classify(ctx, MetricRole, errors.New("driver: bad connection"))
	assert.ErrorIs(t, err, core.ErrTimeout)
}

func TestClassify_KeepsExistingKind(t *testing.T) {
	assert.NoError(t, Classify(context.Background(), MetricRole, nil))

	in := core.NewCollectionError(core.KindEmptyResult, "", errors.New("server is not a replica"))
	err := Classify(context.Background(), MetricReplicationLag, in)
	assert.ErrorIs(t, err, core.ErrEmptyResult)
	assert.Equal(t, "empty result: replication_lag: server is not a replica", err.Error())

	named := core.NewCollectionError(core.KindTimeout, MetricRole, nil)
	assert.Same(t, named, Classify(context.Background(), MetricBackupAge, named))
}
