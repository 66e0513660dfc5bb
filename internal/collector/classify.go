package collector

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"laowang/db-health-check/pkg/core"
)

// Classify 把驱动、命令或上下文错误归类为 *core.CollectionError。
// 已经分类过的错误原样返回（补上指标名）；无法识别的错误按连接失败处理。
func Classify(ctx context.Context, metric string, err error) error {
	if err == nil {
		return nil
	}

	var ce *core.CollectionError
	if errors.As(err, &ce) {
		if ce.Metric == "" {
			return core.NewCollectionError(ce.Kind, metric, ce.Err)
		}
		return ce
	}

	return core.NewCollectionError(classifyKind(ctx, err), metric, err)
}

func classifyKind(ctx context.Context, err error) core.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return core.KindTimeout
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.KindEmptyResult
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return mysqlKind(me)
	}

	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return postgresKind(pe)
	}

	return core.KindConnectionFailure
}

// mysqlKind 服务端错误号见 MySQL Server Error Message Reference
func mysqlKind(me *mysql.MySQLError) core.ErrorKind {
	switch me.Number {
	case 1146, // ER_NO_SUCH_TABLE
		1054, // ER_BAD_FIELD_ERROR
		1356: // ER_VIEW_INVALID
		return core.KindHistoryCorrupted
	case 1290, // ER_OPTION_PREVENTS_STATEMENT (read_only / super_read_only)
		1792, // ER_CANT_EXECUTE_IN_READ_ONLY_TRANSACTION
		1836: // ER_READ_ONLY_MODE
		return core.KindReplicationConflict
	default:
		// 1040 too many connections, 1044/1045 access denied, 1049 unknown database ...
		return core.KindConnectionFailure
	}
}

func postgresKind(pe *pgconn.PgError) core.ErrorKind {
	switch {
	case pe.Code == "57P03": // cannot_connect_now，恢复/启动中
		return core.KindReplicationReplaying
	case pe.Code == "25006": // read_only_sql_transaction
		return core.KindReplicationConflict
	case pe.Code == "40001" && strings.Contains(pe.Message, "conflict with recovery"):
		return core.KindReplicationConflict
	case pe.Code == "42P01", // undefined_table
		pe.Code == "42703", // undefined_column
		pe.Code == "42883": // undefined_function
		return core.KindHistoryCorrupted
	default:
		// class 08 connection exception, class 28 invalid authorization,
		// 3D000 invalid_catalog_name, 53300 too_many_connections ...
		return core.KindConnectionFailure
	}
}
