package store

import (
	"context"
	"time"

	"flickrpicker/pkg/logger"

	"github.com/jackc/pgx/v5"
)

const slowQueryThreshold = 200 * time.Millisecond

type ctxKey int

const traceQueryCtxKey ctxKey = iota

type traceQueryData struct {
	startTime time.Time
	sql       string
}

// tracer logs failed and slow queries
type tracer struct {
	logger logger.Logger
}

func (tl *tracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceQueryCtxKey, &traceQueryData{
		startTime: time.Now(),
		sql:       data.SQL,
	})
}

func (tl *tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	queryData, ok := ctx.Value(traceQueryCtxKey).(*traceQueryData)
	if !ok {
		return
	}
	interval := time.Since(queryData.startTime)

	if data.Err != nil {
		tl.logger.WarnWithFields("query failed", map[string]interface{}{
			"sql":         queryData.sql,
			"error":       data.Err.Error(),
			"duration_ms": interval.Milliseconds(),
		})
		return
	}

	if interval > slowQueryThreshold {
		tl.logger.WarnWithFields("slow query", map[string]interface{}{
			"sql":         queryData.sql,
			"command_tag": data.CommandTag.String(),
			"duration_ms": interval.Milliseconds(),
		})
	}
}
