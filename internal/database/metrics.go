package database

import (
	"time"

	"agora/internal/observability"

	"gorm.io/gorm"
)

const queryStartKey = "agora:query_start"

func startQueryTimer(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func observeQuery(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		observability.ObserveQuery(operation, db.Statement.Table, time.Since(start))
	}
}

// registerQueryMetrics hooks query latency histograms into every GORM operation.
func registerQueryMetrics(db *gorm.DB) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	cb := db.Callback()
	keep(cb.Create().Before("gorm:create").Register("agora:metrics_start_create", startQueryTimer))
	keep(cb.Create().After("gorm:create").Register("agora:metrics_observe_create", observeQuery("create")))
	keep(cb.Query().Before("gorm:query").Register("agora:metrics_start_query", startQueryTimer))
	keep(cb.Query().After("gorm:query").Register("agora:metrics_observe_query", observeQuery("query")))
	keep(cb.Update().Before("gorm:update").Register("agora:metrics_start_update", startQueryTimer))
	keep(cb.Update().After("gorm:update").Register("agora:metrics_observe_update", observeQuery("update")))
	keep(cb.Delete().Before("gorm:delete").Register("agora:metrics_start_delete", startQueryTimer))
	keep(cb.Delete().After("gorm:delete").Register("agora:metrics_observe_delete", observeQuery("delete")))
	keep(cb.Row().Before("gorm:row").Register("agora:metrics_start_row", startQueryTimer))
	keep(cb.Row().After("gorm:row").Register("agora:metrics_observe_row", observeQuery("row")))
	keep(cb.Raw().Before("gorm:raw").Register("agora:metrics_start_raw", startQueryTimer))
	keep(cb.Raw().After("gorm:raw").Register("agora:metrics_observe_raw", observeQuery("raw")))
	return firstErr
}
