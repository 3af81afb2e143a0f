package database

import (
	"context"
	"testing"
	"testing/fstest"

	"agora/internal/config"
	"agora/internal/models"
	"agora/internal/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, configurePool(db, &config.Config{}))
	return db
}

func TestConnectWithOptions_SQLiteAppliesSchema(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", DBPath: ":memory:", Env: "test"}

	db, err := ConnectWithOptions(cfg, ConnectOptions{ApplySchema: true})
	require.NoError(t, err)
	assert.Same(t, db, GetDB())

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}

func TestDialectorFor(t *testing.T) {
	tests := []struct {
		driver  string
		name    string
		wantErr bool
	}{
		{driver: "", name: "postgres"},
		{driver: "postgres", name: "postgres"},
		{driver: "mysql", name: "mysql"},
		{driver: "sqlite", name: "sqlite"},
		{driver: "oracle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := dialectorFor(&config.Config{DBDriver: tt.driver, DBPath: ":memory:"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, d.Name())
		})
	}
}

func TestConfigurePool_SQLiteSingleConnection(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, configurePool(db, &config.Config{DBMaxOpenConns: 10}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{name: "hybrid dev", cfg: config.Config{Env: "development"}, wantSQL: true, wantAuto: true},
		{name: "hybrid prod", cfg: config.Config{Env: "production", DBSchemaMode: "hybrid"}, wantSQL: true},
		{name: "sql", cfg: config.Config{Env: "development", DBSchemaMode: "SQL"}, wantSQL: true},
		{name: "auto dev", cfg: config.Config{Env: "development", DBSchemaMode: "auto"}, wantAuto: true},
		{name: "auto prod refused", cfg: config.Config{Env: "staging", DBSchemaMode: "auto"}, wantErr: true},
		{name: "auto prod allowed", cfg: config.Config{Env: "prod", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, wantAuto: true},
		{name: "unknown", cfg: config.Config{DBSchemaMode: "yolo"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAuto, runAuto)
		})
	}
}

func TestGetSchemaStatus_SQLiteFallsBackToAutoMigrate(t *testing.T) {
	db := openSQLite(t)

	status, err := GetSchemaStatus(context.Background(), db, &config.Config{Env: "production", DBSchemaMode: SchemaModeSQL})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Dialect)
	assert.False(t, status.WillRunSQL)
	assert.True(t, status.WillRunAutoMigrate)
	assert.Empty(t, status.PendingMigrations)
}

func TestRunMigrations_RejectsNonPostgres(t *testing.T) {
	db := openSQLite(t)
	assert.ErrorIs(t, RunMigrations(context.Background(), db), ErrSQLMigrationsUnsupported)
	assert.ErrorIs(t, RollbackMigration(context.Background(), db, 1), ErrSQLMigrationsUnsupported)
	_, err := RollbackLast(context.Background(), db, 1)
	assert.ErrorIs(t, err, ErrSQLMigrationsUnsupported)
}

func TestEmbeddedMigrations(t *testing.T) {
	all := GetMigrations()
	require.Len(t, all, 4)
	for i, m := range all {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpScript)
		assert.NotEmpty(t, m.DownScript)
	}
	assert.Equal(t, "000003_engagement", all[2].String())
	assert.Contains(t, all[2].UpScript, "chk_votes_value")
	assert.Contains(t, all[2].UpScript, "idx_votes_user_target")
	assert.Nil(t, GetMigrationByVersion(99))
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_second.up.sql":   {Data: []byte("SELECT 2;")},
		"m/000002_second.down.sql": {Data: []byte("SELECT -2;")},
		"m/000001_first.up.sql":    {Data: []byte("SELECT 1;")},
		"m/000001_first.down.sql":  {Data: []byte("SELECT -1;")},
		"m/notes.txt":              {Data: []byte("ignored")},
		"m/bad.up.sql":             {Data: []byte("SELECT 0;")},
	}

	got, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, "SELECT -2;", got[1].DownScript)

	t.Run("missing down script", func(t *testing.T) {
		_, err := LoadMigrations(fstest.MapFS{"m/000001_x.up.sql": {Data: []byte("SELECT 1;")}}, "m")
		assert.Error(t, err)
	})
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))

	err := validateAppliedVersions([]int{7, 1, 5}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000005, 000007")
}

func TestMigrationStore_MissingTableIsEmpty(t *testing.T) {
	db := openSQLite(t)
	applied, err := NewMigrationStore(db).GetAppliedMigrations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestPersistentModels_IncludesEngagementAndModeration(t *testing.T) {
	var vote, report bool
	for _, m := range PersistentModels() {
		switch m.(type) {
		case *models.Vote:
			vote = true
		case *models.Report:
			report = true
		}
	}
	assert.True(t, vote)
	assert.True(t, report)
}

func TestAutoMigrate_VoteConstraints(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, db.Create(&models.Vote{UserID: 1, TargetType: models.TargetPost, TargetID: 9, Value: models.VoteUp}).Error)

	dup := db.Create(&models.Vote{UserID: 1, TargetType: models.TargetPost, TargetID: 9, Value: models.VoteDown}).Error
	assert.ErrorIs(t, dup, gorm.ErrDuplicatedKey)

	zero := db.Create(&models.Vote{UserID: 2, TargetType: models.TargetPost, TargetID: 9, Value: 0}).Error
	assert.Error(t, zero)
}

func TestQueryMetricsCallbacks(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, registerQueryMetrics(db))
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, db.Create(&models.User{Username: "m", Email: "m@example.com", Password: "x"}).Error)
	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)

	assert.Positive(t, testutil.CollectAndCount(observability.DatabaseQueryLatency))
}

func TestIsMissingTableError(t *testing.T) {
	for _, msg := range []string{
		`ERROR: relation "migration_logs" does not exist (SQLSTATE 42P01)`,
		"no such table: migration_logs",
		"Error 1146 (42S02): Table 'agora.migration_logs' doesn't exist",
	} {
		assert.True(t, isMissingTableError(stringError(msg)), msg)
	}
	assert.False(t, isMissingTableError(stringError("connection refused")))
}

type stringError string

func (e stringError) Error() string { return string(e) }
