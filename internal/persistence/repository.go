package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/pixil98/go-battle/internal/battle"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSqlite opens a sqlite database at path. An empty path opens a
// private in-memory database.
func OpenSqlite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("accessing sqlite pool: %w", err)
	}
	// Every pooled connection would otherwise see its own empty database.
	if path == "" {
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	err = db.Exec("PRAGMA journal_mode = WAL;").Error
	if err != nil {
		return nil, fmt.Errorf("setting sqlite pragma: %w", err)
	}

	return db, nil
}

// OpenPostgres connects to a postgres database.
func OpenPostgres(dsn string, maxOpenConns int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("accessing postgres pool: %w", err)
	}
	if maxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(maxOpenConns)
	}

	return db, nil
}

// Repository stores durable battle records.
type Repository struct {
	db *gorm.DB
}

// NewRepository migrates the schema and returns a repository over db.
func NewRepository(db *gorm.DB) (*Repository, error) {
	err := db.AutoMigrate(&BattleRecord{})
	if err != nil {
		return nil, fmt.Errorf("migrating battle records: %w", err)
	}
	return &Repository{db: db}, nil
}

// CreateBattle inserts the record written when a battle starts.
func (r *Repository) CreateBattle(ctx context.Context, b *battle.Battle) error {
	err := r.db.WithContext(ctx).Create(recordFromBattle(b)).Error
	if err != nil {
		return fmt.Errorf("creating battle %s: %w", b.ID, err)
	}
	return nil
}

// SaveBattleOutcome writes a battle's terminal state.
func (r *Repository) SaveBattleOutcome(ctx context.Context, b *battle.Battle) error {
	err := r.db.WithContext(ctx).Save(recordFromBattle(b)).Error
	if err != nil {
		return fmt.Errorf("saving outcome of battle %s: %w", b.ID, err)
	}
	return nil
}

// UpdateConnections records rebound connection ids.
func (r *Repository) UpdateConnections(ctx context.Context, b *battle.Battle) error {
	err := r.db.WithContext(ctx).
		Model(&BattleRecord{ID: b.ID}).
		Updates(map[string]any{
			"player1_connection_id": b.Player1ConnectionID,
			"player2_connection_id": b.Player2ConnectionID,
		}).Error
	if err != nil {
		return fmt.Errorf("updating connections of battle %s: %w", b.ID, err)
	}
	return nil
}

// GetBattle returns a record by id or battle.ErrNotFound.
func (r *Repository) GetBattle(ctx context.Context, id string) (*battle.Battle, error) {
	var rec BattleRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, battle.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading battle %s: %w", id, err)
	}
	return rec.toBattle(), nil
}

// FindActiveBattleByConnection returns the active battle bound to connID or
// battle.ErrNotFound.
func (r *Repository) FindActiveBattleByConnection(ctx context.Context, connID string) (*battle.Battle, error) {
	var rec BattleRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", battle.StatusActive).
		Where("player1_connection_id = ? OR player2_connection_id = ?", connID, connID).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, battle.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding battle for connection %s: %w", connID, err)
	}
	return rec.toBattle(), nil
}
