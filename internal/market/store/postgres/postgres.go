// Package postgres provides the GORM-backed implementation of store.Store
// for multi-process deployments. Supply updates are compare-and-swap at the
// SQL level, so two processes settling against the same mint cannot lose an
// update even without the in-process per-mint lock.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/soundmint-labs/trackmint/internal/market"
	"github.com/soundmint-labs/trackmint/internal/market/store"
)

// gormLogger routes GORM's logging through zap.
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{zapLogger: zapLogger, logLevel: logger.Warn}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.logLevel = level
	return &cp
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", time.Since(begin)),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.zapLogger.Error("query failed", append(fields, zap.Error(err))...)
		return
	}
	if l.logLevel >= logger.Info {
		l.zapLogger.Debug("query", fields...)
	}
}

// Storage implements store.Store on top of Postgres.
type Storage struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ store.Store = (*Storage)(nil)

// New opens a Postgres connection and returns the store.
func New(dsn string, zapLogger *zap.Logger) (*Storage, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &Storage{db: db, logger: zapLogger.Named("postgres")}, nil
}

// RunMigrations creates or updates the schema.
func (s *Storage) RunMigrations() error {
	if err := s.db.AutoMigrate(&registryRow{}, &factoryRow{}, &purchaseRow{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Storage) InitializeRegistry(ctx context.Context, registry *market.ProtocolRegistry) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&registryRow{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check registry: %w", err)
	}
	if count > 0 {
		return market.ErrAlreadyInitialized
	}

	row := &registryRow{
		Admin:          registry.Admin,
		Treasury:       registry.Treasury,
		PlatformFeeBps: registry.PlatformFeeBps,
		CreatedAt:      registry.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create registry: %w", err)
	}
	return nil
}

func (s *Storage) GetRegistry(ctx context.Context) (*market.ProtocolRegistry, error) {
	var row registryRow
	err := s.db.WithContext(ctx).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, market.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return &market.ProtocolRegistry{
		Admin:          row.Admin,
		Treasury:       row.Treasury,
		PlatformFeeBps: row.PlatformFeeBps,
		CreatedAt:      row.CreatedAt,
	}, nil
}

func (s *Storage) CreateFactory(ctx context.Context, factory *market.TokenFactory) error {
	err := s.db.WithContext(ctx).Create(factoryRowFrom(factory)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return market.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create factory: %w", err)
	}
	return nil
}

func (s *Storage) GetFactory(ctx context.Context, mint string) (*market.TokenFactory, error) {
	var row factoryRow
	err := s.db.WithContext(ctx).Where("mint = ?", mint).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, market.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load factory %s: %w", mint, err)
	}
	return row.toDomain(), nil
}

func (s *Storage) UpdateSupply(ctx context.Context, mint string, prevSupply, newSupply uint64) error {
	res := s.db.WithContext(ctx).
		Model(&factoryRow{}).
		Where("mint = ? AND current_supply = ?", mint, prevSupply).
		Update("current_supply", newSupply)
	if res.Error != nil {
		return fmt.Errorf("failed to update supply for %s: %w", mint, res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the mint is unknown or another writer moved the supply.
		if _, err := s.GetFactory(ctx, mint); err != nil {
			return err
		}
		return market.ErrConcurrentModification
	}
	return nil
}

func (s *Storage) SetActive(ctx context.Context, mint string, active bool) error {
	res := s.db.WithContext(ctx).
		Model(&factoryRow{}).
		Where("mint = ?", mint).
		Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to set active for %s: %w", mint, res.Error)
	}
	if res.RowsAffected == 0 {
		return market.ErrNotFound
	}
	return nil
}

func (s *Storage) ListFactories(ctx context.Context) ([]*market.TokenFactory, error) {
	var rows []factoryRow
	if err := s.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list factories: %w", err)
	}
	out := make([]*market.TokenFactory, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Storage) AppendPurchase(ctx context.Context, result *market.PurchaseResult) error {
	row := &purchaseRow{
		OperationID:       result.OperationID,
		Mint:              result.Mint,
		Buyer:             result.Buyer,
		Amount:            result.Amount,
		TotalCost:         result.TotalCost,
		ArtistFeeAmount:   result.ArtistFeeAmount,
		PlatformFeeAmount: result.PlatformFeeAmount,
		NetToPool:         result.NetToPool,
		NewSupply:         result.NewSupply,
		NewUnitPrice:      result.NewUnitPrice,
		SettledAt:         result.SettledAt,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to append purchase: %w", err)
	}
	return nil
}

func (s *Storage) RecentPurchases(ctx context.Context, mint string, limit int) ([]*market.PurchaseResult, error) {
	q := s.db.WithContext(ctx).Where("mint = ?", mint).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []purchaseRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list purchases for %s: %w", mint, err)
	}
	// Reverse into chronological order.
	out := make([]*market.PurchaseResult, len(rows))
	for i := range rows {
		out[len(rows)-1-i] = rows[i].toDomain()
	}
	return out, nil
}
