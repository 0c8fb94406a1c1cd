package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"kasturi-ledger/internal/model"
)

type ReportRepository interface {
	GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error)
	GetInventoryStats(ctx context.Context, lowStockThreshold int) (*InventoryStats, error)
	GetWalletStats(ctx context.Context) (*WalletStats, error)
}

// StockMovementData is one day of batch stock movement for charts.
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int64  `json:"inbound"`
	Outbound int64  `json:"outbound"`
}

type InventoryStats struct {
	TotalBatches   int64           `json:"totalBatches"`
	ActiveBatches  int64           `json:"activeBatches"`
	LowStockCount  int64           `json:"lowStockCount"`
	TotalUnits     int64           `json:"totalUnits"`
	TotalValuation decimal.Decimal `json:"totalValuation"`
}

type WalletStats struct {
	Wallets      int64 `json:"wallets"`
	ActiveCoins  int64 `json:"activeCoins"`
	PendingCoins int64 `json:"pendingCoins"`
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db}
}

func (r *reportRepo) GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error) {
	results := []StockMovementData{}

	rows, err := r.db.WithContext(ctx).Model(&model.LedgerEntry{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN action = ? THEN amount ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN action = ? THEN amount ELSE 0 END), 0) as outbound
		`, model.ActionStockIn, model.ActionStockOut).
		Where("parent_type = ? AND is_voided = ?", model.ParentBatch, false).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}

func (r *reportRepo) GetInventoryStats(ctx context.Context, lowStockThreshold int) (*InventoryStats, error) {
	var stats InventoryStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Batch{}).Count(&stats.TotalBatches).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Batch{}).Where("is_active = ?", true).Count(&stats.ActiveBatches).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Batch{}).
		Where("is_active = ? AND remaining_quantity < ?", true, lowStockThreshold).
		Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}

	var totals struct {
		Units     int64
		Valuation decimal.Decimal
	}
	if err := db.Model(&model.Batch{}).
		Select("COALESCE(SUM(remaining_quantity), 0) AS units, COALESCE(SUM(remaining_quantity * cost_per_unit), 0) AS valuation").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	stats.TotalUnits = totals.Units
	stats.TotalValuation = totals.Valuation

	return &stats, nil
}

func (r *reportRepo) GetWalletStats(ctx context.Context) (*WalletStats, error) {
	var stats WalletStats
	err := r.db.WithContext(ctx).Model(&model.Wallet{}).
		Select("COUNT(*) AS wallets, COALESCE(SUM(balance), 0) AS active_coins, COALESCE(SUM(pending_balance), 0) AS pending_coins").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
