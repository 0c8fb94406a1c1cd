package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"kasturi-ledger/internal/coins"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/pkg/apperror"
)

const maxMovementDays = 366

type ReportService interface {
	GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error)
	GetInventoryStats(ctx context.Context) (*repository.InventoryStats, error)
	GetWalletStats(ctx context.Context) (*WalletStats, error)
}

// WalletStats is the coin liability the store carries.
type WalletStats struct {
	repository.WalletStats
	ActiveValue  decimal.Decimal `json:"activeValue"`
	PendingValue decimal.Decimal `json:"pendingValue"`
}

type reportService struct {
	reportRepo        repository.ReportRepository
	lowStockThreshold int
	loc               *time.Location
}

func NewReportService(reportRepo repository.ReportRepository, lowStockThreshold int, loc *time.Location) ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &reportService{reportRepo: reportRepo, lowStockThreshold: lowStockThreshold, loc: loc}
}

func (s *reportService) GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	if days < 1 || days > maxMovementDays {
		return nil, apperror.Validation("days must be between 1 and %d", maxMovementDays)
	}

	endDate := time.Now().In(s.loc)
	y, m, d := endDate.AddDate(0, 0, -(days - 1)).Date()
	startDate := time.Date(y, m, d, 0, 0, 0, 0, s.loc)

	return s.reportRepo.GetStockMovement(ctx, startDate, endDate)
}

func (s *reportService) GetInventoryStats(ctx context.Context) (*repository.InventoryStats, error) {
	return s.reportRepo.GetInventoryStats(ctx, s.lowStockThreshold)
}

func (s *reportService) GetWalletStats(ctx context.Context) (*WalletStats, error) {
	stats, err := s.reportRepo.GetWalletStats(ctx)
	if err != nil {
		return nil, err
	}
	return &WalletStats{
		WalletStats:  *stats,
		ActiveValue:  coins.Value(stats.ActiveCoins),
		PendingValue: coins.Value(stats.PendingCoins),
	}, nil
}
