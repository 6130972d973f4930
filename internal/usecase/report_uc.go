package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shop-payment-service/internal/domain"
	"shop-payment-service/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const reportCacheTTL = 60 * time.Second

// ReportUsecase serves the admin dashboard's aggregates. Strictly read-only:
// it holds no reference to anything that can write the ledger. A Redis
// cache (optional, nil disables it) absorbs dashboard refresh traffic.
type ReportUsecase struct {
	reports repository.ReportRepository
	cache   *redis.Client
	logger  *zap.Logger
}

func NewReportUsecase(reports repository.ReportRepository, cache *redis.Client, logger *zap.Logger) *ReportUsecase {
	return &ReportUsecase{reports: reports, cache: cache, logger: logger}
}

func (uc *ReportUsecase) Summary(ctx context.Context, from, to time.Time) (*domain.ReportSummary, error) {
	cacheKey := fmt.Sprintf("payments:report:%d:%d", from.Unix(), to.Unix())

	if uc.cache != nil {
		if raw, err := uc.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var summary domain.ReportSummary
			if err := json.Unmarshal(raw, &summary); err == nil {
				return &summary, nil
			}
		}
	}

	byStatus, err := uc.reports.TotalsByStatus(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byChannel, err := uc.reports.TotalsByChannel(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byDay, err := uc.reports.DailyTotals(ctx, from, to)
	if err != nil {
		return nil, err
	}

	summary := &domain.ReportSummary{
		From:      from,
		To:        to,
		ByStatus:  byStatus,
		ByChannel: byChannel,
		ByDay:     byDay,
	}

	if uc.cache != nil {
		if raw, err := json.Marshal(summary); err == nil {
			if err := uc.cache.Set(ctx, cacheKey, raw, reportCacheTTL).Err(); err != nil {
				uc.logger.Warn("failed to cache report summary", zap.Error(err))
			}
		}
	}

	return summary, nil
}
