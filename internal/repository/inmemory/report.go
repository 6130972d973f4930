package inmemory

import (
	"context"
	"sort"
	"time"

	"shop-payment-service/internal/domain"

	"github.com/shopspring/decimal"
)

func (l *Ledger) TotalsByStatus(_ context.Context, from, to time.Time) ([]domain.StatusTotal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[domain.AttemptStatus]*domain.StatusTotal)
	for _, a := range l.attempts {
		if a.CreatedAt.Before(from) || !a.CreatedAt.Before(to) {
			continue
		}
		t, ok := counts[a.Status]
		if !ok {
			t = &domain.StatusTotal{Status: a.Status, Total: decimal.Zero}
			counts[a.Status] = t
		}
		t.Count++
		t.Total = t.Total.Add(a.Amount)
	}

	var totals []domain.StatusTotal
	for _, t := range counts {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Status < totals[j].Status })
	return totals, nil
}

func (l *Ledger) TotalsByChannel(_ context.Context, from, to time.Time) ([]domain.ChannelTotal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[domain.PaymentChannel]*domain.ChannelTotal)
	for _, a := range l.attempts {
		if a.CreatedAt.Before(from) || !a.CreatedAt.Before(to) {
			continue
		}
		t, ok := counts[a.Channel]
		if !ok {
			t = &domain.ChannelTotal{Channel: a.Channel, Total: decimal.Zero}
			counts[a.Channel] = t
		}
		t.Count++
		t.Total = t.Total.Add(a.Amount)
	}

	var totals []domain.ChannelTotal
	for _, t := range counts {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Channel < totals[j].Channel })
	return totals, nil
}

func (l *Ledger) DailyTotals(_ context.Context, from, to time.Time) ([]domain.DayTotal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	days := make(map[time.Time]*domain.DayTotal)
	for _, a := range l.attempts {
		if a.Status != domain.AttemptStatusCompleted || a.SettledAt == nil {
			continue
		}
		if a.SettledAt.Before(from) || !a.SettledAt.Before(to) {
			continue
		}
		day := a.SettledAt.UTC().Truncate(24 * time.Hour)
		t, ok := days[day]
		if !ok {
			t = &domain.DayTotal{Day: day, Total: decimal.Zero}
			days[day] = t
		}
		t.Count++
		t.Total = t.Total.Add(a.Amount)
	}

	var totals []domain.DayTotal
	for _, t := range days {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Day.Before(totals[j].Day) })
	return totals, nil
}
