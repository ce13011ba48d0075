package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pantrybridge/api/internal/database"
	"github.com/pantrybridge/api/internal/enum"
)

const trendWindow = 90 * 24 * time.Hour

// StatsStore defines the DB methods needed for the admin dashboard.
type StatsStore interface {
	CountOrders(ctx context.Context, batchID pgtype.Text) (int64, error)
	CountOrdersByStatus(ctx context.Context, batchID pgtype.Text) ([]database.CountOrdersByStatusRow, error)
	ListOrderCreationTimes(ctx context.Context, since time.Time) ([]time.Time, error)
	CountUsers(ctx context.Context) (int64, error)
	CountUsersCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

// StatsService aggregates dashboard numbers. Weekly buckets are aligned to
// the pantry's local Sunday, so a submission late Saturday night and one
// early Sunday morning land in different weeks.
type StatsService struct {
	store StatsStore
	loc   *time.Location
	now   func() time.Time
}

func NewStatsService(store StatsStore, loc *time.Location) *StatsService {
	return &StatsService{store: store, loc: loc, now: time.Now}
}

// WeeklyCount is one point of the submission trend. WeekStart is the local
// Sunday date in YYYY-MM-DD form.
type WeeklyCount struct {
	WeekStart string `json:"week_start"`
	Count     int64  `json:"count"`
}

// Dashboard is the aggregated admin view. Counts never fail the whole
// response shape: a batch with no orders reports zeros, not nulls.
type Dashboard struct {
	TotalOrders      int64         `json:"total_orders"`
	PendingOrders    int64         `json:"pending_orders"`
	CompletedOrders  int64         `json:"completed_orders"`
	WeeklyTrend      []WeeklyCount `json:"weekly_trend"`
	TotalUsers       int64         `json:"total_users"`
	NewRegistrations int64         `json:"new_registrations"`
}

// GetDashboard computes the dashboard. batchID scopes the order counts when
// non-empty; the trend and the user counts are always global.
func (s *StatsService) GetDashboard(ctx context.Context, batchID string) (*Dashboard, error) {
	bid := textOrNull(batchID)
	now := s.now()

	total, err := s.store.CountOrders(ctx, bid)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	byStatus, err := s.store.CountOrdersByStatus(ctx, bid)
	if err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}

	trend, err := s.weeklyTrend(ctx, now)
	if err != nil {
		return nil, err
	}

	totalUsers, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	newUsers, err := s.store.CountUsersCreatedSince(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("count new users: %w", err)
	}

	d := &Dashboard{
		TotalOrders:      total,
		WeeklyTrend:      trend,
		TotalUsers:       totalUsers,
		NewRegistrations: newUsers,
	}
	for _, row := range byStatus {
		switch row.Status {
		case enum.OrderStatusPending:
			d.PendingOrders = row.Count
		case enum.OrderStatusCompleted:
			d.CompletedOrders = row.Count
		}
	}
	return d, nil
}

func (s *StatsService) weeklyTrend(ctx context.Context, now time.Time) ([]WeeklyCount, error) {
	times, err := s.store.ListOrderCreationTimes(ctx, now.Add(-trendWindow))
	if err != nil {
		return nil, fmt.Errorf("list order times: %w", err)
	}

	buckets := make(map[string]int64)
	for _, t := range times {
		buckets[s.weekStart(t)]++
	}

	trend := make([]WeeklyCount, 0, len(buckets))
	for week, count := range buckets {
		trend = append(trend, WeeklyCount{WeekStart: week, Count: count})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].WeekStart < trend[j].WeekStart })
	return trend, nil
}

// weekStart returns the local Sunday date of the week containing t.
func (s *StatsService) weekStart(t time.Time) string {
	local := t.In(s.loc)
	sunday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc).
		AddDate(0, 0, -int(local.Weekday()))
	return sunday.Format("2006-01-02")
}
