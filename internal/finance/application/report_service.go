package application

import (
	"context"
	"time"

	"github.com/cashlytics/server/internal/finance/domain"
	"github.com/shopspring/decimal"
)

const dayKeyFormat = "2006-01-02"

type DailyActivity struct {
	Date    time.Time
	Credits decimal.Decimal
	Debits  decimal.Decimal
}

type WeeklyReport struct {
	TotalCredits   decimal.Decimal
	TotalDebits    decimal.Decimal
	NetBalance     decimal.Decimal
	StartDate      time.Time
	EndDate        time.Time
	DailyBreakdown []DailyActivity
}

// ReportService is the weekly report engine.
type ReportService struct {
	repo domain.TransactionRepository
	now  func() time.Time
}

func NewReportService(repo domain.TransactionRepository) *ReportService {
	return &ReportService{repo: repo, now: time.Now}
}

// WeekWindow floors the reference date to the Monday of its week and returns
// the inclusive Monday-Sunday window containing it.
func WeekWindow(reference time.Time) (start, end time.Time) {
	reference = domain.NormalizeDate(reference)
	// time.Weekday counts Sunday=0; shift so Monday=0..Sunday=6.
	daysSinceMonday := (int(reference.Weekday()) + 6) % 7
	start = reference.AddDate(0, 0, -daysSinceMonday)
	end = start.AddDate(0, 0, 6)
	return start, end
}

// WeeklyReport aggregates the user's transactions over the week containing
// referenceDate (today when nil). The range filter is pushed down to the store
// rather than scanning the user's full history client-side.
//
// Totals are summed over every fetched row, independently of the per-day
// buckets: a row whose date falls outside the seven bucket dates still counts
// toward the totals but is absent from the breakdown.
func (s *ReportService) WeeklyReport(ctx context.Context, userID string, referenceDate *time.Time) (*WeeklyReport, error) {
	reference := s.now()
	if referenceDate != nil {
		reference = *referenceDate
	}
	start, end := WeekWindow(reference)

	transactions, err := s.repo.FindByUserInDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	breakdown := make([]DailyActivity, 7)
	bucketIndex := make(map[string]int, 7)
	for i := range breakdown {
		day := start.AddDate(0, 0, i)
		breakdown[i] = DailyActivity{Date: day, Credits: decimal.Zero, Debits: decimal.Zero}
		bucketIndex[day.Format(dayKeyFormat)] = i
	}

	totalCredits := decimal.Zero
	totalDebits := decimal.Zero
	for _, transaction := range transactions {
		isCredit := transaction.Type == domain.TypeCredit
		if isCredit {
			totalCredits = totalCredits.Add(transaction.Amount)
		} else {
			totalDebits = totalDebits.Add(transaction.Amount)
		}

		i, ok := bucketIndex[transaction.Date.Format(dayKeyFormat)]
		if !ok {
			continue
		}
		if isCredit {
			breakdown[i].Credits = breakdown[i].Credits.Add(transaction.Amount)
		} else {
			breakdown[i].Debits = breakdown[i].Debits.Add(transaction.Amount)
		}
	}

	return &WeeklyReport{
		TotalCredits:   totalCredits.Round(2),
		TotalDebits:    totalDebits.Round(2),
		NetBalance:     totalCredits.Sub(totalDebits).Round(2),
		StartDate:      start,
		EndDate:        end,
		DailyBreakdown: breakdown,
	}, nil
}
