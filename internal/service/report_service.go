package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/chart"
	"github.com/Freeeeeet/bizsuite/internal/events"
	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/report"
	"go.uber.org/zap"
)

// dashboardUpcomingDays is how far ahead the dashboard agenda looks
const dashboardUpcomingDays = 7

// DatasetSource loads the finance dataset and tells where it came from
type DatasetSource interface {
	LoadDataset(ctx context.Context) (*model.Dataset, string, error)
}

// Dashboard is the landing view of the finance tracker
type Dashboard struct {
	Month    *model.Report        `json:"month"`
	Week     *model.Report        `json:"week"`
	Upcoming []model.UpcomingItem `json:"upcoming"`
	Source   string               `json:"source"`
}

type ReportService struct {
	source     DatasetSource
	reportRepo ReportRepo
	publisher  events.Publisher
	loc        *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

func NewReportService(
	source DatasetSource,
	reportRepo ReportRepo,
	publisher events.Publisher,
	loc *time.Location,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		source:     source,
		reportRepo: reportRepo,
		publisher:  publisher,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

// Compute aggregates the period containing at without storing it
func (s *ReportService) Compute(ctx context.Context, pt model.PeriodType, at time.Time) (*model.Report, error) {
	if err := checkPeriodType(pt); err != nil {
		return nil, err
	}

	ds, source, err := s.source.LoadDataset(ctx)
	if err != nil {
		return nil, err
	}
	return s.aggregate(ds, source, pt, at)
}

// Generate computes the period containing at and stores it, replacing any previous version
func (s *ReportService) Generate(ctx context.Context, pt model.PeriodType, at time.Time) (*model.Report, error) {
	if err := checkPeriodType(pt); err != nil {
		return nil, err
	}

	ds, source, err := s.source.LoadDataset(ctx)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, ds, source, pt, at)
}

// GenerateCurrent refreshes the stored reports of the current and previous week and month
func (s *ReportService) GenerateCurrent(ctx context.Context) error {
	ds, source, err := s.source.LoadDataset(ctx)
	if err != nil {
		return err
	}

	now := s.now().In(s.loc)
	var errs []error
	for _, pt := range []model.PeriodType{model.PeriodWeekly, model.PeriodMonthly} {
		start, _, err := report.Bounds(pt, now, s.loc)
		if err != nil {
			return err
		}
		for _, at := range []time.Time{start, report.Previous(pt, start)} {
			if _, err := s.generate(ctx, ds, source, pt, at); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Stored returns previously generated reports, newest first
func (s *ReportService) Stored(ctx context.Context, pt model.PeriodType, limit int) ([]*model.Report, error) {
	if err := checkPeriodType(pt); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 12
	}
	reports, err := s.reportRepo.List(ctx, pt, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// Series aggregates every period between from and to, both included
func (s *ReportService) Series(ctx context.Context, pt model.PeriodType, from, to time.Time) ([]*model.Report, error) {
	if err := checkPeriodType(pt); err != nil {
		return nil, err
	}

	ds, source, err := s.source.LoadDataset(ctx)
	if err != nil {
		return nil, err
	}

	reports, err := report.Series(ds, pt, from, to, s.loc)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"range": err.Error()}}
	}

	now := s.now()
	for _, r := range reports {
		r.Source = source
		r.GeneratedAt = now
	}
	return reports, nil
}

// Chart renders Series as a PNG
func (s *ReportService) Chart(ctx context.Context, pt model.PeriodType, from, to time.Time) ([]byte, error) {
	reports, err := s.Series(ctx, pt, from, to)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Receitas x Despesas  %s a %s",
		report.Label(pt, reports[0].PeriodStart),
		report.Label(pt, reports[len(reports)-1].PeriodStart),
	)
	png, err := chart.Render(title, reports)
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return png, nil
}

// Dashboard returns the current month and week plus the agenda of the next days
func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	ds, source, err := s.source.LoadDataset(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	month, err := s.aggregate(ds, source, model.PeriodMonthly, now)
	if err != nil {
		return nil, err
	}
	week, err := s.aggregate(ds, source, model.PeriodWeekly, now)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Month:    month,
		Week:     week,
		Upcoming: UpcomingFrom(ds.Payments, ds.Installments, now, dashboardUpcomingDays, s.loc),
		Source:   source,
	}, nil
}

func (s *ReportService) aggregate(ds *model.Dataset, source string, pt model.PeriodType, at time.Time) (*model.Report, error) {
	rep, err := report.Aggregate(ds, pt, at, s.loc)
	if err != nil {
		return nil, err
	}
	rep.Source = source
	rep.GeneratedAt = s.now()
	return rep, nil
}

func (s *ReportService) generate(ctx context.Context, ds *model.Dataset, source string, pt model.PeriodType, at time.Time) (*model.Report, error) {
	rep, err := s.aggregate(ds, source, pt, at)
	if err != nil {
		return nil, err
	}

	if err := s.reportRepo.Upsert(ctx, rep); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}

	s.logger.Info("Report generated",
		zap.String("period", report.Label(pt, rep.PeriodStart)),
		zap.String("balance", rep.Balance.StringFixed(2)),
		zap.String("source", source),
	)

	if err := s.publisher.Publish(ctx, events.TypeReportGenerated, rep); err != nil {
		s.logger.Warn("Publish event failed", zap.String("type", events.TypeReportGenerated), zap.Error(err))
	}
	return rep, nil
}

func checkPeriodType(pt model.PeriodType) error {
	if !pt.Valid() {
		return &ValidationError{Fields: map[string]string{"type": "must be weekly or monthly"}}
	}
	return nil
}
