package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/shootdesk-api/internal/dto"
	"github.com/noah-isme/shootdesk-api/internal/models"
	"github.com/noah-isme/shootdesk-api/pkg/calendar"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
	"github.com/noah-isme/shootdesk-api/pkg/export"
)

const exportPageSize = 500

var rosterHeaders = []string{"date", "start", "end", "location", "category", "subject", "instructor", "status", "operator", "confirmed"}

type bookingLister interface {
	List(ctx context.Context, actor models.ActorContext, query dto.BookingQuery) ([]models.Booking, *models.Pagination, error)
}

type operatorLister interface {
	ListActive(ctx context.Context) ([]models.Operator, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Title string
}

// ExportFile is a rendered roster ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the weekly roster of active bookings.
type ExportService struct {
	bookings  bookingLister
	operators operatorLister
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(bookings bookingLister, operators operatorLister, validate *validator.Validate, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Title == "" {
		cfg.Title = "Weekly shoot roster"
	}
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{bookings: bookings, operators: operators, csv: csv, pdf: pdf, validator: validate, logger: logger, cfg: cfg}
}

// Roster renders the active bookings of a week visible to actor.
func (s *ExportService) Roster(ctx context.Context, actor models.ActorContext, query dto.ExportQuery) (*ExportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}
	week, err := calendar.ParseDate(query.Week)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	weekStart := calendar.FormatDate(calendar.WeekStart(week))

	bookings, err := s.collect(ctx, actor, weekStart)
	if err != nil {
		return nil, err
	}
	dataset, err := s.dataset(ctx, bookings)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("roster-%s", weekStart)
	switch query.Format {
	case "pdf":
		subtitle := fmt.Sprintf("Week of %s (%d bookings)", weekStart, len(bookings))
		data, err := s.pdf.Render(dataset, s.cfg.Title, subtitle)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: name + ".pdf", ContentType: "application/pdf", Data: data}, nil
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: name + ".csv", ContentType: "text/csv; charset=utf-8", Data: data}, nil
	}
}

func (s *ExportService) collect(ctx context.Context, actor models.ActorContext, weekStart string) ([]models.Booking, error) {
	var out []models.Booking
	for page := 1; ; page++ {
		items, pagination, err := s.bookings.List(ctx, actor, dto.BookingQuery{Week: weekStart, ActiveOnly: true, Page: page, PageSize: exportPageSize})
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if len(items) == 0 || pagination == nil || len(out) >= pagination.TotalCount {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (s *ExportService) dataset(ctx context.Context, bookings []models.Booking) (export.Dataset, error) {
	names := map[int64]string{}
	if s.operators != nil {
		roster, err := s.operators.ListActive(ctx)
		if err != nil {
			return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load operators")
		}
		for _, op := range roster {
			names[op.ID] = op.DisplayName
		}
	}

	rows := make([]map[string]string, 0, len(bookings))
	for _, b := range bookings {
		row := map[string]string{
			"date":       b.Date,
			"start":      trimSeconds(b.StartTime),
			"end":        trimSeconds(b.EndTime),
			"location":   b.LocationID,
			"category":   string(b.Category),
			"subject":    b.Subject,
			"instructor": b.Instructor,
			"status":     string(b.ApprovalStatus),
		}
		if b.AssignedOperatorID != nil {
			name, ok := names[*b.AssignedOperatorID]
			if !ok {
				name = "#" + strconv.FormatInt(*b.AssignedOperatorID, 10)
			}
			row["operator"] = name
		}
		if b.OperatorConfirmedAt != nil {
			row["confirmed"] = b.OperatorConfirmedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: rosterHeaders, Rows: rows}, nil
}

func trimSeconds(clock string) string {
	if len(clock) == len(calendar.TimeLayout) {
		return clock[:5]
	}
	return clock
}
