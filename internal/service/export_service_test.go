package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shootdesk-api/internal/dto"
	"github.com/noah-isme/shootdesk-api/internal/models"
	"github.com/noah-isme/shootdesk-api/pkg/export"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

type bookingListerStub struct {
	pages   [][]models.Booking
	queries []dto.BookingQuery
}

func (s *bookingListerStub) List(_ context.Context, _ models.ActorContext, query dto.BookingQuery) ([]models.Booking, *models.Pagination, error) {
	s.queries = append(s.queries, query)
	total := 0
	for _, p := range s.pages {
		total += len(p)
	}
	if query.Page > len(s.pages) {
		return nil, &models.Pagination{Page: query.Page, TotalCount: total}, nil
	}
	return s.pages[query.Page-1], &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total}, nil
}

type operatorListStub []models.Operator

func (s operatorListStub) ListActive(context.Context) ([]models.Operator, error) {
	return s, nil
}

func TestExportServiceRosterCSV(t *testing.T) {
	late := assigned(2, 7, "14:00:00", "16:00:00")
	late.Subject = "Chemistry"
	early := assigned(1, 9, "09:00:00", "10:30:00")
	early.Subject = "Physics"
	lister := &bookingListerStub{pages: [][]models.Booking{{late}, {early}}}
	svc := NewExportService(lister, operatorListStub{rosterOperator(7, "Han", models.OperatorRegular)}, nil, ExportConfig{}, nil, export.NewCSVExporter(false), nil)

	file, err := svc.Roster(context.Background(), admin, dto.ExportQuery{Week: "2025-12-10"})
	require.NoError(t, err)
	assert.Equal(t, "roster-2025-12-08.csv", file.Filename)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,start,end,location,category,subject,instructor,status,operator,confirmed", lines[0])
	assert.Equal(t, "2025-12-10,09:00,10:30,,,Physics,,approved,#9,", lines[1])
	assert.Equal(t, "2025-12-10,14:00,16:00,,,Chemistry,,approved,Han,", lines[2])

	require.Len(t, lister.queries, 2)
	assert.Equal(t, "2025-12-08", lister.queries[0].Week)
	assert.True(t, lister.queries[0].ActiveOnly)
}

func TestExportServiceRosterPDF(t *testing.T) {
	svc := NewExportService(&bookingListerStub{pages: [][]models.Booking{{assigned(1, 7, "09:00:00", "10:00:00")}}}, nil, nil, ExportConfig{}, nil, nil, nil)

	file, err := svc.Roster(context.Background(), admin, dto.ExportQuery{Week: "2025-12-08", Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))

	_, err = svc.Roster(context.Background(), admin, dto.ExportQuery{Week: "2025-12-08", Format: "xlsx"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}
