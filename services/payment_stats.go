package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/24HeuresINSA/OverRun-backend/models"
)

const (
	seriesDayLayout = "2006-01-02"
	reportDayLayout = "02/01/2006"
)

// ReportLocation is the time zone payments are bucketed by.
var ReportLocation = mustLoadLocation("Europe/Paris")

// PaymentsCSVHeader is the first line of the payments export.
var PaymentsCSVHeader = []string{"Date", "Montant (en centimes)", "Don (en centimes)", "Nom de la course", "VA", "Statut"}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func (s *paymentServiceImpl) Totals(ctx context.Context, editionID uuid.UUID) ([]models.PaymentTotals, *ServiceError) {
	if svcErr := s.checkEdition(ctx, editionID); svcErr != nil {
		return nil, svcErr
	}
	key := "totals:" + editionID.String()
	var totals []models.PaymentTotals
	if s.cache.Get(ctx, key, &totals) {
		return totals, nil
	}

	totals, err := s.repo.TotalsByStatus(ctx, editionID)
	if err != nil {
		s.logger.Error("Failed to sum payments", zap.Error(err))
		return nil, internal()
	}
	if totals == nil {
		totals = []models.PaymentTotals{}
	}
	s.cache.Set(ctx, key, totals)
	return totals, nil
}

func (s *paymentServiceImpl) AmountByDate(ctx context.Context, editionID uuid.UUID) (*models.AmountSeries, *ServiceError) {
	if svcErr := s.checkEdition(ctx, editionID); svcErr != nil {
		return nil, svcErr
	}
	key := "amounts:" + editionID.String()
	var series models.AmountSeries
	if s.cache.Get(ctx, key, &series) {
		return &series, nil
	}

	payments, err := s.repo.ValidatedByDate(ctx, editionID)
	if err != nil {
		s.logger.Error("Failed to load validated payments", zap.Error(err))
		return nil, internal()
	}
	series = BuildAmountSeries(payments, ReportLocation)
	s.cache.Set(ctx, key, series)
	return &series, nil
}

func (s *paymentServiceImpl) PaymentsByDate(ctx context.Context, editionID uuid.UUID) ([]models.PaymentsByDay, *ServiceError) {
	if svcErr := s.checkEdition(ctx, editionID); svcErr != nil {
		return nil, svcErr
	}
	rows, err := s.repo.ReportRows(ctx, editionID)
	if err != nil {
		s.logger.Error("Failed to load payment report", zap.Error(err))
		return nil, internal()
	}
	return GroupPaymentsByDay(rows, ReportLocation), nil
}

func (s *paymentServiceImpl) PaymentsCSV(ctx context.Context, editionID uuid.UUID) ([]byte, *ServiceError) {
	days, svcErr := s.PaymentsByDate(ctx, editionID)
	if svcErr != nil {
		return nil, svcErr
	}
	out, err := EncodePaymentsCSV(days)
	if err != nil {
		s.logger.Error("Failed to encode payments CSV", zap.Error(err))
		return nil, internal()
	}
	return out, nil
}

func (s *paymentServiceImpl) PaymentsXLSX(ctx context.Context, editionID uuid.UUID) ([]byte, *ServiceError) {
	days, svcErr := s.PaymentsByDate(ctx, editionID)
	if svcErr != nil {
		return nil, svcErr
	}
	out, err := EncodePaymentsXLSX(days)
	if err != nil {
		s.logger.Error("Failed to encode payments workbook", zap.Error(err))
		return nil, internal()
	}
	return out, nil
}

func (s *paymentServiceImpl) checkEdition(ctx context.Context, editionID uuid.UUID) *ServiceError {
	if s.editions == nil {
		return nil
	}
	if _, err := s.editions.FindEditionByID(ctx, editionID); err != nil {
		return dbError(err, "Edition not found.", "")
	}
	return nil
}

// BuildAmountSeries sums payments per local calendar day. Every day between
// the first and the last payment gets a label, with zero when nothing was paid.
func BuildAmountSeries(payments []models.Payment, loc *time.Location) models.AmountSeries {
	var series models.AmountSeries
	series.Labels = []string{}
	series.Data.SimpleRace = []int64{}
	series.Data.CumulativeRace = []int64{}
	series.Data.SimpleDonation = []int64{}
	series.Data.CumulativeDonation = []int64{}

	var (
		last    time.Time
		started bool
	)
	for _, p := range payments {
		if p.PaymentDate == nil {
			continue
		}
		t := p.PaymentDate.In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)

		if !started {
			series.AppendDay(day.Format(seriesDayLayout))
			started = true
		} else {
			for last.Before(day) {
				last = last.AddDate(0, 0, 1)
				series.AppendDay(last.Format(seriesDayLayout))
			}
		}
		last = day

		i := len(series.Labels) - 1
		series.Data.SimpleRace[i] += int64(p.RaceAmount)
		series.Data.SimpleDonation[i] += int64(p.DonationAmount)
	}

	var race, donation int64
	for i := range series.Labels {
		race += series.Data.SimpleRace[i]
		donation += series.Data.SimpleDonation[i]
		series.Data.CumulativeRace = append(series.Data.CumulativeRace, race)
		series.Data.CumulativeDonation = append(series.Data.CumulativeDonation, donation)
	}
	return series
}

// GroupPaymentsByDay buckets report rows by their dd/mm/yyyy day in loc,
// keeping the chronological order of rows.
func GroupPaymentsByDay(rows []models.PaymentReportRow, loc *time.Location) []models.PaymentsByDay {
	days := []models.PaymentsByDay{}
	index := map[string]int{}
	for _, row := range rows {
		day := row.Date.In(loc).Format(reportDayLayout)
		i, ok := index[day]
		if !ok {
			i = len(days)
			index[day] = i
			days = append(days, models.PaymentsByDay{Day: day})
		}
		days[i].Payments = append(days[i].Payments, row)
	}
	return days
}

// EncodePaymentsCSV renders grouped payments as a semicolon-separated export.
func EncodePaymentsCSV(days []models.PaymentsByDay) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	if err := w.Write(PaymentsCSVHeader); err != nil {
		return nil, err
	}
	for _, day := range days {
		for _, p := range day.Payments {
			record := []string{
				day.Day,
				strconv.Itoa(p.RaceAmount),
				strconv.Itoa(p.DonationAmount),
				p.RaceName,
				strconv.FormatBool(p.HasMembership),
				p.Status,
			}
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// paymentsSheet is the only sheet of the workbook export.
const paymentsSheet = "Paiements"

// EncodePaymentsXLSX writes the same rows as EncodePaymentsCSV into a
// single-sheet workbook. Amounts stay numeric cells.
func EncodePaymentsXLSX(days []models.PaymentsByDay) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", paymentsSheet); err != nil {
		return nil, err
	}
	for i, header := range PaymentsCSVHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(paymentsSheet, cell, header); err != nil {
			return nil, err
		}
	}

	row := 2
	for _, day := range days {
		for _, p := range day.Payments {
			values := []interface{}{day.Day, p.RaceAmount, p.DonationAmount, p.RaceName, p.HasMembership, p.Status}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(paymentsSheet, cell, &values); err != nil {
				return nil, err
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
