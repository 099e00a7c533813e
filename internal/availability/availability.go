// Package availability derives the occupancy of a provider's business-hour
// slots from stored appointments.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clinic-booking-server/internal/calendar"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/store"
)

// Slot descriptors other than a booked appointment's description.
const (
	Available = "AVAILABLE"
	Busy      = "BUSY"
)

// SlotView is the state of one business hour for a provider/patient pairing.
// Descriptor is Available, Busy or the description of the pairing's own
// appointment.
type SlotView struct {
	Slot       calendar.Slot `json:"slot"`
	Descriptor string        `json:"descriptor"`
}

// Booked reports whether the slot holds the pairing's own appointment.
func (v SlotView) Booked() bool {
	return v.Descriptor != Available && v.Descriptor != Busy
}

// Engine answers availability queries.
type Engine struct {
	store  store.RecordStore
	logger zerolog.Logger
}

// NewEngine creates an Engine over s.
func NewEngine(s store.RecordStore, logger zerolog.Logger) *Engine {
	return &Engine{store: s, logger: logger.With().Str("component", "availability").Logger()}
}

// DaySchedule returns one SlotView per business hour on date.
//
// A slot held by the provider for this patient carries the appointment's
// description. A slot held by the provider for anyone else is Busy. Every
// other slot is Available, including hours where the patient is booked with
// a different provider.
func (e *Engine) DaySchedule(ctx context.Context, date string, provider, patient models.User) ([]SlotView, error) {
	calendarID, err := provider.CalendarID()
	if err != nil {
		return nil, err
	}

	held, err := e.bySlot(ctx, store.Where(models.ColEmployeeID, calendarID).And(models.ColDate, date))
	if err != nil {
		return nil, err
	}
	own, err := e.bySlot(ctx, store.Where(models.ColPatientID, patient.ID).And(models.ColDate, date))
	if err != nil {
		return nil, err
	}

	views := make([]SlotView, len(calendar.BusinessHours))
	for i, slot := range calendar.BusinessHours {
		views[i] = SlotView{Slot: slot, Descriptor: Available}
		if _, providerBusy := held[slot]; !providerBusy {
			continue
		}
		if appt, patientBusy := own[slot]; patientBusy {
			views[i].Descriptor = appt.Description
		} else {
			views[i].Descriptor = Busy
		}
	}
	return views, nil
}

func (e *Engine) bySlot(ctx context.Context, p store.Predicate) (map[calendar.Slot]models.Appointment, error) {
	rows, err := e.store.QueryAll(ctx, models.Appointments, p)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	m := make(map[calendar.Slot]models.Appointment, len(rows))
	for _, r := range rows {
		a := models.AppointmentFromRow(r)
		m[calendar.Slot{Start: a.BlockStart, End: a.BlockEnd}] = a
	}
	return m, nil
}

// Occupancy summarises how much of a provider's day is booked.
type Occupancy string

const (
	Open    Occupancy = "OPEN"
	Partial Occupancy = "PARTIAL"
	Full    Occupancy = "FULL"
)

func occupancyOf(booked int) Occupancy {
	switch {
	case booked >= calendar.SlotsPerDay:
		return Full
	case booked > 0:
		return Partial
	}
	return Open
}

// Load is the number of a provider's slots booked on one date.
type Load struct {
	Date      string    `json:"date"`
	Booked    int       `json:"booked"`
	Occupancy Occupancy `json:"occupancy"`
}

// DayLoad counts the provider calendar's appointments on date.
func (e *Engine) DayLoad(ctx context.Context, date string, provider models.User) (Load, error) {
	calendarID, err := provider.CalendarID()
	if err != nil {
		return Load{}, err
	}
	held, err := e.bySlot(ctx, store.Where(models.ColEmployeeID, calendarID).And(models.ColDate, date))
	if err != nil {
		return Load{}, err
	}
	return Load{Date: date, Booked: len(held), Occupancy: occupancyOf(len(held))}, nil
}

// OverviewCell is a calendar grid cell annotated with the provider's load.
type OverviewCell struct {
	calendar.Cell
	Booked    int       `json:"booked"`
	Occupancy Occupancy `json:"occupancy,omitempty"`
}

// MonthOverview renders the month grid for a provider, with each in-month
// day carrying its occupancy. Stored dates are matched regardless of
// zero padding.
func (e *Engine) MonthOverview(ctx context.Context, view calendar.MonthView, provider models.User, today time.Time) ([]OverviewCell, error) {
	calendarID, err := provider.CalendarID()
	if err != nil {
		return nil, err
	}
	rows, err := e.store.QueryAll(ctx, models.Appointments, store.Where(models.ColEmployeeID, calendarID))
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}

	perDay := make(map[int]int)
	for _, r := range rows {
		a := models.AppointmentFromRow(r)
		year, month, day, err := calendar.ParseDate(a.Date)
		if err != nil {
			e.logger.Warn().Err(err).Str("employee_id", calendarID).Str("date", a.Date).Msg("skipping appointment with unreadable date")
			continue
		}
		if year == view.Year && month == view.Month {
			perDay[day]++
		}
	}

	grid := view.Grid(today)
	cells := make([]OverviewCell, len(grid))
	for i, c := range grid {
		cells[i] = OverviewCell{Cell: c}
		if c.State == calendar.OutOfMonth {
			continue
		}
		cells[i].Booked = perDay[c.Day]
		cells[i].Occupancy = occupancyOf(perDay[c.Day])
	}
	return cells, nil
}
