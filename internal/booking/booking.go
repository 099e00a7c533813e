// Package booking creates, edits and cancels appointments.
//
// Slot uniqueness is enforced by the record store's conditional writes: every
// insert carries a guard on the provider's calendar slot and one on the
// patient's, so two writers racing for the same hour cannot both succeed.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"clinic-booking-server/internal/calendar"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/store"
)

var (
	ErrSlotOccupied        = errors.New("slot is already booked")
	ErrAlreadyReserved     = fmt.Errorf("%w: patient already has an appointment at this time", ErrSlotOccupied)
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidSlot         = errors.New("not a business-hour slot")
	ErrInvalidDate         = errors.New("invalid date")
	ErrDayNotBookable      = errors.New("day is not bookable")
	ErrMissingDescription  = errors.New("description is required")
	ErrInvalidParties      = errors.New("an appointment needs exactly one provider and one patient")
	ErrAccountDisabled     = errors.New("account is disabled")
)

// Coordinator applies booking operations against a record store.
type Coordinator struct {
	store  store.RecordStore
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now when deciding whether a day is bookable.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a Coordinator over s.
func NewCoordinator(s store.RecordStore, logger zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  s,
		logger: logger.With().Str("component", "booking").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create books slot on date for two parties given in either order. The
// provider party's calendar (a hygienist's partner dentist) is stored as
// employee_id and the other party as patient_id.
func (c *Coordinator) Create(ctx context.Context, a, b models.User, date string, slot calendar.Slot, description string) (models.Appointment, error) {
	slot, err := calendar.LookupSlot(slot.Start, slot.End)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%w: %v", ErrInvalidSlot, err)
	}
	if err := c.checkBookable(date); err != nil {
		return models.Appointment{}, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return models.Appointment{}, ErrMissingDescription
	}

	a, err = c.party(ctx, a.ID)
	if err != nil {
		return models.Appointment{}, err
	}
	b, err = c.party(ctx, b.ID)
	if err != nil {
		return models.Appointment{}, err
	}
	provider, patient, err := normalize(a, b)
	if err != nil {
		return models.Appointment{}, err
	}
	calendarID, err := provider.CalendarID()
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%w: %v", ErrInvalidParties, err)
	}

	appt := models.Appointment{
		PatientID:   patient.ID,
		EmployeeID:  calendarID,
		Description: description,
		BlockStart:  slot.Start,
		BlockEnd:    slot.End,
		Date:        date,
	}
	err = c.store.InsertUnless(ctx, models.Appointments, appt.Values(), guards(appt)...)
	if err != nil {
		return models.Appointment{}, c.writeError(err)
	}

	c.logger.Info().
		Str("patient_id", appt.PatientID).
		Str("employee_id", appt.EmployeeID).
		Str("date", appt.Date).
		Str("slot", slot.String()).
		Msg("appointment created")
	return appt, nil
}

// EditRequest identifies an appointment of the acting user by date and slot
// and lists the fields to change. Nil fields keep their stored value.
type EditRequest struct {
	Date           string
	Slot           calendar.Slot
	NewSlot        *calendar.Slot
	NewDescription *string
	// NewProvider is the "first last" name of the dentist or hygienist
	// to move the appointment to. The patient never changes.
	NewProvider *string
	NewMonth    *int
	NewDay      *int
}

// Edit rewrites one of acting's appointments. The stored row is replaced as a
// whole, keyed by all of its prior values; the year of the date never changes.
func (c *Coordinator) Edit(ctx context.Context, acting models.User, req EditRequest) (models.Appointment, error) {
	field, id, err := roleKey(acting)
	if err != nil {
		return models.Appointment{}, err
	}
	row, err := c.store.GetOne(ctx, models.Appointments, store.Where(field, id).
		And(models.ColDate, req.Date).
		And(models.ColBlockStart, req.Slot.Start).
		And(models.ColBlockEnd, req.Slot.End))
	if errors.Is(err, store.ErrNotFound) {
		return models.Appointment{}, ErrAppointmentNotFound
	}
	if err != nil {
		return models.Appointment{}, fmt.Errorf("find appointment: %w", err)
	}
	original := models.AppointmentFromRow(row)
	updated := original

	if req.NewSlot != nil {
		slot, err := calendar.LookupSlot(req.NewSlot.Start, req.NewSlot.End)
		if err != nil {
			return models.Appointment{}, fmt.Errorf("%w: %v", ErrInvalidSlot, err)
		}
		updated.BlockStart, updated.BlockEnd = slot.Start, slot.End
	}
	if req.NewDescription != nil {
		d := strings.TrimSpace(*req.NewDescription)
		if d == "" {
			return models.Appointment{}, ErrMissingDescription
		}
		updated.Description = d
	}
	if req.NewProvider != nil {
		if err := c.reassign(ctx, &updated, *req.NewProvider); err != nil {
			return models.Appointment{}, err
		}
	}
	if req.NewMonth != nil || req.NewDay != nil {
		date, err := moveDate(original.Date, req.NewMonth, req.NewDay)
		if err != nil {
			return models.Appointment{}, err
		}
		if date != original.Date {
			if err := c.checkBookable(date); err != nil {
				return models.Appointment{}, err
			}
		}
		updated.Date = date
	}

	if updated == original {
		return original, nil
	}
	n, err := c.store.Replace(ctx, models.Appointments, original.Row().Predicate(), updated.Values(), guards(updated)...)
	if err != nil {
		return models.Appointment{}, c.writeError(err)
	}
	if n == 0 {
		c.logger.Warn().
			Str(field, id).
			Str("date", original.Date).
			Str("slot", original.BlockStart+"-"+original.BlockEnd).
			Msg("appointment changed before edit was applied; nothing replaced")
		return original, nil
	}

	c.logger.Info().
		Str("acting_user_id", acting.ID).
		Str("date", updated.Date).
		Str("slot", updated.BlockStart+"-"+updated.BlockEnd).
		Msg("appointment edited")
	return updated, nil
}

// Cancel removes acting's appointment at date and slot, on either side of
// the pairing. Cancelling an appointment that does not exist is not an error.
func (c *Coordinator) Cancel(ctx context.Context, acting models.User, date string, slot calendar.Slot) (int64, error) {
	slot, err := calendar.LookupSlot(slot.Start, slot.End)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSlot, err)
	}
	at := func(field, id string) store.Predicate {
		return store.Where(field, id).
			And(models.ColDate, date).
			And(models.ColBlockStart, slot.Start).
			And(models.ColBlockEnd, slot.End)
	}

	removed, err := c.store.Delete(ctx, models.Appointments, at(models.ColPatientID, acting.ID))
	if err != nil {
		return 0, fmt.Errorf("cancel appointment: %w", err)
	}
	if calendarID, err := acting.CalendarID(); err == nil {
		n, err := c.store.Delete(ctx, models.Appointments, at(models.ColEmployeeID, calendarID))
		if err != nil {
			return removed, fmt.Errorf("cancel appointment: %w", err)
		}
		removed += n
	}

	if removed > 0 {
		c.logger.Info().
			Str("acting_user_id", acting.ID).
			Str("date", date).
			Str("slot", slot.String()).
			Msg("appointment cancelled")
	}
	return removed, nil
}

// ListFor returns the appointments on u's side of the calendar, ordered by
// date and start time.
func (c *Coordinator) ListFor(ctx context.Context, u models.User) ([]models.Appointment, error) {
	field, id, err := roleKey(u)
	if err != nil {
		return nil, err
	}
	rows, err := c.store.QueryAll(ctx, models.Appointments, store.Where(field, id))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	appts := make([]models.Appointment, len(rows))
	for i, r := range rows {
		appts[i] = models.AppointmentFromRow(r)
	}
	sort.SliceStable(appts, func(i, j int) bool {
		ti, tj := sortKey(appts[i]), sortKey(appts[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return appts[i].BlockStart < appts[j].BlockStart
	})
	return appts, nil
}

func sortKey(a models.Appointment) time.Time {
	year, month, day, err := calendar.ParseDate(a.Date)
	if err != nil {
		return time.Time{}
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// guards are the provider-slot and patient-slot conditions a write of a
// must not collide with.
func guards(a models.Appointment) []store.Predicate {
	slot := func(field, id string) store.Predicate {
		return store.Where(field, id).
			And(models.ColDate, a.Date).
			And(models.ColBlockStart, a.BlockStart).
			And(models.ColBlockEnd, a.BlockEnd)
	}
	return []store.Predicate{
		slot(models.ColEmployeeID, a.EmployeeID),
		slot(models.ColPatientID, a.PatientID),
	}
}

func (c *Coordinator) writeError(err error) error {
	var conflict *store.ConflictError
	if errors.As(err, &conflict) {
		if conflict.Guard == 1 {
			return ErrAlreadyReserved
		}
		return ErrSlotOccupied
	}
	return fmt.Errorf("write appointment: %w", err)
}

// roleKey is the appointments column and id u's bookings are stored under.
func roleKey(u models.User) (string, string, error) {
	if !u.Title.IsProvider() {
		return models.ColPatientID, u.ID, nil
	}
	id, err := u.CalendarID()
	if err != nil {
		return "", "", err
	}
	return models.ColEmployeeID, id, nil
}

func normalize(a, b models.User) (provider, patient models.User, err error) {
	switch {
	case a.Title.IsProvider() && !b.Title.IsProvider():
		provider, patient = a, b
	case b.Title.IsProvider() && !a.Title.IsProvider():
		provider, patient = b, a
	default:
		return models.User{}, models.User{}, ErrInvalidParties
	}
	if !provider.Enabled() || !patient.Enabled() {
		return models.User{}, models.User{}, ErrAccountDisabled
	}
	return provider, patient, nil
}

// party re-reads a user so status and partner are current.
func (c *Coordinator) party(ctx context.Context, id string) (models.User, error) {
	row, err := c.store.GetOne(ctx, models.Users, store.Where(models.ColUserID, id))
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, fmt.Errorf("%w: unknown user %s", ErrInvalidParties, id)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return models.UserFromRow(row), nil
}

func (c *Coordinator) reassign(ctx context.Context, a *models.Appointment, name string) error {
	parts := strings.Fields(strings.ToLower(name))
	if len(parts) != 2 {
		return fmt.Errorf("%w: %q is not \"first last\"", ErrInvalidParties, name)
	}
	row, err := c.store.GetOne(ctx, models.Users, store.Where(models.ColFirstName, parts[0]).And(models.ColLastName, parts[1]))
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: no user named %s", ErrInvalidParties, name)
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	u := models.UserFromRow(row)
	if !u.Title.IsProvider() {
		return fmt.Errorf("%w: %s is not a dentist or hygienist", ErrInvalidParties, name)
	}
	if !u.Enabled() {
		return ErrAccountDisabled
	}
	id, err := u.CalendarID()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParties, err)
	}
	a.EmployeeID = id
	return nil
}

// moveDate keeps the year of date and swaps in the given month and day.
func moveDate(date string, month, day *int) (string, error) {
	year, m, d, err := calendar.ParseDate(date)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	if month != nil {
		m = time.Month(*month)
	}
	if day != nil {
		d = *day
	}
	moved := calendar.FormatDate(year, m, d)
	if _, _, _, err := calendar.ParseDate(moved); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return moved, nil
}

func (c *Coordinator) checkBookable(date string) error {
	state, err := calendar.DateState(date, c.now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	if state != calendar.Bookable {
		return fmt.Errorf("%w: %s is %s", ErrDayNotBookable, date, state)
	}
	return nil
}
