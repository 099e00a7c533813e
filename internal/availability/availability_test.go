package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"clinic-booking-server/internal/calendar"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/store"
)

var (
	dentist   = models.User{ID: "11111", Title: models.TitleDentist, Status: models.StatusEnabled}
	hygienist = models.User{ID: "33333", Title: models.TitleHygienist, PartnerID: "11111", Status: models.StatusEnabled}
	patientP  = models.User{ID: "22222", Title: models.TitlePatient, Status: models.StatusEnabled}
	patientQ  = models.User{ID: "44444", Title: models.TitlePatient, Status: models.StatusEnabled}
)

func seed(t *testing.T, appts ...models.Appointment) *Engine {
	t.Helper()
	mem := store.NewMemory(models.Users, models.Appointments)
	for _, a := range appts {
		if err := mem.Insert(context.Background(), models.Appointments, a.Values()); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return NewEngine(mem, zerolog.Nop())
}

func appt(patient, employee, start, end, date string) models.Appointment {
	return models.Appointment{
		PatientID:   patient,
		EmployeeID:  employee,
		Description: "Cleaning and Checkup",
		BlockStart:  start,
		BlockEnd:    end,
		Date:        date,
	}
}

func TestDaySchedule(t *testing.T) {
	e := seed(t,
		appt("22222", "11111", "0800", "0900", "08/15/2024"),
		// P is also booked with another dentist at 0900
		appt("22222", "55555", "0900", "1000", "08/15/2024"),
	)
	ctx := context.Background()

	tests := []struct {
		name     string
		provider models.User
		patient  models.User
		want     map[int]string
	}{
		{"pairing sees its own description", dentist, patientP, map[int]string{0: "Cleaning and Checkup", 1: Available}},
		{"other patient sees busy", dentist, patientQ, map[int]string{0: Busy, 1: Available}},
		{"hygienist aliases partner calendar", hygienist, patientP, map[int]string{0: "Cleaning and Checkup"}},
		{"hygienist for other patient", hygienist, patientQ, map[int]string{0: Busy}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := e.DaySchedule(ctx, "08/15/2024", tt.provider, tt.patient)
			if err != nil {
				t.Fatalf("day schedule: %v", err)
			}
			if len(views) != calendar.SlotsPerDay {
				t.Fatalf("got %d slots, want %d", len(views), calendar.SlotsPerDay)
			}
			for i, v := range views {
				want, ok := tt.want[i]
				if !ok {
					want = Available
				}
				if v.Descriptor != want {
					t.Errorf("slot %s = %q, want %q", v.Slot, v.Descriptor, want)
				}
				if v.Slot != calendar.BusinessHours[i] {
					t.Errorf("slot %d out of order: %s", i, v.Slot)
				}
			}
		})
	}
}

func TestDaySchedule_OtherDateIsOpen(t *testing.T) {
	e := seed(t, appt("22222", "11111", "0800", "0900", "08/15/2024"))
	views, err := e.DaySchedule(context.Background(), "08/16/2024", dentist, patientQ)
	if err != nil {
		t.Fatalf("day schedule: %v", err)
	}
	for _, v := range views {
		if v.Descriptor != Available || v.Booked() {
			t.Fatalf("slot %s = %q on an empty day", v.Slot, v.Descriptor)
		}
	}
}

func TestDaySchedule_UnpartneredHygienist(t *testing.T) {
	e := seed(t)
	solo := models.User{ID: "66666", Title: models.TitleHygienist}
	if _, err := e.DaySchedule(context.Background(), "08/15/2024", solo, patientP); !errors.Is(err, models.ErrNoPartner) {
		t.Fatalf("expected ErrNoPartner, got %v", err)
	}
}

func TestDayLoadAndMonthOverview(t *testing.T) {
	var appts []models.Appointment
	for i, slot := range calendar.BusinessHours {
		appts = append(appts, appt(string(rune('a'+i)), "11111", slot.Start, slot.End, "08/15/2024"))
	}
	// legacy rows may be written without zero padding
	appts = append(appts, appt("22222", "11111", "0800", "0900", "8/16/2024"))
	appts = append(appts, appt("22222", "11111", "0800", "0900", "09/3/2024"))
	e := seed(t, appts...)
	ctx := context.Background()

	load, err := e.DayLoad(ctx, "08/15/2024", hygienist)
	if err != nil {
		t.Fatalf("day load: %v", err)
	}
	if load.Booked != 8 || load.Occupancy != Full {
		t.Fatalf("load = %+v", load)
	}
	if load, _ := e.DayLoad(ctx, "08/20/2024", dentist); load.Occupancy != Open {
		t.Fatalf("empty day occupancy = %s", load.Occupancy)
	}

	view := calendar.MonthView{Year: 2024, Month: time.August}
	today := time.Date(2024, time.August, 1, 9, 0, 0, 0, time.UTC)
	cells, err := e.MonthOverview(ctx, view, dentist, today)
	if err != nil {
		t.Fatalf("month overview: %v", err)
	}
	if len(cells) != calendar.GridCells {
		t.Fatalf("got %d cells", len(cells))
	}
	// August 2024 starts on a Thursday, so day d sits in cell d+3
	if c := cells[18]; c.Day != 15 || c.Occupancy != Full || c.Booked != 8 {
		t.Errorf("cell for Aug 15 = %+v", c)
	}
	if c := cells[19]; c.Day != 16 || c.Occupancy != Partial {
		t.Errorf("cell for Aug 16 = %+v", c)
	}
	if c := cells[20]; c.Day != 17 || c.Occupancy != Open {
		t.Errorf("cell for Aug 17 = %+v", c)
	}
	if c := cells[0]; c.State != calendar.OutOfMonth || c.Occupancy != "" {
		t.Errorf("leading cell = %+v", c)
	}
}
