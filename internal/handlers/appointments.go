package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinic-booking-server/internal/accounts"
	"clinic-booking-server/internal/availability"
	"clinic-booking-server/internal/booking"
	"clinic-booking-server/internal/calendar"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/utils"
)

// AppointmentHandler serves availability and booking.
type AppointmentHandler struct {
	Accounts     *accounts.Service
	Booking      *booking.Coordinator
	Availability *availability.Engine
	Logger       zerolog.Logger
	Now          func() time.Time
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(accts *accounts.Service, coordinator *booking.Coordinator, engine *availability.Engine, logger zerolog.Logger, now func() time.Time) *AppointmentHandler {
	if now == nil {
		now = time.Now
	}
	return &AppointmentHandler{Accounts: accts, Booking: coordinator, Availability: engine, Logger: logger, Now: now}
}

// AvailabilityQuery picks a day and the other side of the pairing.
type AvailabilityQuery struct {
	Date          string `form:"date" binding:"required,clinic_date"`
	CounterpartID string `form:"counterpartId" binding:"required"`
}

// AvailabilityResponse is the day's slot states.
type AvailabilityResponse struct {
	Date     string                  `json:"date"`
	State    calendar.DayState       `json:"state"`
	Slots    []availability.SlotView `json:"slots,omitempty"`
	Provider models.User             `json:"provider"`
	Patient  models.User             `json:"patient"`
}

// GetAvailability handles GET /availability. Slots are only computed for
// bookable days.
func (h *AppointmentHandler) GetAvailability(c *gin.Context) {
	var q AvailabilityQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	acting, _ := middleware.ActingUser(c)
	counterpart, err := h.Accounts.Lookup(c.Request.Context(), q.CounterpartID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	provider, patient := acting, counterpart
	if !acting.Title.IsProvider() {
		provider, patient = counterpart, acting
	}
	if !provider.Title.IsProvider() {
		respondError(c, h.Logger, booking.ErrInvalidParties)
		return
	}

	date := canonicalDate(q.Date)
	state, err := calendar.DateState(date, h.Now())
	if err != nil {
		respondError(c, h.Logger, booking.ErrInvalidDate)
		return
	}
	resp := AvailabilityResponse{Date: date, State: state, Provider: provider, Patient: patient}
	if state == calendar.Bookable {
		resp.Slots, err = h.Availability.DaySchedule(c.Request.Context(), date, provider, patient)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
	}
	utils.Success(c, "Availability retrieved successfully", resp)
}

// CreateAppointmentRequest books a slot with a counterpart.
type CreateAppointmentRequest struct {
	CounterpartID string `json:"counterpartId" binding:"required"`
	Date          string `json:"date" binding:"required,clinic_date"`
	Start         string `json:"start" binding:"required,slot_time"`
	End           string `json:"end" binding:"required,slot_time"`
	Description   string `json:"description" binding:"required,max=50"`
}

// CreateAppointment handles POST /appointments.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	acting, _ := middleware.ActingUser(c)
	counterpart := models.User{ID: req.CounterpartID}

	appt, err := h.Booking.Create(c.Request.Context(), acting, counterpart, canonicalDate(req.Date),
		calendar.Slot{Start: req.Start, End: req.End}, req.Description)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Created(c, "Appointment created successfully", appt)
}

// EditAppointmentRequest names one of the acting user's appointments and
// the fields to change.
type EditAppointmentRequest struct {
	Date           string  `json:"date" binding:"required,clinic_date"`
	Start          string  `json:"start" binding:"required,slot_time"`
	End            string  `json:"end" binding:"required,slot_time"`
	NewStart       *string `json:"newStart" binding:"omitempty,slot_time"`
	NewEnd         *string `json:"newEnd" binding:"omitempty,slot_time"`
	NewDescription *string `json:"newDescription" binding:"omitempty,max=50"`
	NewProvider    *string `json:"newProvider"`
	NewMonth       *int    `json:"newMonth" binding:"omitempty,min=1,max=12"`
	NewDay         *int    `json:"newDay" binding:"omitempty,min=1,max=31"`
}

// EditAppointment handles PUT /appointments.
func (h *AppointmentHandler) EditAppointment(c *gin.Context) {
	var req EditAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	acting, _ := middleware.ActingUser(c)

	edit := booking.EditRequest{
		Date:           req.Date,
		Slot:           calendar.Slot{Start: req.Start, End: req.End},
		NewDescription: req.NewDescription,
		NewProvider:    req.NewProvider,
		NewMonth:       req.NewMonth,
		NewDay:         req.NewDay,
	}
	if (req.NewStart == nil) != (req.NewEnd == nil) {
		utils.BadRequest(c, "newStart and newEnd must be given together")
		return
	}
	if req.NewStart != nil {
		edit.NewSlot = &calendar.Slot{Start: *req.NewStart, End: *req.NewEnd}
	}

	appt, err := h.Booking.Edit(c.Request.Context(), acting, edit)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", appt)
}

// CancelAppointmentQuery identifies the appointment to cancel.
type CancelAppointmentQuery struct {
	Date  string `form:"date" binding:"required,clinic_date"`
	Start string `form:"start" binding:"required,slot_time"`
	End   string `form:"end" binding:"required,slot_time"`
}

// CancelAppointment handles DELETE /appointments. Cancelling a missing
// appointment succeeds with removed=0.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	var q CancelAppointmentQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	acting, _ := middleware.ActingUser(c)

	removed, err := h.Booking.Cancel(c.Request.Context(), acting, q.Date, calendar.Slot{Start: q.Start, End: q.End})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Appointment cancelled", gin.H{"removed": removed})
}

// GetAppointments handles GET /appointments for the acting user.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	acting, _ := middleware.ActingUser(c)
	appts, err := h.Booking.ListFor(c.Request.Context(), acting)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Appointments retrieved successfully", appts)
}

// canonicalDate renders a parsed date the way new appointments are stored.
// Edit and cancel match stored rows verbatim and do not go through this.
func canonicalDate(v string) string {
	year, month, day, err := calendar.ParseDate(v)
	if err != nil {
		return v
	}
	return calendar.FormatDate(year, month, day)
}
