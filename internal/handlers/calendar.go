package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinic-booking-server/internal/accounts"
	"clinic-booking-server/internal/availability"
	"clinic-booking-server/internal/calendar"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/utils"
)

// CalendarHandler renders month grids and the booking catalog.
type CalendarHandler struct {
	Accounts     *accounts.Service
	Availability *availability.Engine
	Logger       zerolog.Logger
	Now          func() time.Time
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(accts *accounts.Service, engine *availability.Engine, logger zerolog.Logger, now func() time.Time) *CalendarHandler {
	if now == nil {
		now = time.Now
	}
	return &CalendarHandler{Accounts: accts, Availability: engine, Logger: logger, Now: now}
}

// MonthQuery selects a month; zero values mean the current one. With a
// provider the cells carry that calendar's occupancy.
type MonthQuery struct {
	Year       int    `form:"year" binding:"omitempty,min=1900,max=9999"`
	Month      int    `form:"month" binding:"omitempty,min=1,max=12"`
	ProviderID string `form:"providerId"`
}

// MonthResponse is a rendered month grid.
type MonthResponse struct {
	Year         int          `json:"year"`
	Month        time.Month   `json:"month"`
	FirstWeekday time.Weekday `json:"firstWeekday"`
	Days         int          `json:"days"`
	Cells        interface{}  `json:"cells"`
}

// GetMonth handles GET /calendar.
func (h *CalendarHandler) GetMonth(c *gin.Context) {
	var q MonthQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	now := h.Now()
	view := calendar.CurrentMonth(now)
	if q.Year != 0 {
		view.Year = q.Year
	}
	if q.Month != 0 {
		view.Month = time.Month(q.Month)
	}
	resp := MonthResponse{Year: view.Year, Month: view.Month, FirstWeekday: view.FirstWeekday(), Days: view.Days()}

	providerID := q.ProviderID
	if acting, ok := middleware.ActingUser(c); ok && providerID == "" && acting.Title.IsProvider() {
		providerID = acting.ID
	}
	if providerID == "" {
		resp.Cells = view.Grid(now)
		utils.Success(c, "Calendar retrieved successfully", resp)
		return
	}

	provider, err := h.Accounts.Lookup(c.Request.Context(), providerID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if !provider.Title.IsProvider() {
		utils.BadRequest(c, "providerId must name a dentist or hygienist")
		return
	}
	cells, err := h.Availability.MonthOverview(c.Request.Context(), view, provider, now)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	resp.Cells = cells
	utils.Success(c, "Calendar retrieved successfully", resp)
}

// CatalogResponse lists what can be booked.
type CatalogResponse struct {
	Descriptions []string        `json:"descriptions"`
	Slots        []calendar.Slot `json:"slots"`
}

// GetCatalog handles GET /catalog/descriptions.
func (h *CalendarHandler) GetCatalog(c *gin.Context) {
	utils.Success(c, "Catalog retrieved successfully", CatalogResponse{
		Descriptions: calendar.Descriptions,
		Slots:        calendar.BusinessHours,
	})
}
