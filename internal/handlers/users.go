package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinic-booking-server/internal/accounts"
	"clinic-booking-server/internal/booking"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/utils"
)

// UserHandler serves the roster and account administration.
type UserHandler struct {
	Accounts *accounts.Service
	Booking  *booking.Coordinator
	Logger   zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accts *accounts.Service, coordinator *booking.Coordinator, logger zerolog.Logger) *UserHandler {
	return &UserHandler{Accounts: accts, Booking: coordinator, Logger: logger}
}

// CreateUserRequest is an administrator-created staff account.
type CreateUserRequest struct {
	Username        string `json:"username" binding:"required,max=64"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	FirstName       string `json:"firstName" binding:"required"`
	LastName        string `json:"lastName" binding:"required"`
	Email           string `json:"email" binding:"omitempty,email"`
	Phone           string `json:"phone" binding:"omitempty,us_phone"`
	Title           string `json:"title" binding:"required,oneof=DENTIST HYGIENIST ADMIN"`
	Partner         string `json:"partner"`
}

// CreateUser handles POST /users.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	acting, _ := middleware.ActingUser(c)

	user, err := h.Accounts.CreateAccount(c.Request.Context(), acting, accounts.NewAccount{
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		Title:           models.Title(req.Title),
		Partner:         req.Partner,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Created(c, "User created successfully", user)
}

// SearchUsersQuery selects a roster search.
type SearchUsersQuery struct {
	By string `form:"by" binding:"omitempty,oneof=all username user_id name title partner"`
	Q  string `form:"q"`
}

// GetUsers handles GET /users?by=&q=.
func (h *UserHandler) GetUsers(c *gin.Context) {
	var q SearchUsersQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	by := accounts.SearchBy(q.By)
	if by == "" {
		by = accounts.SearchAll
	}
	users, err := h.Accounts.Search(c.Request.Context(), by, q.Q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Users retrieved successfully", users)
}

// GetUserByID handles GET /users/:id.
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.Accounts.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "User retrieved successfully", user)
}

// GetUserAppointments handles GET /users/:id/appointments.
func (h *UserHandler) GetUserAppointments(c *gin.Context) {
	user, err := h.Accounts.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	appts, err := h.Booking.ListFor(c.Request.Context(), user)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Appointments retrieved successfully", appts)
}

// UpdateStatusRequest sets or toggles an account's status.
type UpdateStatusRequest struct {
	// Status is ENABLED or DISABLED; empty toggles.
	Status string `json:"status" binding:"omitempty,oneof=ENABLED DISABLED"`
}

// UpdateStatus handles PATCH /users/:id/status. Disabling removes the
// account's appointments.
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	acting, _ := middleware.ActingUser(c)

	var (
		user models.User
		err  error
	)
	if req.Status == "" {
		user, err = h.Accounts.ToggleStatus(c.Request.Context(), acting, c.Param("id"))
	} else {
		user, err = h.Accounts.SetStatus(c.Request.Context(), acting, c.Param("id"), models.Status(req.Status))
	}
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Status updated successfully", user)
}

// GetProviders lists enabled dentists and hygienists.
func (h *UserHandler) GetProviders(c *gin.Context) {
	h.listEnabled(c, "Providers retrieved successfully", models.TitleDentist, models.TitleHygienist)
}

// GetPatients lists enabled patients for staff booking on their behalf.
func (h *UserHandler) GetPatients(c *gin.Context) {
	h.listEnabled(c, "Patients retrieved successfully", models.TitlePatient)
}

func (h *UserHandler) listEnabled(c *gin.Context, message string, titles ...models.Title) {
	users := make([]models.User, 0)
	for _, t := range titles {
		found, err := h.Accounts.ListEnabled(c.Request.Context(), t)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		users = append(users, found...)
	}
	utils.Success(c, message, users)
}
