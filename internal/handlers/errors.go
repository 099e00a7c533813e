package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinic-booking-server/internal/accounts"
	"clinic-booking-server/internal/booking"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/store"
	"clinic-booking-server/internal/utils"
)

var badRequests = []error{
	booking.ErrInvalidSlot,
	booking.ErrInvalidDate,
	booking.ErrDayNotBookable,
	booking.ErrMissingDescription,
	booking.ErrInvalidParties,
	models.ErrNoPartner,
	accounts.ErrMissingField,
	accounts.ErrFieldTooLong,
	accounts.ErrPasswordMismatch,
	accounts.ErrNoContact,
	accounts.ErrInvalidEmail,
	accounts.ErrInvalidPhone,
	accounts.ErrInvalidTitle,
	accounts.ErrInvalidStatus,
	accounts.ErrPartnerNotFound,
	accounts.ErrInvalidPartner,
}

// statusOf maps a domain error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, booking.ErrSlotOccupied),
		errors.Is(err, accounts.ErrUsernameTaken),
		errors.Is(err, accounts.ErrPartnerTaken):
		return http.StatusConflict
	case errors.Is(err, booking.ErrAppointmentNotFound),
		errors.Is(err, accounts.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrAccountDisabled),
		errors.Is(err, accounts.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	for _, target := range badRequests {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err in the standard envelope. Unexpected errors are
// logged and their text is not sent to the client.
func respondError(c *gin.Context, logger zerolog.Logger, err error) {
	status := statusOf(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("request failed")
		utils.InternalServerError(c, "internal server error")
	case http.StatusServiceUnavailable:
		logger.Warn().Err(err).Str("request_id", c.GetString("request_id")).Msg("store unavailable")
		utils.ServiceUnavailable(c, "the appointment store is unavailable, try again")
	default:
		utils.Error(c, status, err.Error())
	}
}
