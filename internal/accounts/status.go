package accounts

import (
	"context"
	"fmt"

	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/store"
)

// SetStatus changes a user's status on behalf of an administrator.
//
// Disabling an enabled account first deletes the appointments it is tied to:
// a dentist's calendar, the partner dentist's whole calendar for a hygienist,
// or the patient-side bookings of a patient or administrator. Re-enabling
// restores nothing. Setting the current status again is a no-op.
//
// The delete runs twice per disable: once before the status is persisted and
// once after, so a booking created between the first sweep and the status
// write does not outlive the account. The second sweep usually removes
// nothing.
func (s *Service) SetStatus(ctx context.Context, acting models.User, userID string, status models.Status) (models.User, error) {
	if acting.Title != models.TitleAdmin {
		return models.User{}, ErrForbidden
	}
	if status != models.StatusEnabled && status != models.StatusDisabled {
		return models.User{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	u, err := s.fetch(ctx, store.Where(models.ColUserID, userID))
	if err != nil {
		return models.User{}, err
	}
	if u.Status == status {
		return u, nil
	}

	var removed int64
	if status == models.StatusDisabled {
		if removed, err = s.cascade(ctx, u); err != nil {
			return models.User{}, err
		}
	}

	if _, err := s.store.Update(ctx, models.Users, store.Where(models.ColUserID, u.ID), store.Set(models.ColStatus, string(status))); err != nil {
		return models.User{}, fmt.Errorf("update status: %w", err)
	}
	s.cache.invalidate(u.ID)

	if status == models.StatusDisabled {
		// bookings that raced the first sweep are removed now that the
		// account reads as disabled
		n, err := s.cascade(ctx, u)
		if err != nil {
			return models.User{}, err
		}
		removed += n
	}

	u.Status = status
	s.logger.Info().
		Str("user_id", u.ID).
		Str("acting_user_id", acting.ID).
		Str("status", string(status)).
		Int64("appointments_removed", removed).
		Msg("account status changed")
	return u, nil
}

// ToggleStatus flips ENABLED and DISABLED.
func (s *Service) ToggleStatus(ctx context.Context, acting models.User, userID string) (models.User, error) {
	u, err := s.fetch(ctx, store.Where(models.ColUserID, userID))
	if err != nil {
		return models.User{}, err
	}
	next := models.StatusDisabled
	if u.Status == models.StatusDisabled {
		next = models.StatusEnabled
	}
	return s.SetStatus(ctx, acting, userID, next)
}

func (s *Service) cascade(ctx context.Context, u models.User) (int64, error) {
	var p store.Predicate
	switch u.Title {
	case models.TitleDentist:
		p = store.Where(models.ColEmployeeID, u.ID)
	case models.TitleHygienist:
		if !u.HasPartner() {
			return 0, nil
		}
		p = store.Where(models.ColEmployeeID, u.PartnerID)
	default:
		p = store.Where(models.ColPatientID, u.ID)
	}
	n, err := s.store.Delete(ctx, models.Appointments, p)
	if err != nil {
		return 0, fmt.Errorf("remove appointments of %s: %w", u.ID, err)
	}
	return n, nil
}
