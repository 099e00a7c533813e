// Package accounts manages clinic users: sign-up, staff accounts, sign-in,
// roster lookups and account status changes.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/store"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username already exists")
	ErrMissingField     = errors.New("required field is empty")
	ErrFieldTooLong     = errors.New("field is too long")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrNoContact        = errors.New("an email address or phone number is required")
	ErrInvalidEmail     = errors.New("email must contain '@' and one of .com, .net, .org, .edu")
	ErrInvalidPhone     = errors.New("phone number must look like (555) 555-5555")
	ErrInvalidTitle     = errors.New("invalid title")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrPartnerNotFound  = errors.New("partner not found")
	ErrInvalidPartner   = errors.New("partners must be one dentist and one hygienist")
	ErrPartnerTaken     = errors.New("partner already has a partner")
	ErrForbidden        = errors.New("only administrators may do this")
)

// AuthResult is the outcome of a sign-in attempt.
type AuthResult string

const (
	VoidField          AuthResult = "VOID_FIELD"
	UserDoesNotExist   AuthResult = "USER_DOES_NOT_EXIST"
	InvalidCredentials AuthResult = "INVALID_CREDENTIALS"
	DisabledAccount    AuthResult = "DISABLED_ACCOUNT"
	ValidCredentials   AuthResult = "VALID_CREDENTIALS"
)

// Service is the account manager.
type Service struct {
	store  store.RecordStore
	hasher Hasher
	cache  *userCache
	logger zerolog.Logger
}

// CacheConfig sizes the user lookup cache. A zero Size or TTL disables it.
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// NewService creates a Service.
func NewService(s store.RecordStore, hasher Hasher, cache CacheConfig, logger zerolog.Logger) *Service {
	logger = logger.With().Str("component", "accounts").Logger()
	return &Service{store: s, hasher: hasher, cache: newUserCache(cache.Size, cache.TTL, logger), logger: logger}
}

// Lookup returns the user with the given id.
func (s *Service) Lookup(ctx context.Context, id string) (models.User, error) {
	if u, ok := s.cache.get(id); ok {
		return u, nil
	}
	u, err := s.fetch(ctx, store.Where(models.ColUserID, id))
	if err != nil {
		return models.User{}, err
	}
	s.cache.store(u)
	return u, nil
}

// LookupUsername resolves a username through its derived id.
func (s *Service) LookupUsername(ctx context.Context, username string) (models.User, error) {
	return s.Lookup(ctx, UserID(username))
}

// LookupByName finds a user by first and last name, case-insensitively.
func (s *Service) LookupByName(ctx context.Context, first, last string) (models.User, error) {
	return s.fetch(ctx, store.Where(models.ColFirstName, strings.ToLower(first)).And(models.ColLastName, strings.ToLower(last)))
}

// LookupFullName splits "first last" and calls LookupByName.
func (s *Service) LookupFullName(ctx context.Context, name string) (models.User, error) {
	parts := strings.Fields(name)
	if len(parts) != 2 {
		return models.User{}, fmt.Errorf("%w: %q is not \"first last\"", ErrUserNotFound, name)
	}
	return s.LookupByName(ctx, parts[0], parts[1])
}

func (s *Service) fetch(ctx context.Context, p store.Predicate) (models.User, error) {
	row, err := s.store.GetOne(ctx, models.Users, p)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return models.UserFromRow(row), nil
}

// Authenticate checks a username and password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (AuthResult, models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return VoidField, models.User{}, nil
	}
	u, err := s.fetch(ctx, store.Where(models.ColUserID, UserID(username)))
	if errors.Is(err, ErrUserNotFound) {
		return UserDoesNotExist, models.User{}, nil
	}
	if err != nil {
		return "", models.User{}, err
	}
	if !s.hasher.Verify(username, password, u.PasswordHash) {
		return InvalidCredentials, models.User{}, nil
	}
	if u.Status == models.StatusDisabled {
		return DisabledAccount, u, nil
	}
	return ValidCredentials, u, nil
}

// SignUp is a self-service patient registration.
type SignUp struct {
	Username        string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	Email           string
	Phone           string
}

// Register creates an enabled PATIENT account.
func (s *Service) Register(ctx context.Context, req SignUp) (models.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if err := required(map[string]string{
		"username":   username,
		"password":   req.Password,
		"first name": req.FirstName,
		"last name":  req.LastName,
	}); err != nil {
		return models.User{}, err
	}
	if req.Password != req.ConfirmPassword {
		return models.User{}, ErrPasswordMismatch
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)
	if email == "" && phone == "" {
		return models.User{}, ErrNoContact
	}
	if err := checkContact(email, phone); err != nil {
		return models.User{}, err
	}

	u := models.User{
		ID:           UserID(username),
		FirstName:    strings.ToLower(strings.TrimSpace(req.FirstName)),
		LastName:     strings.ToLower(strings.TrimSpace(req.LastName)),
		Email:        email,
		Phone:        phone,
		Title:        models.TitlePatient,
		PasswordHash: s.hasher.Hash(username, req.Password),
		Status:       models.StatusEnabled,
	}
	if err := s.insert(ctx, u); err != nil {
		return models.User{}, err
	}
	s.logger.Info().Str("user_id", u.ID).Msg("patient registered")
	return u, nil
}

// NewAccount is an administrator-created account.
type NewAccount struct {
	Username        string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Title           models.Title
	// Partner is the "first last" name of the other half of a
	// dentist/hygienist pair. Optional.
	Partner string
}

// CreateAccount creates a DENTIST, HYGIENIST or ADMIN account on behalf of
// an administrator. A named partner is linked in both directions.
func (s *Service) CreateAccount(ctx context.Context, acting models.User, req NewAccount) (models.User, error) {
	if acting.Title != models.TitleAdmin {
		return models.User{}, ErrForbidden
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if err := required(map[string]string{
		"username":   username,
		"password":   req.Password,
		"first name": req.FirstName,
		"last name":  req.LastName,
	}); err != nil {
		return models.User{}, err
	}
	if req.Password != req.ConfirmPassword {
		return models.User{}, ErrPasswordMismatch
	}
	switch req.Title {
	case models.TitleDentist, models.TitleHygienist, models.TitleAdmin:
	default:
		return models.User{}, fmt.Errorf("%w: %q", ErrInvalidTitle, req.Title)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)
	if err := checkContact(email, phone); err != nil {
		return models.User{}, err
	}

	u := models.User{
		ID:           UserID(username),
		FirstName:    strings.ToLower(strings.TrimSpace(req.FirstName)),
		LastName:     strings.ToLower(strings.TrimSpace(req.LastName)),
		Email:        email,
		Phone:        phone,
		Title:        req.Title,
		PasswordHash: s.hasher.Hash(username, req.Password),
		Status:       models.StatusEnabled,
	}

	var partner models.User
	if strings.TrimSpace(req.Partner) != "" {
		if !req.Title.IsProvider() {
			return models.User{}, ErrInvalidPartner
		}
		p, err := s.LookupFullName(ctx, req.Partner)
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%w: %s", ErrPartnerNotFound, req.Partner)
		}
		if err != nil {
			return models.User{}, err
		}
		if !p.Title.IsProvider() || p.Title == req.Title {
			return models.User{}, ErrInvalidPartner
		}
		if p.HasPartner() {
			return models.User{}, ErrPartnerTaken
		}
		partner = p
		u.PartnerID = p.ID
	}

	if err := s.insert(ctx, u); err != nil {
		return models.User{}, err
	}

	if partner.ID != "" {
		n, err := s.store.Update(ctx, models.Users,
			store.Where(models.ColUserID, partner.ID).And(models.ColPartnerID, store.Absent),
			store.Set(models.ColPartnerID, u.ID),
		)
		if err == nil && n == 0 {
			err = ErrPartnerTaken
		}
		if err != nil {
			// roll the new account back so no one-sided edge is left behind
			if _, derr := s.store.Delete(ctx, models.Users, store.Where(models.ColUserID, u.ID)); derr != nil {
				s.logger.Error().Err(derr).Str("user_id", u.ID).Msg("failed to remove half-linked account")
			}
			return models.User{}, fmt.Errorf("link partner: %w", err)
		}
		s.cache.invalidate(partner.ID)
	}

	s.logger.Info().Str("user_id", u.ID).Str("title", string(u.Title)).Str("partner_id", u.PartnerID).Msg("account created")
	return u, nil
}

func (s *Service) insert(ctx context.Context, u models.User) error {
	err := s.store.InsertUnless(ctx, models.Users, u.Values(), store.Where(models.ColUserID, u.ID))
	if errors.Is(err, store.ErrConflict) {
		return ErrUsernameTaken
	}
	if errors.Is(err, store.ErrSchemaMismatch) {
		return fmt.Errorf("%w: %v", ErrFieldTooLong, err)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	s.cache.invalidate(u.ID)
	return nil
}

// SearchBy names a roster search field.
type SearchBy string

const (
	SearchAll      SearchBy = "all"
	SearchUsername SearchBy = "username"
	SearchUserID   SearchBy = "user_id"
	SearchName     SearchBy = "name"
	SearchTitle    SearchBy = "title"
	SearchPartner  SearchBy = "partner"
)

// Search lists users for the administrator roster. A name query that is not
// exactly "first last" falls back to the full roster.
func (s *Service) Search(ctx context.Context, by SearchBy, query string) ([]models.User, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	var p store.Predicate
	switch by {
	case SearchUsername:
		p = store.Where(models.ColUserID, UserID(query))
	case SearchUserID:
		p = store.Where(models.ColUserID, query)
	case SearchName:
		parts := strings.Fields(query)
		if len(parts) != 2 {
			return s.roster(ctx)
		}
		p = store.Where(models.ColFirstName, parts[0]).And(models.ColLastName, parts[1])
	case SearchTitle:
		p = store.Where(models.ColTitle, strings.ToUpper(query))
	case SearchPartner:
		p = store.Where(models.ColPartnerID, UserID(query))
	default:
		return s.roster(ctx)
	}
	return s.query(ctx, p)
}

// ListEnabled returns the enabled users with a title, for pickers.
func (s *Service) ListEnabled(ctx context.Context, title models.Title) ([]models.User, error) {
	return s.query(ctx, store.Where(models.ColTitle, string(title)).And(models.ColStatus, string(models.StatusEnabled)))
}

func (s *Service) roster(ctx context.Context) ([]models.User, error) {
	var all []models.User
	for _, t := range []models.Title{models.TitleAdmin, models.TitleDentist, models.TitleHygienist, models.TitlePatient} {
		users, err := s.query(ctx, store.Where(models.ColTitle, string(t)))
		if err != nil {
			return nil, err
		}
		all = append(all, users...)
	}
	return all, nil
}

func (s *Service) query(ctx context.Context, p store.Predicate) ([]models.User, error) {
	rows, err := s.store.QueryAll(ctx, models.Users, p)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	users := make([]models.User, len(rows))
	for i, r := range rows {
		users[i] = models.UserFromRow(r)
	}
	return users, nil
}

var phonePattern = regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`)

// ValidPhone reports whether v is a 14-character "(555) 555-5555" number.
func ValidPhone(v string) bool {
	return phonePattern.MatchString(v)
}

// ValidEmail applies the clinic's loose email rule.
func ValidEmail(v string) bool {
	if !strings.Contains(v, "@") {
		return false
	}
	for _, tld := range []string{".com", ".net", ".org", ".edu"} {
		if strings.Contains(v, tld) {
			return true
		}
	}
	return false
}

func checkContact(email, phone string) error {
	if email != "" && !ValidEmail(email) {
		return ErrInvalidEmail
	}
	if phone != "" && !ValidPhone(phone) {
		return ErrInvalidPhone
	}
	return nil
}

func required(fields map[string]string) error {
	for _, name := range []string{"username", "password", "first name", "last name"} {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}
	return nil
}
