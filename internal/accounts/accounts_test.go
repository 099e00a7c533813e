package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/store"
)

var admin = models.User{ID: UserID("admin"), FirstName: "root", LastName: "admin", Title: models.TitleAdmin, Status: models.StatusEnabled}

func newService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory(models.Users, models.Appointments)
	return NewService(mem, Hasher{Scheme: SchemeMD5}, CacheConfig{Size: 16, TTL: time.Minute}, zerolog.Nop()), mem
}

func signUp(username string) SignUp {
	return SignUp{
		Username:        username,
		Password:        "secret",
		ConfirmPassword: "secret",
		FirstName:       "Ann",
		LastName:        "Lee",
		Email:           "Ann@Example.com",
	}
}

func TestRegister(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, signUp("Alice"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID != "3040" || u.Title != models.TitlePatient || u.Status != models.StatusEnabled {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.FirstName != "ann" || u.Email != "ann@example.com" {
		t.Fatalf("names and email should be lowercased: %+v", u)
	}
	if u.Phone != "" {
		t.Fatalf("phone should be absent, got %q", u.Phone)
	}

	if _, err := svc.Register(ctx, signUp("alice")); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*SignUp)
		want   error
	}{
		{"missing username", func(s *SignUp) { s.Username = " " }, ErrMissingField},
		{"missing last name", func(s *SignUp) { s.LastName = "" }, ErrMissingField},
		{"passwords differ", func(s *SignUp) { s.ConfirmPassword = "other" }, ErrPasswordMismatch},
		{"no contact", func(s *SignUp) { s.Email = "" }, ErrNoContact},
		{"email without tld", func(s *SignUp) { s.Email = "ann@example.io" }, ErrInvalidEmail},
		{"email without at", func(s *SignUp) { s.Email = "ann.example.com" }, ErrInvalidEmail},
		{"short phone", func(s *SignUp) { s.Phone = "(555) 555-555" }, ErrInvalidPhone},
		{"long first name", func(s *SignUp) { s.FirstName = "abcdefghijklmnopqrstuvwxyz" }, ErrFieldTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := signUp("bob")
			tt.mutate(&req)
			if _, err := svc.Register(ctx, req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	phoneOnly := signUp("bob")
	phoneOnly.Email = ""
	phoneOnly.Phone = "(555) 123-4567"
	if _, err := svc.Register(ctx, phoneOnly); err != nil {
		t.Fatalf("phone-only sign-up: %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, signUp("alice")); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		username, password string
		want               AuthResult
	}{
		{"", "secret", VoidField},
		{"alice", "", VoidField},
		{"nobody", "secret", UserDoesNotExist},
		{"alice", "wrong", InvalidCredentials},
		{"ALICE", "secret", ValidCredentials},
	}
	for _, tt := range tests {
		got, _, err := svc.Authenticate(ctx, tt.username, tt.password)
		if err != nil || got != tt.want {
			t.Errorf("Authenticate(%q, %q) = %s, %v; want %s", tt.username, tt.password, got, err, tt.want)
		}
	}

	if _, err := svc.SetStatus(ctx, admin, UserID("alice"), models.StatusDisabled); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if got, _, _ := svc.Authenticate(ctx, "alice", "secret"); got != DisabledAccount {
		t.Fatalf("expected DISABLED_ACCOUNT, got %s", got)
	}
	if got, _, _ := svc.Authenticate(ctx, "alice", "wrong"); got != InvalidCredentials {
		t.Fatalf("password is checked before status, got %s", got)
	}
}

func staff(username, first, last string, title models.Title, partner string) NewAccount {
	return NewAccount{
		Username:        username,
		Password:        "pw",
		ConfirmPassword: "pw",
		FirstName:       first,
		LastName:        last,
		Title:           title,
		Partner:         partner,
	}
}

func TestCreateAccount_LinksPartnersBothWays(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	dentist, err := svc.CreateAccount(ctx, admin, staff("drsmith", "John", "Smith", models.TitleDentist, ""))
	if err != nil {
		t.Fatalf("create dentist: %v", err)
	}
	// warm the cache so the partner update has to invalidate it
	if _, err := svc.Lookup(ctx, dentist.ID); err != nil {
		t.Fatalf("lookup: %v", err)
	}

	hyg, err := svc.CreateAccount(ctx, admin, staff("hyg", "Mary", "Jones", models.TitleHygienist, "john smith"))
	if err != nil {
		t.Fatalf("create hygienist: %v", err)
	}
	if hyg.PartnerID != dentist.ID {
		t.Fatalf("hygienist partner = %q, want %q", hyg.PartnerID, dentist.ID)
	}
	got, err := svc.Lookup(ctx, dentist.ID)
	if err != nil || got.PartnerID != hyg.ID {
		t.Fatalf("dentist partner = %q (%v), want %q", got.PartnerID, err, hyg.ID)
	}

	_, err = svc.CreateAccount(ctx, admin, staff("hyg2", "Sam", "Hill", models.TitleHygienist, "John Smith"))
	if !errors.Is(err, ErrPartnerTaken) {
		t.Fatalf("expected ErrPartnerTaken, got %v", err)
	}
	_, err = svc.CreateAccount(ctx, admin, staff("dr2", "Pat", "Kim", models.TitleDentist, "John Smith"))
	if !errors.Is(err, ErrInvalidPartner) {
		t.Fatalf("two dentists cannot pair, got %v", err)
	}
	_, err = svc.CreateAccount(ctx, admin, staff("dr3", "Lou", "Park", models.TitleDentist, "No Body"))
	if !errors.Is(err, ErrPartnerNotFound) {
		t.Fatalf("expected ErrPartnerNotFound, got %v", err)
	}
}

func TestCreateAccount_RequiresAdmin(t *testing.T) {
	svc, _ := newService(t)
	patient := models.User{ID: "1", Title: models.TitlePatient}
	_, err := svc.CreateAccount(context.Background(), patient, staff("x", "a", "b", models.TitleDentist, ""))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	_, err = svc.CreateAccount(context.Background(), admin, staff("x", "a", "b", models.TitlePatient, ""))
	if !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, signUp("alice")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.CreateAccount(ctx, admin, staff("drsmith", "John", "Smith", models.TitleDentist, "")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateAccount(ctx, admin, staff("hyg", "Mary", "Jones", models.TitleHygienist, "John Smith")); err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		by    SearchBy
		query string
		want  int
	}{
		{SearchUsername, "Alice", 1},
		{SearchUserID, "3040", 1},
		{SearchName, "john smith", 1},
		{SearchName, "john", 3},
		{SearchTitle, "dentist", 1},
		{SearchPartner, "drsmith", 1},
		{SearchAll, "", 3},
		{SearchUsername, "nobody", 0},
	}
	for _, tt := range tests {
		users, err := svc.Search(ctx, tt.by, tt.query)
		if err != nil || len(users) != tt.want {
			t.Errorf("Search(%s, %q) = %d users, %v; want %d", tt.by, tt.query, len(users), err, tt.want)
		}
	}

	enabled, err := svc.ListEnabled(ctx, models.TitleDentist)
	if err != nil || len(enabled) != 1 {
		t.Fatalf("list enabled dentists: %d %v", len(enabled), err)
	}
}

func TestLookup_CachedUserExpires(t *testing.T) {
	mem := store.NewMemory(models.Users, models.Appointments)
	svc := NewService(mem, Hasher{Scheme: SchemeMD5}, CacheConfig{Size: 16, TTL: 20 * time.Millisecond}, zerolog.Nop())
	ctx := context.Background()

	u, err := svc.Register(ctx, signUp("alice"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Lookup(ctx, u.ID); err != nil {
		t.Fatalf("lookup: %v", err)
	}

	// another instance disables the account behind this one's back
	if _, err := mem.Update(ctx, models.Users, store.Where(models.ColUserID, u.ID), store.Set(models.ColStatus, string(models.StatusDisabled))); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, _ := svc.Lookup(ctx, u.ID); !got.Enabled() {
		t.Fatalf("expected the cached copy before the ttl elapses")
	}

	time.Sleep(60 * time.Millisecond)
	got, err := svc.Lookup(ctx, u.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Enabled() {
		t.Fatal("stale enabled user still served after the ttl")
	}
}

func TestLookup_CacheDisabled(t *testing.T) {
	mem := store.NewMemory(models.Users, models.Appointments)
	svc := NewService(mem, Hasher{Scheme: SchemeMD5}, CacheConfig{}, zerolog.Nop())
	ctx := context.Background()

	u, err := svc.Register(ctx, signUp("alice"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Lookup(ctx, u.ID); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, err := mem.Update(ctx, models.Users, store.Where(models.ColUserID, u.ID), store.Set(models.ColStatus, string(models.StatusDisabled))); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, _ := svc.Lookup(ctx, u.ID); got.Enabled() {
		t.Fatal("lookup without a cache must read the store")
	}
}
