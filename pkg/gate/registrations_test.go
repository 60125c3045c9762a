package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/morezero/gate-registration/pkg/db"
	"github.com/morezero/gate-registration/pkg/gate/gatetest"
)

const registrationsTestPrefix = "gate:registrations_test"

func TestCheckInCheckOut(t *testing.T) {
	repo := gatetest.NewMemoryRepo()
	s := newTestService(repo, nil)
	fixed := time.Date(2024, 5, 2, 8, 15, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()
	id := seedRequest(t, s)

	if _, err := s.CheckIn(ctx, id); err != nil {
		t.Fatalf("%s - CheckIn: %v", registrationsTestPrefix, err)
	}
	reg := repo.Registrations[id]
	if reg.Status != db.StatusCheckedIn || reg.CheckInTime == nil || !reg.CheckInTime.Equal(fixed) {
		t.Errorf("%s - after CheckIn status=%s checkIn=%v", registrationsTestPrefix, reg.Status, reg.CheckInTime)
	}

	if _, err := s.CheckOut(ctx, id); err != nil {
		t.Fatalf("%s - CheckOut: %v", registrationsTestPrefix, err)
	}
	if reg.Status != db.StatusCheckedOut || reg.CheckOutTime == nil {
		t.Errorf("%s - after CheckOut status=%s checkOut=%v", registrationsTestPrefix, reg.Status, reg.CheckOutTime)
	}

	if _, err := s.CheckIn(ctx, uuid.NewString()); gateCode(err) != CodeNotFound {
		t.Errorf("%s - CheckIn missing err = %v, want NOT_FOUND", registrationsTestPrefix, err)
	}
	if _, err := s.CheckOut(ctx, "nope"); gateCode(err) != CodeInvalidArgument {
		t.Errorf("%s - CheckOut bad id err = %v, want INVALID_ARGUMENT", registrationsTestPrefix, err)
	}
}

func TestCheckIn_StoreFailure(t *testing.T) {
	repo := gatetest.NewMemoryRepo()
	repo.FailWith = errors.New("connection reset")
	s := newTestService(repo, nil)

	if _, err := s.CheckIn(context.Background(), uuid.NewString()); gateCode(err) != CodeInternal {
		t.Errorf("%s - err = %v, want INTERNAL_ERROR", registrationsTestPrefix, err)
	}
}

func TestListRegistrations_NewestFirst(t *testing.T) {
	repo := gatetest.NewMemoryRepo()
	s := newTestService(repo, nil)
	first := seedRequest(t, s)
	second := seedRequest(t, s)
	repo.Registrations[first].CreatedAt = time.Now().Add(-time.Hour)

	out, err := s.ListRegistrations(context.Background())
	if err != nil {
		t.Fatalf("%s - ListRegistrations: %v", registrationsTestPrefix, err)
	}
	if len(out) != 2 || out[0].ID != second || out[1].ID != first {
		t.Fatalf("%s - order = %v", registrationsTestPrefix, out)
	}
	if out[0].Employee == nil || out[0].Supplier == nil {
		t.Errorf("%s - view missing employee or supplier", registrationsTestPrefix)
	}
}

func TestHistory_WholeDayBounds(t *testing.T) {
	repo := gatetest.NewMemoryRepo()
	s := newTestService(repo, nil)

	if _, err := s.History(context.Background(), &HistoryInput{Start: "2024-05-01", End: "2024-05-03", Q: "parts"}); err != nil {
		t.Fatalf("%s - History: %v", registrationsTestPrefix, err)
	}
	if len(repo.Searches) != 1 {
		t.Fatalf("%s - searches = %d, want 1", registrationsTestPrefix, len(repo.Searches))
	}
	got := repo.Searches[0]
	wantFrom := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2024, 5, 3, 23, 59, 59, 999000000, time.UTC)
	if !got.From.Equal(wantFrom) || !got.To.Equal(wantTo) {
		t.Errorf("%s - bounds = [%v, %v], want [%v, %v]", registrationsTestPrefix, got.From, got.To, wantFrom, wantTo)
	}
	if got.Pattern != "parts" {
		t.Errorf("%s - pattern = %q", registrationsTestPrefix, got.Pattern)
	}
}

func TestHistory_Filters(t *testing.T) {
	repo := gatetest.NewMemoryRepo()
	s := newTestService(repo, nil)
	match := seedRequest(t, s)
	other := seedRequest(t, s)
	repo.Registrations[other].Reason = "Pick up samples"

	today := time.Now().UTC().Format("2006-01-02")
	out, err := s.History(context.Background(), &HistoryInput{Start: today, End: today, Q: "SPARE"})
	if err != nil {
		t.Fatalf("%s - History: %v", registrationsTestPrefix, err)
	}
	if len(out) != 1 || out[0].ID != match {
		t.Errorf("%s - History returned %d rows, want only %s", registrationsTestPrefix, len(out), match)
	}
}

func TestHistory_Validation(t *testing.T) {
	s := newTestService(gatetest.NewMemoryRepo(), nil)
	ctx := context.Background()

	for _, in := range []HistoryInput{
		{End: "2024-05-01"},
		{Start: "2024-05-01"},
		{Start: "yesterday", End: "2024-05-01"},
		{Start: "2024-05-01", End: "05/02/2024"},
		{Start: "2024-05-03", End: "2024-05-01"},
	} {
		if _, err := s.History(ctx, &in); gateCode(err) != CodeInvalidArgument {
			t.Errorf("%s - History(%+v) err = %v, want INVALID_ARGUMENT", registrationsTestPrefix, in, err)
		}
	}
}

func TestHistory_InvalidPattern(t *testing.T) {
	repo := gatetest.NewMemoryRepo()
	repo.FailWith = &pgconn.PgError{Code: "2201B"}
	s := newTestService(repo, nil)

	_, err := s.History(context.Background(), &HistoryInput{Start: "2024-05-01", End: "2024-05-01", Q: "(["})
	if gateCode(err) != CodeInvalidArgument {
		t.Errorf("%s - err = %v, want INVALID_ARGUMENT", registrationsTestPrefix, err)
	}
}

func TestDayBounds_Location(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	start := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC) // 03:00 on the 2nd in ICT
	from, to := dayBounds(start, start, loc)
	if from.Day() != 2 || from.Hour() != 0 || to.Day() != 2 || to.Hour() != 23 {
		t.Errorf("%s - dayBounds in ICT = [%v, %v]", registrationsTestPrefix, from, to)
	}
}
