package admission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/afes-website/manage-back/internal/database"
	"github.com/afes-website/manage-back/internal/festival"
	"github.com/afes-website/manage-back/internal/migrations"
	"github.com/afes-website/manage-back/internal/store"
	"github.com/afes-website/manage-back/internal/wristband"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testTypes = festival.GuestTypes{"GuestBlue": "GB", "GuestRed": "GR", "Alpha": "AB"}

type fixture struct {
	store    *store.Store
	clock    *fakeClock
	service  *Service
	reporter *Reporter
}

// newFixture provisions terms "blue" (GB), "red" (GR) and "alpha" (AB), all
// closing an hour after the fixture clock, plus the given rooms.
func newFixture(t *testing.T, rooms ...festival.Room) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	clock := &fakeClock{now: time.Date(2026, 11, 3, 10, 0, 0, 0, time.UTC)}
	s := store.New(db, testTypes, clock)
	err = s.Update(ctx, func(tx *store.Tx) error {
		for id, guestType := range map[string]string{"blue": "GuestBlue", "red": "GuestRed", "alpha": "Alpha"} {
			if err := tx.Terms.Create(ctx, festival.Term{
				ID:                 id,
				EnterScheduledTime: clock.now.Add(-time.Hour),
				ExitScheduledTime:  clock.now.Add(time.Hour),
				GuestType:          guestType,
			}); err != nil {
				return err
			}
		}
		for _, r := range rooms {
			if _, err := tx.Rooms.Create(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		store:    s,
		clock:    clock,
		service:  NewService(s, testTypes, clock, logger),
		reporter: NewReporter(s),
	}
}

func (f *fixture) reservation(t *testing.T, id, term string) {
	t.Helper()
	err := f.store.Update(context.Background(), func(tx *store.Tx) error {
		return tx.Reservations.Create(context.Background(), id, term, 2)
	})
	if err != nil {
		t.Fatalf("creating reservation %s: %v", id, err)
	}
}

// admit creates a reservation on term and checks guest in with it.
func (f *fixture) admit(t *testing.T, term, guest string) {
	t.Helper()
	res := "res-" + guest
	f.reservation(t, res, term)
	if _, err := f.service.CheckIn(context.Background(), res, guest); err != nil {
		t.Fatalf("CheckIn(%s): %v", guest, err)
	}
}

func (f *fixture) enter(t *testing.T, room, guest string) {
	t.Helper()
	if _, err := f.service.EnterRoom(context.Background(), room, guest); err != nil {
		t.Fatalf("EnterRoom(%s, %s): %v", room, guest, err)
	}
}

// assertInvariants checks that no exited guest holds a room and that no
// room is over capacity.
func (f *fixture) assertInvariants(t *testing.T) {
	t.Helper()
	err := f.store.View(context.Background(), func(tx *store.Tx) error {
		guests, err := tx.Guests.List(context.Background())
		if err != nil {
			return err
		}
		for _, g := range guests {
			if g.RoomID != nil && g.ExitedAt != nil {
				t.Errorf("guest %s exited while in room %s", g.ID, *g.RoomID)
			}
		}
		rooms, err := tx.Rooms.List(context.Background())
		if err != nil {
			return err
		}
		for _, r := range rooms {
			if r.GuestCount > r.Capacity {
				t.Errorf("room %s holds %d guests, capacity %d", r.ID, r.GuestCount, r.Capacity)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func code(t *testing.T, prefix string, n int) string {
	t.Helper()
	body := fmt.Sprintf("%04X", n)
	sum, err := wristband.Checksum(body)
	if err != nil {
		t.Fatal(err)
	}
	return prefix + "-" + body + string(sum)
}

func TestCheckIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reservation(t, "R1", "blue")
	id := code(t, "GB", 1)

	g, err := f.service.CheckIn(ctx, "R1", id)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if g.ID != id || g.TermID != "blue" || g.ReservationID != "R1" || g.RoomID != nil || g.Exited() {
		t.Errorf("guest = %+v", g)
	}

	// Reservation consumption is permanent regardless of the wristband offered.
	_, err = f.service.CheckIn(ctx, "R1", code(t, "GB", 2))
	if !errors.Is(err, festival.ErrReservationConsumed) {
		t.Errorf("second CheckIn = %v, want ErrReservationConsumed", err)
	}

	err = f.store.View(ctx, func(tx *store.Tx) error {
		r, err := tx.Reservations.Get(ctx, "R1")
		if err != nil {
			return err
		}
		if r.GuestID == nil || *r.GuestID != id {
			t.Errorf("reservation guest = %v", r.GuestID)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCheckInNormalizesCase(t *testing.T) {
	f := newFixture(t)
	f.reservation(t, "R1", "blue")
	id := code(t, "GB", 0xABCD)

	g, err := f.service.CheckIn(context.Background(), "R1", " gb-abcd"+id[len(id)-1:]+" ")
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if g.ID != id {
		t.Errorf("ID = %q, want %q", g.ID, id)
	}
}

func TestCheckInPrecedence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	used := code(t, "GB", 0x10)
	f.admit(t, "blue", used)
	f.reservation(t, "open-blue", "blue")
	f.reservation(t, "open-red", "red")

	// A consumed reservation on a term that is about to close.
	err := f.store.Update(ctx, func(tx *store.Tx) error {
		if err := tx.Terms.Create(ctx, festival.Term{
			ID:                 "short",
			EnterScheduledTime: f.clock.now.Add(-time.Hour),
			ExitScheduledTime:  f.clock.now.Add(time.Minute),
			GuestType:          "GuestBlue",
		}); err != nil {
			return err
		}
		return tx.Reservations.Create(ctx, "short-used", "short", 1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.service.CheckIn(ctx, "short-used", code(t, "GB", 0x11)); err != nil {
		t.Fatalf("CheckIn(short-used): %v", err)
	}
	f.reservation(t, "short-open", "short")

	tests := []struct {
		name    string
		advance time.Duration
		res     string
		guest   string
		want    error
	}{
		{"bad code before missing reservation", 0, "missing", "GB-00001", festival.ErrInvalidWristband},
		{"missing reservation before used wristband", 0, "missing", used, festival.ErrReservationNotFound},
		{"consumed before used wristband", 0, "res-" + used, used, festival.ErrReservationConsumed},
		{"used wristband before wrong color", 0, "open-red", used, festival.ErrAlreadyUsedWristband},
		{"wrong color", 0, "open-red", code(t, "GB", 0x12), festival.ErrWrongWristbandColor},
		{"expired before consumed", 2 * time.Minute, "short-used", code(t, "GB", 0x13), festival.ErrReservationExpired},
		{"expired before wrong color", 0, "short-open", code(t, "GR", 0x14), festival.ErrReservationExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.clock.Advance(tt.advance)
			_, err := f.service.CheckIn(ctx, tt.res, tt.guest)
			if !errors.Is(err, tt.want) {
				t.Errorf("CheckIn = %v, want %v", err, tt.want)
			}
		})
	}
	f.assertInvariants(t)
}

func TestCheckInWrongColorScenario(t *testing.T) {
	f := newFixture(t)
	f.reservation(t, "R-alpha", "alpha")

	_, err := f.service.CheckIn(context.Background(), "R-alpha", code(t, "CD", 0x777))
	if !errors.Is(err, festival.ErrWrongWristbandColor) {
		t.Fatalf("CheckIn = %v, want ErrWrongWristbandColor", err)
	}
	if _, err := f.service.CheckIn(context.Background(), "R-alpha", code(t, "AB", 0x777)); err != nil {
		t.Fatalf("CheckIn with matching color: %v", err)
	}
}

func TestEnterRoomPrecedence(t *testing.T) {
	f := newFixture(t,
		festival.Room{ID: "solo", Name: "Solo", Capacity: 1},
		festival.Room{ID: "big", Name: "Big", Capacity: 10},
	)
	ctx := context.Background()

	inside := code(t, "GB", 0x20)
	f.admit(t, "blue", inside)
	f.enter(t, "solo", inside)

	gone := code(t, "GB", 0x21)
	f.admit(t, "blue", gone)
	if _, err := f.service.CheckOut(ctx, gone); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		room  string
		guest string
		want  error
	}{
		{"unknown room before unknown guest", "nope", code(t, "GB", 0x99), festival.ErrExhibitionNotFound},
		{"unknown guest", "big", code(t, "GB", 0x99), festival.ErrGuestNotFound},
		{"already entered before full", "solo", inside, festival.ErrGuestAlreadyEntered},
		{"full before exited", "solo", gone, festival.ErrPeopleLimitExceeded},
		{"exited", "big", gone, festival.ErrGuestAlreadyExited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.EnterRoom(ctx, tt.room, tt.guest)
			if !errors.Is(err, tt.want) {
				t.Errorf("EnterRoom = %v, want %v", err, tt.want)
			}
		})
	}

	sum, err := f.reporter.RoomSummary(ctx, "solo")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Room.GuestCount != 1 || sum.Count["blue"] != 1 {
		t.Errorf("solo occupancy = %d %v, want 1", sum.Room.GuestCount, sum.Count)
	}
	f.assertInvariants(t)
}

func TestEnterRoomAfterTermCloses(t *testing.T) {
	f := newFixture(t, festival.Room{ID: "exh-1", Name: "Physics", Capacity: 5})
	ctx := context.Background()
	id := code(t, "GB", 0x30)
	f.admit(t, "blue", id)

	f.clock.Advance(time.Hour)
	_, err := f.service.EnterRoom(ctx, "exh-1", id)
	if !errors.Is(err, festival.ErrExitTimeExceeded) {
		t.Fatalf("EnterRoom at deadline = %v, want ErrExitTimeExceeded", err)
	}

	entries, err := f.reporter.GuestLog(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("rejected entry was logged: %+v", entries)
	}
}

func TestEnterOtherRoomExitsFirst(t *testing.T) {
	f := newFixture(t,
		festival.Room{ID: "a", Name: "A", Capacity: 5},
		festival.Room{ID: "b", Name: "B", Capacity: 5},
	)
	ctx := context.Background()
	id := code(t, "GR", 0x40)
	f.admit(t, "red", id)
	f.enter(t, "a", id)

	f.clock.Advance(time.Minute)
	g, err := f.service.EnterRoom(ctx, "b", id)
	if err != nil {
		t.Fatalf("EnterRoom(b): %v", err)
	}
	if !g.In("b") {
		t.Errorf("guest room = %v, want b", g.RoomID)
	}

	entries, err := f.reporter.GuestLog(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		room string
		kind festival.LogKind
	}{{"a", festival.LogEnter}, {"a", festival.LogExit}, {"b", festival.LogEnter}}
	if len(entries) != len(want) {
		t.Fatalf("log = %+v", entries)
	}
	for i, w := range want {
		if entries[i].RoomID != w.room || entries[i].Kind != w.kind {
			t.Errorf("entry %d = %s %s, want %s %s", i, entries[i].RoomID, entries[i].Kind, w.room, w.kind)
		}
	}
	if !entries[1].Timestamp.Equal(entries[2].Timestamp) {
		t.Errorf("implicit exit at %v, enter at %v", entries[1].Timestamp, entries[2].Timestamp)
	}

	sum, err := f.reporter.GlobalSummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Rooms[0].Room.GuestCount != 0 || sum.Rooms[1].Room.GuestCount != 1 {
		t.Errorf("occupancy a=%d b=%d", sum.Rooms[0].Room.GuestCount, sum.Rooms[1].Room.GuestCount)
	}
}

func TestExitRoomPrecedence(t *testing.T) {
	f := newFixture(t,
		festival.Room{ID: "a", Name: "A", Capacity: 5},
		festival.Room{ID: "b", Name: "B", Capacity: 5},
	)
	ctx := context.Background()

	inA := code(t, "GB", 0x50)
	f.admit(t, "blue", inA)
	f.enter(t, "a", inA)

	gone := code(t, "GB", 0x51)
	f.admit(t, "blue", gone)
	if _, err := f.service.CheckOut(ctx, gone); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		room  string
		guest string
		want  error
	}{
		{"unknown room", "nope", inA, festival.ErrExhibitionNotFound},
		{"unknown guest", "a", code(t, "GB", 0x99), festival.ErrGuestNotFound},
		{"exited before not inside", "a", gone, festival.ErrGuestAlreadyExited},
		{"other room", "b", inA, festival.ErrGuestNotInExhibition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.ExitRoom(ctx, tt.room, tt.guest)
			if !errors.Is(err, tt.want) {
				t.Errorf("ExitRoom = %v, want %v", err, tt.want)
			}
		})
	}

	g, err := f.service.ExitRoom(ctx, "a", inA)
	if err != nil {
		t.Fatalf("ExitRoom: %v", err)
	}
	if g.RoomID != nil {
		t.Errorf("room after exit = %v", *g.RoomID)
	}
	if _, err := f.service.ExitRoom(ctx, "a", inA); !errors.Is(err, festival.ErrGuestNotInExhibition) {
		t.Errorf("second ExitRoom = %v", err)
	}
}

func TestCheckOut(t *testing.T) {
	f := newFixture(t, festival.Room{ID: "a", Name: "A", Capacity: 5})
	ctx := context.Background()

	if _, err := f.service.CheckOut(ctx, code(t, "GB", 0x99)); !errors.Is(err, festival.ErrGuestNotFound) {
		t.Errorf("CheckOut(unknown) = %v", err)
	}

	id := code(t, "GB", 0x60)
	f.admit(t, "blue", id)
	f.enter(t, "a", id)

	g, err := f.service.CheckOut(ctx, id)
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if g.RoomID != nil || g.ExitedAt == nil || !g.ExitedAt.Equal(f.clock.Now()) {
		t.Errorf("guest after checkout = %+v", g)
	}
	if _, err := f.service.CheckOut(ctx, id); !errors.Is(err, festival.ErrGuestAlreadyExited) {
		t.Errorf("second CheckOut = %v, want ErrGuestAlreadyExited", err)
	}

	entries, err := f.reporter.RoomLog(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[1].Kind != festival.LogExit {
		t.Errorf("room log = %+v", entries)
	}
	f.assertInvariants(t)
}

func TestLifecycleLog(t *testing.T) {
	f := newFixture(t, festival.Room{ID: "exh-1", Name: "Physics", Capacity: 5})
	ctx := context.Background()
	id := code(t, "GB", 0x70)

	f.admit(t, "blue", id)
	f.clock.Advance(time.Minute)
	f.enter(t, "exh-1", id)
	f.clock.Advance(time.Minute)
	if _, err := f.service.ExitRoom(ctx, "exh-1", id); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Minute)
	if _, err := f.service.CheckOut(ctx, id); err != nil {
		t.Fatal(err)
	}

	byGuest, err := f.reporter.GuestLog(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	byRoom, err := f.reporter.RoomLog(ctx, "exh-1")
	if err != nil {
		t.Fatal(err)
	}
	for name, entries := range map[string][]festival.LogEntry{"guest": byGuest, "room": byRoom} {
		if len(entries) != 2 || entries[0].Kind != festival.LogEnter || entries[1].Kind != festival.LogExit {
			t.Errorf("%s log = %+v", name, entries)
			continue
		}
		if !entries[0].Timestamp.Before(entries[1].Timestamp) {
			t.Errorf("%s log out of order", name)
		}
	}

	if _, err := f.reporter.GuestLog(ctx, code(t, "GB", 0x71)); !errors.Is(err, festival.ErrGuestNotFound) {
		t.Errorf("GuestLog(unknown) = %v", err)
	}
	if _, err := f.reporter.RoomLog(ctx, "nope"); !errors.Is(err, festival.ErrRoomNotFound) {
		t.Errorf("RoomLog(unknown) = %v", err)
	}
}

func TestConcurrentEnterRespectsCapacity(t *testing.T) {
	const capacity, guests = 3, 12
	f := newFixture(t, festival.Room{ID: "hall", Name: "Hall", Capacity: capacity})
	ctx := context.Background()

	ids := make([]string, guests)
	for i := range ids {
		ids[i] = code(t, "GB", 0x100+i)
		f.admit(t, "blue", ids[i])
	}

	var (
		mu       sync.Mutex
		admitted int
		rejected int
	)
	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := f.service.EnterRoom(ctx, "hall", id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, festival.ErrPeopleLimitExceeded):
				rejected++
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if admitted != capacity || rejected != guests-capacity {
		t.Errorf("admitted %d rejected %d, want %d and %d", admitted, rejected, capacity, guests-capacity)
	}
	f.assertInvariants(t)
}

func TestConcurrentEnterSingleSeat(t *testing.T) {
	f := newFixture(t, festival.Room{ID: "booth", Name: "Booth", Capacity: 1})
	ctx := context.Background()
	a, b := code(t, "GB", 0x200), code(t, "GR", 0x201)
	f.admit(t, "blue", a)
	f.admit(t, "red", b)

	errs := make([]error, 2)
	var g errgroup.Group
	for i, id := range []string{a, b} {
		i, id := i, id
		g.Go(func() error {
			_, errs[i] = f.service.EnterRoom(ctx, "booth", id)
			return nil
		})
	}
	_ = g.Wait()

	ok, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, festival.ErrPeopleLimitExceeded):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || full != 1 {
		t.Errorf("ok=%d full=%d, want one of each", ok, full)
	}
}

func TestConcurrentCheckInSameReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reservation(t, "R1", "blue")

	ids := []string{code(t, "GB", 0x300), code(t, "GB", 0x301), code(t, "GB", 0x302)}
	errs := make([]error, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			_, errs[i] = f.service.CheckIn(ctx, "R1", id)
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, festival.ErrReservationConsumed):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d check-ins succeeded, want 1", ok)
	}
}

func TestConcurrentEnterSameGuest(t *testing.T) {
	f := newFixture(t, festival.Room{ID: "a", Name: "A", Capacity: 10})
	ctx := context.Background()
	id := code(t, "GB", 0x400)
	f.admit(t, "blue", id)

	const attempts = 5
	errs := make([]error, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			_, errs[i] = f.service.EnterRoom(ctx, "a", id)
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, festival.ErrGuestAlreadyEntered):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d entries succeeded, want 1", ok)
	}
	entries, err := f.reporter.RoomLog(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("room log has %d entries, want 1", len(entries))
	}
}
