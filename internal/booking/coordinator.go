package booking

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/kiarashv/movie-ticketing/internal/model"
	"github.com/kiarashv/movie-ticketing/internal/monitoring"
)

// DefaultHoldWindow is how long a hold keeps seats off the market when no
// explicit window is configured.  It mirrors the "payment pending" window
// shown to customers.
const DefaultHoldWindow = 30 * time.Minute

// Coordinator is the sole mutation entry point for seat inventory and the
// reservation ledger.  Every operation below runs its read-modify-write
// under the mutex of the screening it touches, so conflicting requests
// against one screening never interleave while different screenings proceed
// independently.  External I/O (the payment gateway) is always performed
// with the lock released.
type Coordinator struct {
	inv      SeatInventory
	ledger   ReservationLedger
	catalog  ScreeningCatalog
	gateway  Gateway
	notifier Notifier

	locks      *screeningLocks
	holdWindow time.Duration

	// now is swappable in tests to drive the hold window.
	now func() time.Time
}

// Option tweaks coordinator construction.
type Option func(*Coordinator)

// WithHoldWindow overrides the hold window duration.
func WithHoldWindow(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.holdWindow = d
		}
	}
}

// WithClock replaces the time source.  Tests use it to move a reservation
// past its expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithNotifier attaches a post-confirmation notifier.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// NewCoordinator wires the coordinator with its collaborators.  Inventory,
// ledger, catalog and gateway must be non-nil; the notifier is optional.
func NewCoordinator(inv SeatInventory, ledger ReservationLedger, catalog ScreeningCatalog, gateway Gateway, opts ...Option) *Coordinator {
	if inv == nil || ledger == nil || catalog == nil || gateway == nil {
		panic("nil dependency passed to NewCoordinator")
	}
	c := &Coordinator{
		inv:        inv,
		ledger:     ledger,
		catalog:    catalog,
		gateway:    gateway,
		locks:      newScreeningLocks(),
		holdWindow: DefaultHoldWindow,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HoldWindow returns the configured hold duration.
func (c *Coordinator) HoldWindow() time.Duration { return c.holdWindow }

// CreateScreening registers a new screening and generates its fixed seat
// set from the layout carried on the screening record.
func (c *Coordinator) CreateScreening(ctx context.Context, scr *model.Screening) error {
	if scr.SeatRows == 0 || scr.SeatCols == 0 {
		return ErrBadSeatSelection
	}
	if err := c.catalog.Create(ctx, scr); err != nil {
		return err
	}
	return c.inv.Generate(ctx, scr.ID, scr.SeatRows, scr.SeatCols)
}

// HoldSeats atomically flips the requested seats from AVAILABLE to HELD and
// records a HOLDING reservation expiring one hold window from now.  Expired
// holds on the same screening are swept first, so a seat freed by a lapsed
// hold can be granted immediately even when the background sweeper lags.
//
// Conflicting concurrent holds on overlapping seats are resolved
// first-committer-wins: losers receive a *SeatsUnavailableError naming the
// seats that were already taken.
func (c *Coordinator) HoldSeats(ctx context.Context, screeningID uint64, seatIDs []uint64, holder model.Holder) (*model.Reservation, error) {
	if len(seatIDs) == 0 {
		monitoring.HoldOutcome("rejected")
		return nil, ErrBadSeatSelection
	}
	seen := make(map[uint64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if id == 0 {
			monitoring.HoldOutcome("rejected")
			return nil, ErrBadSeatSelection
		}
		if _, dup := seen[id]; dup {
			monitoring.HoldOutcome("rejected")
			return nil, ErrBadSeatSelection
		}
		seen[id] = struct{}{}
	}
	if _, err := c.catalog.Get(ctx, screeningID); err != nil {
		return nil, err
	}

	mu := c.locks.get(screeningID)
	mu.Lock()
	defer mu.Unlock()

	// Lazy sweep keeps staleness bounded even if the periodic sweeper
	// is behind.
	if _, err := c.sweepScreeningLocked(ctx, screeningID); err != nil {
		return nil, err
	}

	// The requested seats must belong to this screening.
	seats, err := c.inv.SeatsFor(ctx, screeningID)
	if err != nil {
		return nil, err
	}
	owned := make(map[uint64]struct{}, len(seats))
	for _, s := range seats {
		owned[s.ID] = struct{}{}
	}
	for _, id := range seatIDs {
		if _, ok := owned[id]; !ok {
			monitoring.HoldOutcome("rejected")
			return nil, ErrBadSeatSelection
		}
	}

	if err := c.inv.SetStatus(ctx, screeningID, seatIDs, model.SeatAvailable, model.SeatHeld); err != nil {
		var unavailable *SeatsUnavailableError
		if errors.As(err, &unavailable) {
			monitoring.HoldOutcome("conflict")
			monitoring.SeatConflicts(len(unavailable.Seats))
		}
		return nil, err
	}

	now := c.now()
	res := &model.Reservation{
		ScreeningID: screeningID,
		SeatIDs:     append([]uint64(nil), seatIDs...),
		Holder:      holder,
		Status:      model.ReservationHolding,
		CreatedAt:   now,
		ExpiresAt:   now.Add(c.holdWindow),
	}
	if err := c.ledger.Create(ctx, res); err != nil {
		// Undo the seat flip so no partially applied state escapes the
		// critical section.
		if rbErr := c.inv.SetStatus(ctx, screeningID, seatIDs, model.SeatHeld, model.SeatAvailable); rbErr != nil {
			log.Printf("coordinator: rollback of hold on screening %d failed: %v", screeningID, rbErr)
		}
		monitoring.HoldOutcome("error")
		return nil, err
	}
	monitoring.HoldOutcome("granted")
	return res, nil
}

// BeginPayment moves a reservation from HOLDING to AWAITING_PAYMENT.  A
// lapsed hold is expired on the spot and ErrHoldExpired returned so the
// caller sends the customer back to seat selection.
func (c *Coordinator) BeginPayment(ctx context.Context, reservationID uint64) error {
	res, err := c.ledger.Get(ctx, reservationID)
	if err != nil {
		return err
	}

	mu := c.locks.get(res.ScreeningID)
	mu.Lock()
	defer mu.Unlock()

	res, err = c.ledger.Get(ctx, reservationID)
	if err != nil {
		return err
	}
	if res.ExpiredAt(c.now()) {
		c.expireLocked(ctx, res)
		return ErrHoldExpired
	}
	return c.ledger.Transition(ctx, reservationID, model.ReservationHolding, model.ReservationAwaitingPayment)
}

// ConfirmPayment charges the gateway and finalises the reservation:
// AWAITING_PAYMENT -> CONFIRMED, seats HELD -> SOLD, total price fixed and
// confirmation code generated.  The gateway call happens with the screening
// lock released; the lock is re-acquired only to apply the resulting
// transition.
//
// The operation is idempotent under retry: confirming an already-CONFIRMED
// reservation with the same payment reference returns the existing record
// unchanged.
func (c *Coordinator) ConfirmPayment(ctx context.Context, reservationID uint64, pay model.Payment) (*model.Reservation, error) {
	res, err := c.ledger.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status == model.ReservationConfirmed && res.PaymentRef != "" && res.PaymentRef == pay.Ref {
		monitoring.ConfirmOutcome("duplicate")
		return res, nil
	}

	scr, err := c.catalog.Get(ctx, res.ScreeningID)
	if err != nil {
		return nil, err
	}

	// Validate under the lock, snapshot what the charge needs, then drop
	// the lock for the gateway round-trip.
	mu := c.locks.get(res.ScreeningID)
	mu.Lock()
	res, err = c.ledger.Get(ctx, reservationID)
	if err != nil {
		mu.Unlock()
		return nil, err
	}
	if res.Status == model.ReservationConfirmed && res.PaymentRef != "" && res.PaymentRef == pay.Ref {
		mu.Unlock()
		monitoring.ConfirmOutcome("duplicate")
		return res, nil
	}
	if res.ExpiredAt(c.now()) {
		c.expireLocked(ctx, res)
		mu.Unlock()
		monitoring.ConfirmOutcome("expired")
		return nil, ErrHoldExpired
	}
	if res.Status != model.ReservationAwaitingPayment {
		mu.Unlock()
		return nil, ErrInvalidTransition
	}
	total := uint32(len(res.SeatIDs)) * scr.PriceCents
	seatIDs := append([]uint64(nil), res.SeatIDs...)
	mu.Unlock()

	result, err := c.gateway.Charge(ctx, ChargeRequest{
		ReservationID: reservationID,
		AmountCents:   total,
		Method:        pay.Method,
		Ref:           pay.Ref,
	})
	if err != nil {
		return nil, err
	}
	if !result.Completed {
		// Declined charges drive the normal cancellation edge, not a
		// crash.
		if failErr := c.FailPayment(ctx, reservationID, "gateway declined"); failErr != nil && !errors.Is(failErr, ErrInvalidTransition) {
			return nil, failErr
		}
		monitoring.ConfirmOutcome("declined")
		return nil, ErrPaymentDeclined
	}

	mu.Lock()
	defer mu.Unlock()

	res, err = c.ledger.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status == model.ReservationConfirmed && res.PaymentRef == result.Ref {
		monitoring.ConfirmOutcome("duplicate")
		return res, nil
	}
	if res.Status != model.ReservationAwaitingPayment {
		// The sweeper (or another actor) won the race after the charge
		// settled.  The money must come back: flag it loudly.
		log.Printf("coordinator: charge %s settled for reservation %d but status is %s; refund required", result.Ref, reservationID, res.Status)
		monitoring.ConfirmOutcome("expired")
		return nil, ErrHoldExpired
	}

	code, err := newConfirmationCode()
	if err != nil {
		return nil, err
	}
	if err := c.ledger.Confirm(ctx, reservationID, code, total, result.Ref); err != nil {
		return nil, err
	}
	if err := c.inv.SetStatus(ctx, res.ScreeningID, seatIDs, model.SeatHeld, model.SeatSold); err != nil {
		log.Printf("coordinator: seat finalize failed for reservation %d: %v", reservationID, err)
		return nil, err
	}

	confirmed, err := c.ledger.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	monitoring.ConfirmOutcome("confirmed")
	c.notifyConfirmed(ctx, confirmed, scr)
	return confirmed, nil
}

// FailPayment cancels a reservation whose charge failed or was declined:
// AWAITING_PAYMENT -> CANCELLED and its seats back on the market.
func (c *Coordinator) FailPayment(ctx context.Context, reservationID uint64, reason string) error {
	res, err := c.ledger.Get(ctx, reservationID)
	if err != nil {
		return err
	}

	mu := c.locks.get(res.ScreeningID)
	mu.Lock()
	defer mu.Unlock()

	if err := c.ledger.Transition(ctx, reservationID, model.ReservationAwaitingPayment, model.ReservationCancelled); err != nil {
		return err
	}
	log.Printf("coordinator: reservation %d cancelled: %s", reservationID, reason)
	return c.inv.SetStatus(ctx, res.ScreeningID, res.SeatIDs, model.SeatHeld, model.SeatAvailable)
}

// Cancel aborts a HOLDING reservation on behalf of the customer or an
// admin, releasing its seats.
func (c *Coordinator) Cancel(ctx context.Context, reservationID uint64, actor string) error {
	res, err := c.ledger.Get(ctx, reservationID)
	if err != nil {
		return err
	}

	mu := c.locks.get(res.ScreeningID)
	mu.Lock()
	defer mu.Unlock()

	if err := c.ledger.Transition(ctx, reservationID, model.ReservationHolding, model.ReservationCancelled); err != nil {
		return err
	}
	log.Printf("coordinator: reservation %d cancelled by %s", reservationID, actor)
	return c.inv.SetStatus(ctx, res.ScreeningID, res.SeatIDs, model.SeatHeld, model.SeatAvailable)
}

// RepairSeats regenerates a screening's full seat set from its stored
// layout.  The regeneration is destructive and therefore rejected with
// ErrHasActiveHolds while any seat is HELD or SOLD.  Expired holds are
// swept first so a screening full of lapsed holds can still be repaired.
func (c *Coordinator) RepairSeats(ctx context.Context, screeningID uint64) error {
	scr, err := c.catalog.Get(ctx, screeningID)
	if err != nil {
		return err
	}

	mu := c.locks.get(screeningID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := c.sweepScreeningLocked(ctx, screeningID); err != nil {
		return err
	}
	return c.inv.Regenerate(ctx, screeningID, scr.SeatRows, scr.SeatCols)
}

// expireLocked moves one reservation to EXPIRED and releases its seats.
// The caller holds the screening lock.  Races where another actor already
// moved the reservation are expected and skipped silently.
func (c *Coordinator) expireLocked(ctx context.Context, res *model.Reservation) bool {
	if err := c.ledger.Transition(ctx, res.ID, res.Status, model.ReservationExpired); err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
			return false
		}
		log.Printf("sweeper: expire reservation %d: %v", res.ID, err)
		return false
	}
	if err := c.inv.SetStatus(ctx, res.ScreeningID, res.SeatIDs, model.SeatHeld, model.SeatAvailable); err != nil {
		// One bad record must not halt the sweep.
		log.Printf("sweeper: release seats of reservation %d: %v", res.ID, err)
		return true
	}
	monitoring.HoldExpired()
	return true
}

// sweepScreeningLocked expires every lapsed hold of one screening.  The
// caller holds the screening lock.  Returns the number of reservations
// expired.
func (c *Coordinator) sweepScreeningLocked(ctx context.Context, screeningID uint64) (int, error) {
	lapsed, err := c.ledger.ExpiredAsOf(ctx, screeningID, c.now())
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range lapsed {
		if c.expireLocked(ctx, &lapsed[i]) {
			n++
		}
	}
	return n, nil
}

// SweepExpired scans every screening for lapsed holds and releases them.
// It is idempotent and safe to run redundantly from multiple workers: each
// expiry is a compare-and-swap, so a concurrent sweep or a payment that
// wins the race simply makes this one a no-op for that reservation.
func (c *Coordinator) SweepExpired(ctx context.Context) (int, error) {
	lapsed, err := c.ledger.ExpiredAsOf(ctx, 0, c.now())
	if err != nil {
		return 0, err
	}
	byScreening := make(map[uint64][]model.Reservation)
	for _, res := range lapsed {
		byScreening[res.ScreeningID] = append(byScreening[res.ScreeningID], res)
	}
	total := 0
	for screeningID, group := range byScreening {
		mu := c.locks.get(screeningID)
		mu.Lock()
		for i := range group {
			// Re-read inside the lock: the reservation may have been
			// confirmed or already expired since the scan.
			cur, err := c.ledger.Get(ctx, group[i].ID)
			if err != nil {
				continue
			}
			if !cur.ExpiredAt(c.now()) {
				continue
			}
			if c.expireLocked(ctx, cur) {
				total++
			}
		}
		mu.Unlock()
	}
	monitoring.SweepDone(total)
	return total, nil
}

func (c *Coordinator) notifyConfirmed(ctx context.Context, res *model.Reservation, scr *model.Screening) {
	if c.notifier == nil {
		return
	}
	seats, err := c.inv.SeatsFor(ctx, res.ScreeningID)
	if err != nil {
		log.Printf("coordinator: load seats for notification: %v", err)
		seats = nil
	}
	want := make(map[uint64]struct{}, len(res.SeatIDs))
	for _, id := range res.SeatIDs {
		want[id] = struct{}{}
	}
	mine := make([]model.Seat, 0, len(res.SeatIDs))
	for _, s := range seats {
		if _, ok := want[s.ID]; ok {
			mine = append(mine, s)
		}
	}
	c.notifier.ReservationConfirmed(ctx, res, scr, mine)
}
