package store

import (
	"log"
	"sync"

	"greenledger/internal/domain"
)

// Reduce applies one action to a state snapshot and returns the next
// state. It is pure: no I/O, no clock reads, no randomness. Collections
// untouched by the action keep their backing array, so consumers can
// compare slice identity to detect "nothing relevant changed". Update
// actions whose target id does not exist return the state unchanged.
func Reduce(s domain.AppState, a Action) domain.AppState {
	switch act := a.(type) {
	case SetCurrentUser:
		s.CurrentUser = act.User
		return s

	case AddUser:
		s.Users = appendUser(s.Users, act.User)
		return s

	case UpdateUser:
		users, ok := patchUser(s.Users, act.ID, act.Patch)
		if !ok {
			return s
		}
		s.Users = users
		// Keep the session view of the user consistent with the list entry.
		if s.CurrentUser != nil && s.CurrentUser.ID == act.ID {
			patched := act.Patch.apply(*s.CurrentUser)
			s.CurrentUser = &patched
		}
		return s

	case AddProduct:
		s.Products = appendProduct(s.Products, act.Product)
		return s

	case UpdateProduct:
		if products, ok := patchProduct(s.Products, act.ID, act.Patch); ok {
			s.Products = products
		}
		return s

	case AddShipment:
		s.Shipments = appendShipment(s.Shipments, act.Shipment)
		return s

	case UpdateShipment:
		if shipments, ok := patchShipment(s.Shipments, act.ID, act.Patch); ok {
			s.Shipments = shipments
		}
		return s

	case AddEvent:
		s.Events = appendEvent(s.Events, act.Event)
		return s

	case AddRating:
		s.Ratings = appendRating(s.Ratings, act.Rating)
		return s

	case AddPayment:
		s.Payments = appendPayment(s.Payments, act.Payment)
		return s

	case UpdatePayment:
		if payments, ok := patchPayment(s.Payments, act.ID, act.Patch); ok {
			s.Payments = payments
		}
		return s

	case SetLoading:
		s.Loading = act.Loading
		return s

	case SetError:
		s.Error = act.Error
		return s

	case ResetDemoData:
		return DemoState(act.Now)

	case LoadState:
		return act.State
	}
	return s
}

// The three-index append forces a copy instead of writing into spare
// capacity shared with the previous snapshot.

func appendUser(xs []domain.UserProfile, x domain.UserProfile) []domain.UserProfile {
	return append(xs[:len(xs):len(xs)], x)
}

func appendProduct(xs []domain.Product, x domain.Product) []domain.Product {
	return append(xs[:len(xs):len(xs)], x)
}

func appendShipment(xs []domain.Shipment, x domain.Shipment) []domain.Shipment {
	return append(xs[:len(xs):len(xs)], x)
}

func appendEvent(xs []domain.Event, x domain.Event) []domain.Event {
	return append(xs[:len(xs):len(xs)], x)
}

func appendRating(xs []domain.Rating, x domain.Rating) []domain.Rating {
	return append(xs[:len(xs):len(xs)], x)
}

func appendPayment(xs []domain.Payment, x domain.Payment) []domain.Payment {
	return append(xs[:len(xs):len(xs)], x)
}

func patchUser(xs []domain.UserProfile, id string, p UserPatch) ([]domain.UserProfile, bool) {
	for i := range xs {
		if xs[i].ID == id {
			next := make([]domain.UserProfile, len(xs))
			copy(next, xs)
			next[i] = p.apply(next[i])
			return next, true
		}
	}
	return xs, false
}

func patchProduct(xs []domain.Product, id string, p ProductPatch) ([]domain.Product, bool) {
	for i := range xs {
		if xs[i].ID == id {
			next := make([]domain.Product, len(xs))
			copy(next, xs)
			next[i] = p.apply(next[i])
			return next, true
		}
	}
	return xs, false
}

func patchShipment(xs []domain.Shipment, id string, p ShipmentPatch) ([]domain.Shipment, bool) {
	for i := range xs {
		if xs[i].ID == id {
			next := make([]domain.Shipment, len(xs))
			copy(next, xs)
			next[i] = p.apply(next[i])
			return next, true
		}
	}
	return xs, false
}

func patchPayment(xs []domain.Payment, id string, p PaymentPatch) ([]domain.Payment, bool) {
	for i := range xs {
		if xs[i].ID == id {
			next := make([]domain.Payment, len(xs))
			copy(next, xs)
			next[i] = p.apply(next[i])
			return next, true
		}
	}
	return xs, false
}

// Persister receives each post-dispatch snapshot. Implementations must be
// best-effort: a failed write is their problem to log, not the caller's.
type Persister interface {
	Save(domain.AppState)
}

// Store is the single writer over AppState. Construct one at process
// start and hand the reference to every consumer; there is no package
// level singleton.
type Store struct {
	mu      sync.Mutex
	state   domain.AppState
	persist Persister
	logger  *log.Logger
}

// New builds a store seeded with initial state. persist may be nil for a
// purely in-memory store.
func New(initial domain.AppState, persist Persister) *Store {
	return &Store{state: initial, persist: persist}
}

func (st *Store) SetLogger(l *log.Logger) { st.logger = l }

// Dispatch applies one action to completion and persists the result
// best-effort. Actions are serialized; each is fully applied before the
// next begins.
func (st *Store) Dispatch(a Action) domain.AppState {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = Reduce(st.state, a)
	if st.persist != nil {
		st.persist.Save(st.state)
	}
	return st.state
}

// State returns the current snapshot. Entities are immutable by
// convention: callers must not mutate what they read.
func (st *Store) State() domain.AppState {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}
