// Package services orchestrates the trip aggregate: every mutation goes
// through TripService, which applies the pure core operations, persists
// the result and notifies the event bus. The collection is loaded once at
// start and written back on every change.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripledger/internal/advisor"
	"tripledger/internal/amqp"
	"tripledger/internal/cache"
	"tripledger/internal/core"
	"tripledger/internal/itinerary"
	"tripledger/internal/ledger"
	"tripledger/internal/settle"
)

// TripStore is the persistence sidecar: load at start, save on change.
type TripStore interface {
	ListTrips(ctx context.Context) ([]core.Trip, error)
	SaveTrip(ctx context.Context, t core.Trip) error
	DeleteTrip(ctx context.Context, id string) error
	LoadProfile(ctx context.Context) (core.UserProfile, error)
	SaveProfile(ctx context.Context, p core.UserProfile) error
	LoadLastCurrency(ctx context.Context) (core.Currency, error)
	SaveLastCurrency(ctx context.Context, c core.Currency) error
}

// EventPublisher notifies downstream consumers that a trip changed.
type EventPublisher interface {
	PublishTripEvent(ctx context.Context, tripID, event string) error
}

// ExpenseInput carries the user-facing fields of an expense write. Split
// semantics follow the ledger: members in Manual get that value
// verbatim, the rest of Selected divide the remainder equally.
type ExpenseInput struct {
	Item     string
	Amount   float64
	Currency core.Currency
	PayerID  string
	Selected []string
	Manual   map[string]float64
}

type TripService struct {
	mu       sync.Mutex
	trips    map[string]core.Trip
	order    []string // trip ids in creation order
	profile  core.UserProfile
	inflight map[string]chan struct{} // weather fetches in progress, keyed by tripID/date

	store         TripStore
	weather       advisor.WeatherAdvisor
	categorizer   advisor.Categorizer
	events        EventPublisher
	categoryCache *cache.LRU[core.Category]
}

// NewTripService loads the stored collection and profile. A nil events
// publisher disables event publishing.
func NewTripService(ctx context.Context, store TripStore, weather advisor.WeatherAdvisor, categorizer advisor.Categorizer, events EventPublisher, cacheSize int, cacheTTL time.Duration) (*TripService, error) {
	trips, err := store.ListTrips(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trips: %w", err)
	}
	profile, err := store.LoadProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	s := &TripService{
		trips:         make(map[string]core.Trip, len(trips)),
		profile:       profile,
		inflight:      make(map[string]chan struct{}),
		store:         store,
		weather:       weather,
		categorizer:   categorizer,
		events:        events,
		categoryCache: cache.NewLRU[core.Category](cacheSize, cacheTTL),
	}
	for _, t := range trips {
		s.trips[t.ID] = t
		s.order = append(s.order, t.ID)
	}
	return s, nil
}

// ListTrips returns the collection in creation order. Returned values
// are copies; mutating them does not touch the service state.
func (s *TripService) ListTrips(ctx context.Context) []core.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Trip, 0, len(s.order))
	for _, id := range s.order {
		if t, ok := s.trips[id]; ok {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (s *TripService) GetTrip(ctx context.Context, id string) (core.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trips[id]
	if !ok {
		return core.Trip{}, core.ErrTripNotFound
	}
	return t.Clone(), nil
}

func (s *TripService) CreateTrip(ctx context.Context, name, location, startDate, endDate string, icon core.Icon) (core.Trip, error) {
	if name == "" {
		return core.Trip{}, fmt.Errorf("create trip: %w", core.ErrEmptyName)
	}

	s.mu.Lock()
	t := core.NewTrip(uuid.NewString(), name, location, startDate, endDate, icon, s.profile)
	s.trips[t.ID] = t
	s.order = append(s.order, t.ID)
	s.mu.Unlock()

	s.persist(ctx, t)
	return t.Clone(), nil
}

// UpdateTrip replaces the trip's metadata, leaving members, itinerary,
// expenses, todos and cached weather untouched.
func (s *TripService) UpdateTrip(ctx context.Context, id, name, location, startDate, endDate string, icon core.Icon) (core.Trip, error) {
	if name == "" {
		return core.Trip{}, fmt.Errorf("update trip: %w", core.ErrEmptyName)
	}
	return s.mutate(ctx, id, func(t core.Trip) (core.Trip, error) {
		out := t.Clone()
		out.Name = name
		out.Location = location
		out.StartDate = startDate
		out.EndDate = endDate
		out.Icon = core.NormalizeIcon(string(icon))
		return out, nil
	})
}

// DeleteTrip removes the trip irreversibly; itinerary, expenses, todos
// and weather go with it.
func (s *TripService) DeleteTrip(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.trips[id]; !ok {
		s.mu.Unlock()
		return core.ErrTripNotFound
	}
	delete(s.trips, id)
	for i, tid := range s.order {
		if tid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if err := s.store.DeleteTrip(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to delete trip from store", "trip_id", id, "error", err)
	}
	s.publish(ctx, id, amqp.EventTripDeleted)
	return nil
}

func (s *TripService) AddMember(ctx context.Context, tripID, name, avatar string) (core.Trip, error) {
	m := core.Member{ID: uuid.NewString(), Name: name, Avatar: avatar}
	if err := m.Validate(); err != nil {
		return core.Trip{}, fmt.Errorf("add member: %w", err)
	}
	return s.mutate(ctx, tripID, func(t core.Trip) (core.Trip, error) {
		out := t.Clone()
		out.Members = append(out.Members, m)
		return out, nil
	})
}

func (s *TripService) AddActivity(ctx context.Context, tripID, date string, a core.Activity) (core.Trip, error) {
	a.ID = uuid.NewString()
	return s.mutate(ctx, tripID, func(t core.Trip) (core.Trip, error) {
		return itinerary.Add(t, date, a)
	})
}

func (s *TripService) EditActivity(ctx context.Context, tripID, date, activityID string, a core.Activity) (core.Trip, error) {
	return s.mutate(ctx, tripID, func(t core.Trip) (core.Trip, error) {
		return itinerary.Edit(t, date, activityID, a)
	})
}

func (s *TripService) DeleteActivity(ctx context.Context, tripID, date, activityID string) (core.Trip, error) {
	return s.mutate(ctx, tripID, func(t core.Trip) (core.Trip, error) {
		return itinerary.Delete(t, date, activityID), nil
	})
}

func (s *TripService) ReorderActivities(ctx context.Context, tripID, date string, orderedIDs []string) (core.Trip, error) {
	return s.mutate(ctx, tripID, func(t core.Trip) (core.Trip, error) {
		return itinerary.ReorderByIDs(t, date, orderedIDs), nil
	})
}

// AddExpense validates, categorizes and records a new expense. The
// categorizer is awaited synchronously; a failure maps to Other so the
// flow always completes. The expense currency becomes the last-used
// preference.
func (s *TripService) AddExpense(ctx context.Context, tripID string, input ExpenseInput) (core.Trip, error) {
	e := core.Expense{
		ID:           uuid.NewString(),
		PayerID:      input.PayerID,
		Amount:       input.Amount,
		Currency:     input.Currency,
		Item:         input.Item,
		Date:         time.Now(),
		SplitDetails: ledger.ComputeSplit(input.Amount, input.Selected, input.Manual),
	}
	if err := e.Validate(); err != nil {
		return core.Trip{}, fmt.Errorf("add expense: %w", err)
	}

	e.Category = s.categorize(ctx, input.Item)

	out, err := s.mutate(ctx, tripID, func(t core.Trip) (core.Trip, error) {
		return ledger.Add(t, e)
	})
	if err != nil {
		return core.Trip{}, err
	}

	if err := s.store.SaveLastCurrency(ctx, input.Currency); err != nil {
		slog.ErrorContext(ctx, "Failed to save currency preference", "error", err)
	}
	return out, nil
}

// EditExpense replaces the editable fields. The stored split is treated
// as pre-filled manual values by the caller; category stays whatever the
// categorizer answered at creation.
func (s *TripService) EditExpense(ctx context.Context, tripID, expenseID string, input ExpenseInput) (core.Trip, error) {
	upd := core.Expense{
		PayerID:      input.PayerID,
		Amount:       input.Amount,
		Currency:     input.Currency,
		Item:         input.Item,
		SplitDetails: ledger.ComputeSplit(input.Amount, input.Selected, input.Manual),
	}
	return s.mutate(ctx, tripID, func(t core.Trip) (core.Trip, error) {
		return ledger.Edit(t, expenseID, upd)
	})
}

func (s *TripService) DeleteExpense(ctx context.Context, tripID, expenseID string) (core.Trip, error) {
	return s.mutate(ctx, tripID, func(t core.Trip) (core.Trip, error) {
		return ledger.Delete(t, expenseID), nil
	})
}

func (s *TripService) AddTodo(ctx context.Context, tripID, text string) (core.Trip, error) {
	todo := core.Todo{ID: uuid.NewString(), Text: text}
	if err := todo.Validate(); err != nil {
		return core.Trip{}, fmt.Errorf("add todo: %w", err)
	}
	return s.mutate(ctx, tripID, func(t core.Trip) (core.Trip, error) {
		out := t.Clone()
		out.Todos = append(out.Todos, todo)
		return out, nil
	})
}

func (s *TripService) ToggleTodo(ctx context.Context, tripID, todoID string) (core.Trip, error) {
	return s.mutate(ctx, tripID, func(t core.Trip) (core.Trip, error) {
		out := t.Clone()
		for i := range out.Todos {
			if out.Todos[i].ID == todoID {
				out.Todos[i].Completed = !out.Todos[i].Completed
				return out, nil
			}
		}
		return t, nil
	})
}

func (s *TripService) DeleteTodo(ctx context.Context, tripID, todoID string) (core.Trip, error) {
	return s.mutate(ctx, tripID, func(t core.Trip) (core.Trip, error) {
		out := t.Clone()
		filtered := out.Todos[:0]
		for _, td := range out.Todos {
			if td.ID != todoID {
				filtered = append(filtered, td)
			}
		}
		if len(filtered) == len(out.Todos) {
			return t, nil
		}
		out.Todos = filtered
		return out, nil
	})
}

// GroupedExpenses returns the trip's expenses partitioned by day,
// newest day first.
func (s *TripService) GroupedExpenses(ctx context.Context, tripID string) ([]ledger.DateGroup, error) {
	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return ledger.GroupedByDate(t), nil
}

// Stats aggregates per-category sums for a member filter ("all" or a
// member id) in the given display currency.
func (s *TripService) Stats(ctx context.Context, tripID, memberFilter string, display core.Currency) (ledger.Stats, error) {
	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return ledger.Stats{}, err
	}
	return ledger.StatsByCategory(t, memberFilter, display), nil
}

// Settlement computes the transfer plan that zeroes all balances.
func (s *TripService) Settlement(ctx context.Context, tripID string) ([]settle.Transfer, error) {
	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return settle.Transfers(t), nil
}

// WeatherFor returns the cached forecast for the date, asking the
// advisor only when the date has no entry yet. The cache is sticky:
// fallback answers are cached too and never re-requested. Concurrent
// requests for the same date share one advisor call, and the write is
// re-checked under the lock so a late answer cannot clobber an earlier
// one.
func (s *TripService) WeatherFor(ctx context.Context, tripID, date string) (core.Forecast, error) {
	key := tripID + "/" + date

	for {
		s.mu.Lock()
		t, ok := s.trips[tripID]
		if !ok {
			s.mu.Unlock()
			return core.Forecast{}, core.ErrTripNotFound
		}
		if f, ok := t.Weather[date]; ok {
			s.mu.Unlock()
			return f, nil
		}
		wait, fetching := s.inflight[key]
		if !fetching {
			done := make(chan struct{})
			s.inflight[key] = done
			location := t.Location
			s.mu.Unlock()

			f := s.fetchForecast(ctx, location, date)

			s.mu.Lock()
			if t, ok := s.trips[tripID]; ok {
				updated := t.WithWeather(date, f)
				s.trips[tripID] = updated
				f = updated.Weather[date]
				defer s.persist(ctx, updated)
			}
			delete(s.inflight, key)
			close(done)
			s.mu.Unlock()
			return f, nil
		}
		s.mu.Unlock()

		select {
		case <-wait:
			// Leader finished; loop around and read the cache.
		case <-ctx.Done():
			return core.Forecast{}, ctx.Err()
		}
	}
}

func (s *TripService) Profile(ctx context.Context) core.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// UpdateProfile stores the new profile and propagates it into the
// reserved "me" member of every trip. The propagation is an explicit
// step, not a shared reference.
func (s *TripService) UpdateProfile(ctx context.Context, p core.UserProfile) error {
	if p.Name == "" {
		return fmt.Errorf("update profile: %w", core.ErrEmptyName)
	}

	s.mu.Lock()
	s.profile = p
	var changed []core.Trip
	for id, t := range s.trips {
		out := t.Clone()
		for i := range out.Members {
			if out.Members[i].ID == core.MemberMe {
				out.Members[i].Name = p.Name
				out.Members[i].Avatar = p.Avatar
			}
		}
		s.trips[id] = out
		changed = append(changed, out)
	}
	s.mu.Unlock()

	if err := s.store.SaveProfile(ctx, p); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	for _, t := range changed {
		s.persist(ctx, t)
	}
	return nil
}

// LastCurrency returns the persisted last-used currency preference.
func (s *TripService) LastCurrency(ctx context.Context) core.Currency {
	c, err := s.store.LoadLastCurrency(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load currency preference", "error", err)
		return core.BaseCurrency
	}
	return c
}

// mutate runs a pure transformation against the stored trip under the
// lock, stores the new value and persists it.
func (s *TripService) mutate(ctx context.Context, tripID string, fn func(core.Trip) (core.Trip, error)) (core.Trip, error) {
	s.mu.Lock()
	t, ok := s.trips[tripID]
	if !ok {
		s.mu.Unlock()
		return core.Trip{}, core.ErrTripNotFound
	}
	out, err := fn(t)
	if err != nil {
		s.mu.Unlock()
		return core.Trip{}, err
	}
	s.trips[tripID] = out
	s.mu.Unlock()

	s.persist(ctx, out)
	return out.Clone(), nil
}

// categorize answers from the memoization cache when possible; failures
// and out-of-set answers map to Other.
func (s *TripService) categorize(ctx context.Context, item string) core.Category {
	if c, ok := s.categoryCache.Get(item); ok {
		return c
	}

	c, err := s.categorizer.Categorize(ctx, item)
	if err != nil {
		slog.WarnContext(ctx, "Categorizer failed, using Other", "item", item, "error", err)
		return core.CategoryOther
	}
	c = core.NormalizeCategory(string(c))
	s.categoryCache.Set(item, c)
	return c
}

// fetchForecast asks the advisor, resolving any failure to the fixed
// fallback so the date never stays pending.
func (s *TripService) fetchForecast(ctx context.Context, location, date string) core.Forecast {
	f, err := s.weather.Forecast(ctx, location, date)
	if err != nil {
		slog.WarnContext(ctx, "Weather advisor failed, using fallback",
			"location", location, "date", date, "error", err)
		return core.FallbackForecast()
	}
	return f
}

// persist saves the trip and notifies the bus; both are log-and-continue
// so a storage or broker hiccup never fails the user-facing operation
// that already applied in memory.
func (s *TripService) persist(ctx context.Context, t core.Trip) {
	if err := s.store.SaveTrip(ctx, t); err != nil {
		slog.ErrorContext(ctx, "Failed to persist trip", "trip_id", t.ID, "error", err)
	}
	s.publish(ctx, t.ID, amqp.EventTripUpserted)
}

func (s *TripService) publish(ctx context.Context, tripID, event string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTripEvent(ctx, tripID, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish trip event",
			"trip_id", tripID, "event", event, "error", err)
	}
}
