package core

import "time"

// NewTrip builds an empty trip seeded with the reserved "me" member from
// the user profile.
func NewTrip(id, name, location, startDate, endDate string, icon Icon, profile UserProfile) Trip {
	return Trip{
		ID:        id,
		Name:      name,
		Location:  location,
		StartDate: startDate,
		EndDate:   endDate,
		Icon:      NormalizeIcon(string(icon)),
		Members:   []Member{{ID: MemberMe, Name: profile.Name, Avatar: profile.Avatar}},
		Itinerary: map[string][]Activity{},
		Expenses:  []Expense{},
		Todos:     []Todo{},
		Weather:   map[string]Forecast{},
	}
}

// Clone returns a deep copy of the trip. Every mutating operation in the
// engine clones first and returns the copy, so a caller holding a prior
// Trip value never observes a change.
func (t Trip) Clone() Trip {
	out := t

	out.Members = make([]Member, len(t.Members))
	copy(out.Members, t.Members)

	out.Itinerary = make(map[string][]Activity, len(t.Itinerary))
	for date, bucket := range t.Itinerary {
		cp := make([]Activity, len(bucket))
		copy(cp, bucket)
		out.Itinerary[date] = cp
	}

	out.Expenses = make([]Expense, len(t.Expenses))
	for i, e := range t.Expenses {
		split := make(map[string]float64, len(e.SplitDetails))
		for id, v := range e.SplitDetails {
			split[id] = v
		}
		e.SplitDetails = split
		out.Expenses[i] = e
	}

	out.Todos = make([]Todo, len(t.Todos))
	copy(out.Todos, t.Todos)

	out.Weather = make(map[string]Forecast, len(t.Weather))
	for date, f := range t.Weather {
		out.Weather[date] = f
	}

	return out
}

// DateRange returns the inclusive day range between StartDate and EndDate
// as YYYY-MM-DD keys. If EndDate precedes StartDate the range degrades to
// the start day alone; if either date is malformed the range is a single
// synthetic day so callers always have at least one bucket to work with.
func (t Trip) DateRange() []string {
	start, err := time.Parse(DateLayout, t.StartDate)
	if err != nil {
		return []string{time.Now().Format(DateLayout)}
	}
	end, err := time.Parse(DateLayout, t.EndDate)
	if err != nil || end.Before(start) {
		return []string{t.StartDate}
	}

	days := int(end.Sub(start).Hours()/24) + 1
	out := make([]string, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateLayout))
	}
	return out
}

// Member looks up a member by id.
func (t Trip) Member(id string) (Member, bool) {
	for _, m := range t.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// HasMember reports whether id belongs to the trip's roster.
func (t Trip) HasMember(id string) bool {
	_, ok := t.Member(id)
	return ok
}

// HasWeather reports whether date already has a cached forecast. Cached
// fallback answers count: the cache is sticky and never re-requested.
func (t Trip) HasWeather(date string) bool {
	_, ok := t.Weather[date]
	return ok
}

// WithWeather returns a copy of the trip with the forecast cached for
// date. When the date is already populated the trip is returned unchanged
// so a slow concurrent fetch cannot overwrite an answer that arrived
// first.
func (t Trip) WithWeather(date string, f Forecast) Trip {
	if t.HasWeather(date) {
		return t
	}
	out := t.Clone()
	out.Weather[date] = f
	return out
}
