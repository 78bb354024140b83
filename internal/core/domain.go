package core

import (
	"errors"
	"strings"
	"time"
)

// MemberMe is the reserved member id that mirrors the process-wide user
// profile. It is seeded into every trip at creation and kept in sync when
// the profile changes.
const MemberMe = "me"

// DateLayout is the calendar-date key format used for itinerary buckets,
// trip boundaries and the weather cache.
const DateLayout = "2006-01-02"

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryAccommodation Category = "Accommodation"
	CategoryShopping      Category = "Shopping"
	CategoryOther         Category = "Other"
)

type (
	// Category is the closed expense category set. Anything a collaborator
	// returns outside this set normalizes to CategoryOther at the boundary.
	Category string

	// Icon is the closed activity/trip icon set.
	Icon string

	Member struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}

	Activity struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		StartTime string `json:"startTime"` // zero-padded 24h HH:MM
		Duration  string `json:"duration"`  // free-form, e.g. "2h"
		Note      string `json:"note"`
		Icon      Icon   `json:"icon"`
		Link      string `json:"link,omitempty"`
	}

	Todo struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		Completed bool   `json:"completed"`
	}

	Expense struct {
		ID           string             `json:"id"`
		PayerID      string             `json:"payerId"`
		Amount       float64            `json:"amount"`
		Currency     Currency           `json:"currency"`
		Item         string             `json:"item"`
		Date         time.Time          `json:"date"`
		Category     Category           `json:"category"`
		SplitDetails map[string]float64 `json:"splitDetails"` // memberID -> owed, in the expense's currency
	}

	// Forecast is the cached answer of the weather advisor for one date.
	Forecast struct {
		TempMin   float64 `json:"tempMin"`
		TempMax   float64 `json:"tempMax"`
		RainProb  int     `json:"rainProb"`
		Condition string  `json:"condition"`
		Advice    string  `json:"advice"`
	}

	Trip struct {
		ID        string                `json:"id"`
		Name      string                `json:"name"`
		Location  string                `json:"location"`
		StartDate string                `json:"startDate"` // YYYY-MM-DD
		EndDate   string                `json:"endDate"`   // YYYY-MM-DD
		Icon      Icon                  `json:"icon"`
		Members   []Member              `json:"members"`
		Itinerary map[string][]Activity `json:"itinerary"` // keyed by YYYY-MM-DD
		Expenses  []Expense             `json:"expenses"`
		Todos     []Todo                `json:"todos"`
		Weather   map[string]Forecast   `json:"weather"` // keyed by YYYY-MM-DD, sticky
	}

	UserProfile struct {
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyItem       = errors.New("empty item description")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidTime     = errors.New("invalid start time")
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrUnknownMember   = errors.New("unknown member")
	ErrTripNotFound    = errors.New("trip not found")
)

var categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryAccommodation,
	CategoryShopping,
	CategoryOther,
}

// Categories returns the closed category set in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// NormalizeCategory maps an arbitrary collaborator answer into the closed
// set, falling back to CategoryOther.
func NormalizeCategory(s string) Category {
	c := Category(strings.TrimSpace(s))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (a Activity) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !ValidStartTime(a.StartTime) {
		return ErrInvalidTime
	}
	return nil
}

// ValidStartTime reports whether s is a zero-padded 24h HH:MM string.
// Lexicographic comparison of such strings matches chronological order,
// which the itinerary sort relies on.
func ValidStartTime(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for _, i := range [4]int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	hh := int(s[0]-'0')*10 + int(s[1]-'0')
	mm := int(s[3]-'0')*10 + int(s[4]-'0')
	return hh < 24 && mm < 60
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Item) == "" {
		return ErrEmptyItem
	}
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !e.Currency.Valid() {
		return ErrUnknownCurrency
	}
	if strings.TrimSpace(e.PayerID) == "" {
		return ErrUnknownMember
	}
	return nil
}

func (t Todo) Validate() error {
	if strings.TrimSpace(t.Text) == "" {
		return ErrEmptyItem
	}
	return nil
}

// FallbackForecast is the well-defined answer used whenever the weather
// advisor fails. It is cached like a real answer so a failed date does
// not stay pending forever.
func FallbackForecast() Forecast {
	return Forecast{
		TempMin:   15,
		TempMax:   22,
		RainProb:  20,
		Condition: "晴時多雲",
		Advice:    "無法取得天氣資訊，請攜帶雨具備用。",
	}
}
