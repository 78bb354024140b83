package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tripledger/internal/core"
	"tripledger/internal/ledger"
	"tripledger/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors onto HTTP statuses: referential
// misses are 404, validation failures 422, anything else 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrTripNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyItem),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidTime),
		errors.Is(err, core.ErrUnknownCurrency),
		errors.Is(err, core.ErrUnknownMember):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "url", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

type tripRequest struct {
	Name      string `json:"name"`
	Location  string `json:"location"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Icon      string `json:"icon"`
}

type memberRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type activityRequest struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	StartTime string `json:"startTime"`
	Duration  string `json:"duration"`
	Note      string `json:"note"`
	Icon      string `json:"icon"`
	Link      string `json:"link"`
}

func (req activityRequest) activity() core.Activity {
	return core.Activity{
		Name:      req.Name,
		StartTime: req.StartTime,
		Duration:  req.Duration,
		Note:      req.Note,
		Icon:      core.Icon(req.Icon),
		Link:      req.Link,
	}
}

type reorderRequest struct {
	Date       string   `json:"date"`
	OrderedIDs []string `json:"orderedIds"`
}

type expenseRequest struct {
	Item     string             `json:"item"`
	Amount   float64            `json:"amount"`
	Currency string             `json:"currency"`
	PayerID  string             `json:"payerId"`
	Selected []string           `json:"selected"`
	Manual   map[string]float64 `json:"manual"`
}

func (req expenseRequest) input() (services.ExpenseInput, error) {
	currency, err := core.ParseCurrency(req.Currency)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	return services.ExpenseInput{
		Item:     req.Item,
		Amount:   req.Amount,
		Currency: currency,
		PayerID:  req.PayerID,
		Selected: req.Selected,
		Manual:   req.Manual,
	}, nil
}

type todoRequest struct {
	Text string `json:"text"`
}

type profileResponse struct {
	Name         string        `json:"name"`
	Avatar       string        `json:"avatar"`
	LastCurrency core.Currency `json:"lastCurrency"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p := s.svc.Profile(r.Context())
	writeJSON(w, http.StatusOK, profileResponse{
		Name:         p.Name,
		Avatar:       p.Avatar,
		LastCurrency: s.svc.LastCurrency(r.Context()),
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.UpdateProfile(r.Context(), core.UserProfile{Name: req.Name, Avatar: req.Avatar}); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.handleGetProfile(w, r)
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListTrips(r.Context()))
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if !decodeBody(w, r, &req) {
		return
	}
	trip, err := s.svc.CreateTrip(r.Context(), req.Name, req.Location, req.StartDate, req.EndDate, core.Icon(req.Icon))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.svc.GetTrip(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) handleUpdateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if !decodeBody(w, r, &req) {
		return
	}
	trip, err := s.svc.UpdateTrip(r.Context(), r.PathValue("id"), req.Name, req.Location, req.StartDate, req.EndDate, core.Icon(req.Icon))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTrip(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTripDates(w http.ResponseWriter, r *http.Request) {
	trip, err := s.svc.GetTrip(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip.DateRange())
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	trip, err := s.svc.AddMember(r.Context(), r.PathValue("id"), req.Name, req.Avatar)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (s *Server) handleAddActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	trip, err := s.svc.AddActivity(r.Context(), r.PathValue("id"), req.Date, req.activity())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (s *Server) handleEditActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	trip, err := s.svc.EditActivity(r.Context(), r.PathValue("id"), req.Date, r.PathValue("aid"), req.activity())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	trip, err := s.svc.DeleteActivity(r.Context(), r.PathValue("id"), date, r.PathValue("aid"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) handleReorderActivities(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	trip, err := s.svc.ReorderActivities(r.Context(), r.PathValue("id"), req.Date, req.OrderedIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	input, err := req.input()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	trip, err := s.svc.AddExpense(r.Context(), r.PathValue("id"), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	input, err := req.input()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	trip, err := s.svc.EditExpense(r.Context(), r.PathValue("id"), r.PathValue("eid"), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	trip, err := s.svc.DeleteExpense(r.Context(), r.PathValue("id"), r.PathValue("eid"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) handleGroupedExpenses(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.GroupedExpenses(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleExpenseStats(w http.ResponseWriter, r *http.Request) {
	member := r.URL.Query().Get("member")
	if member == "" {
		member = ledger.AllMembers
	}

	display := core.BaseCurrency
	if v := r.URL.Query().Get("currency"); v != "" {
		c, err := core.ParseCurrency(v)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		display = c
	}

	stats, err := s.svc.Stats(r.Context(), r.PathValue("id"), member, display)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	transfers, err := s.svc.Settlement(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transfers)
}

func (s *Server) handleAddTodo(w http.ResponseWriter, r *http.Request) {
	var req todoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	trip, err := s.svc.AddTodo(r.Context(), r.PathValue("id"), req.Text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (s *Server) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	trip, err := s.svc.ToggleTodo(r.Context(), r.PathValue("id"), r.PathValue("tid"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	trip, err := s.svc.DeleteTodo(r.Context(), r.PathValue("id"), r.PathValue("tid"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse(core.DateLayout, date); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "date must be YYYY-MM-DD")
		return
	}
	forecast, err := s.svc.WeatherFor(r.Context(), r.PathValue("id"), date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}
