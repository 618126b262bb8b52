package web

import (
	"context"

	"github.com/willemschots/ecocredit/internal/auth"
	"github.com/willemschots/ecocredit/internal/ledger"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

func (s *Server) signup(ctx context.Context, req signupRequest) (authResponse, error) {
	reg, err := auth.ParseRegistration(req.Username, req.Email, req.Password, req.FullName)
	if err != nil {
		return authResponse{}, err
	}

	a, err := s.deps.AuthService.Register(ctx, reg)
	if err != nil {
		return authResponse{}, err
	}

	return newAuthResponse(a), nil
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) signin(ctx context.Context, req signinRequest) (authResponse, error) {
	creds, err := auth.ParseCredentials(req.Email, req.Password)
	if err != nil {
		return authResponse{}, err
	}

	a, err := s.deps.AuthService.Authenticate(ctx, creds)
	if err != nil {
		return authResponse{}, err
	}

	return newAuthResponse(a), nil
}

type billingRequest struct {
	EnergyType    string  `json:"energy_type"`
	UnitsConsumed float64 `json:"units_consumed"`
	Date          string  `json:"date"`
}

type billingResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    billingEntry `json:"data"`
}

func (s *Server) uploadBilling(ctx context.Context, req billingRequest) (billingResponse, error) {
	user, _ := mustUserFromContext(ctx)

	b, err := ledger.ParseBilling(user.ID, req.EnergyType, req.UnitsConsumed, req.Date)
	if err != nil {
		return billingResponse{}, err
	}

	entry, err := s.deps.LedgerService.PostBilling(ctx, b)
	if err != nil {
		return billingResponse{}, err
	}

	return billingResponse{
		Success: true,
		Message: "Billing data submitted successfully",
		Data:    newBillingEntry(entry),
	}, nil
}

type dataResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func (s *Server) billingHistory(ctx context.Context) (dataResponse[[]billingEntry], error) {
	user, _ := mustUserFromContext(ctx)

	entries, err := s.deps.LedgerService.ListBilling(ctx, user.ID)
	if err != nil {
		return dataResponse[[]billingEntry]{}, err
	}

	return dataResponse[[]billingEntry]{
		Success: true,
		Data:    newBillingEntries(entries),
	}, nil
}

func (s *Server) dashboard(ctx context.Context) (dataResponse[dashboardResponse], error) {
	user, _ := mustUserFromContext(ctx)

	d, err := s.deps.StatsService.Dashboard(ctx, user.ID)
	if err != nil {
		return dataResponse[dashboardResponse]{}, err
	}

	return dataResponse[dashboardResponse]{
		Success: true,
		Data:    newDashboardResponse(d),
	}, nil
}

func (s *Server) leaderboard(ctx context.Context) (leaderboardResponse, error) {
	lb, err := s.deps.StatsService.Leaderboard(ctx)
	if err != nil {
		return leaderboardResponse{}, err
	}

	return newLeaderboardResponse(lb), nil
}

type recyclingRequest struct {
	UserID    int     `json:"userId"`
	WasteType string  `json:"wasteType"`
	Quantity  float64 `json:"quantity"`
}

type recyclingResponse struct {
	Success bool `json:"success"`
	Credits int  `json:"credits"`
}

func (s *Server) submitRecycling(ctx context.Context, req recyclingRequest) (recyclingResponse, error) {
	r, err := ledger.ParseRecycling(req.UserID, req.WasteType, req.Quantity)
	if err != nil {
		return recyclingResponse{}, err
	}

	entry, err := s.deps.LedgerService.PostRecycling(ctx, r)
	if err != nil {
		return recyclingResponse{}, err
	}

	return recyclingResponse{
		Success: true,
		Credits: entry.Credits,
	}, nil
}

type userIDRequest struct {
	UserID int `schema:"userID,required"`
}

type recyclingDataResponse struct {
	Total   int              `json:"total"`
	History []recyclingEntry `json:"history"`
}

func (s *Server) recyclingData(ctx context.Context, req userIDRequest) (recyclingDataResponse, error) {
	entries, err := s.deps.LedgerService.ListRecycling(ctx, req.UserID)
	if err != nil {
		return recyclingDataResponse{}, err
	}

	return recyclingDataResponse{
		Total:   ledger.SumRecyclingCredits(entries),
		History: newRecyclingEntries(entries),
	}, nil
}

func (s *Server) monthlyAnalytics(ctx context.Context, req userIDRequest) (analyticsResponse, error) {
	a, err := s.deps.StatsService.MonthlyAnalytics(ctx, req.UserID)
	if err != nil {
		return analyticsResponse{}, err
	}

	return newAnalyticsResponse(a), nil
}
