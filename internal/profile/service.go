package profile

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"example.com/networth-optimizer/web/internal/models"
	"example.com/networth-optimizer/web/internal/repository"
)

type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (models.FinancialProfile, error)
	Save(ctx context.Context, userID uuid.UUID, profile models.FinancialProfile) error
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	MonthlyBudget    *float64              `json:"monthlyBudget,omitempty" validate:"omitempty,gte=0"`
	CurrentSavings   *float64              `json:"currentSavings,omitempty" validate:"omitempty,gte=0"`
	TotalDebt        *float64              `json:"totalDebt,omitempty" validate:"omitempty,gte=0"`
	HasEmergencyFund *bool                 `json:"hasEmergencyFund,omitempty"`
	RiskTolerance    *models.RiskTolerance `json:"riskTolerance,omitempty" validate:"omitempty,oneof=conservative moderate aggressive"`
	FinancialGoal    *models.FinancialGoal `json:"financialGoal,omitempty" validate:"omitempty,oneof=wealth_building income_generation capital_preservation debt_freedom"`
	TimeHorizon      *int                  `json:"timeHorizon,omitempty" validate:"omitempty,gt=0,lte=100"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.MonthlyBudget == nil && p.CurrentSavings == nil && p.TotalDebt == nil &&
		p.HasEmergencyFund == nil && p.RiskTolerance == nil && p.FinancialGoal == nil && p.TimeHorizon == nil
}

// Defaults возвращает профиль по умолчанию.
func Defaults() models.FinancialProfile {
	return models.FinancialProfile{
		MonthlyBudget:    500,
		CurrentSavings:   5000,
		TotalDebt:        0,
		HasEmergencyFund: true,
		RiskTolerance:    models.RiskModerate,
		FinancialGoal:    models.GoalWealthBuilding,
		TimeHorizon:      10,
	}
}

// Service loads and persists the per-user financial profile. Reads never
// fail: any store problem yields the defaults.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService создает сервис профиля.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Load возвращает нормализованный профиль или значения по умолчанию.
func (s *Service) Load(ctx context.Context, userID uuid.UUID) models.FinancialProfile {
	stored, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("load profile failed, using defaults",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()),
			)
		}
		return Defaults()
	}

	return Normalize(stored)
}

// Update применяет частичное изменение и сохраняет профиль.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, patch Patch) (models.FinancialProfile, error) {
	current := s.Load(ctx, userID)
	if patch.Empty() {
		return current, nil
	}

	next := Normalize(Apply(current, patch))
	if next == current {
		return current, nil
	}

	if err := s.repo.Save(ctx, userID, next); err != nil {
		s.logger.Warn("save profile failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return current, err
	}

	return next, nil
}

// SyncDashboard переносит бюджет и сумму долга с дашборда. Бюджет меняется
// только если он больше нуля.
func (s *Service) SyncDashboard(ctx context.Context, userID uuid.UUID, monthlyBudget float64, loans []models.Loan) (models.FinancialProfile, error) {
	totalDebt := TotalDebt(loans)
	patch := Patch{TotalDebt: &totalDebt}
	if isFinite(monthlyBudget) && monthlyBudget > 0 {
		patch.MonthlyBudget = &monthlyBudget
	}
	return s.Update(ctx, userID, patch)
}

// TotalDebt суммирует основной долг по кредитам.
func TotalDebt(loans []models.Loan) float64 {
	total := 0.0
	for _, loan := range loans {
		if isFinite(loan.Principal) {
			total += loan.Principal
		}
	}
	return total
}

// Apply накладывает patch на профиль без нормализации.
func Apply(profile models.FinancialProfile, patch Patch) models.FinancialProfile {
	if patch.MonthlyBudget != nil {
		profile.MonthlyBudget = *patch.MonthlyBudget
	}
	if patch.CurrentSavings != nil {
		profile.CurrentSavings = *patch.CurrentSavings
	}
	if patch.TotalDebt != nil {
		profile.TotalDebt = *patch.TotalDebt
	}
	if patch.HasEmergencyFund != nil {
		profile.HasEmergencyFund = *patch.HasEmergencyFund
	}
	if patch.RiskTolerance != nil {
		profile.RiskTolerance = *patch.RiskTolerance
	}
	if patch.FinancialGoal != nil {
		profile.FinancialGoal = *patch.FinancialGoal
	}
	if patch.TimeHorizon != nil {
		profile.TimeHorizon = *patch.TimeHorizon
	}
	return profile
}

// Normalize заменяет нечисловые значения и неизвестные варианты enum
// значениями по умолчанию.
func Normalize(profile models.FinancialProfile) models.FinancialProfile {
	defaults := Defaults()

	if !isFinite(profile.MonthlyBudget) || profile.MonthlyBudget < 0 {
		profile.MonthlyBudget = defaults.MonthlyBudget
	}
	if !isFinite(profile.CurrentSavings) || profile.CurrentSavings < 0 {
		profile.CurrentSavings = defaults.CurrentSavings
	}
	if !isFinite(profile.TotalDebt) || profile.TotalDebt < 0 {
		profile.TotalDebt = defaults.TotalDebt
	}
	if !models.IsRiskTolerance(profile.RiskTolerance) {
		profile.RiskTolerance = defaults.RiskTolerance
	}
	if !models.IsFinancialGoal(profile.FinancialGoal) {
		profile.FinancialGoal = defaults.FinancialGoal
	}
	if profile.TimeHorizon <= 0 {
		profile.TimeHorizon = defaults.TimeHorizon
	}

	return profile
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
