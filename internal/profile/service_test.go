package profile

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"example.com/networth-optimizer/web/internal/models"
	"example.com/networth-optimizer/web/internal/repository"
)

type failingRepository struct {
	saves int
}

func (r *failingRepository) Get(ctx context.Context, userID uuid.UUID) (models.FinancialProfile, error) {
	return models.FinancialProfile{}, errors.New("storage unavailable")
}

func (r *failingRepository) Save(ctx context.Context, userID uuid.UUID, profile models.FinancialProfile) error {
	r.saves++
	return errors.New("storage unavailable")
}

type rawRepository struct {
	profile models.FinancialProfile
	saves   int
}

func (r *rawRepository) Get(ctx context.Context, userID uuid.UUID) (models.FinancialProfile, error) {
	return r.profile, nil
}

func (r *rawRepository) Save(ctx context.Context, userID uuid.UUID, profile models.FinancialProfile) error {
	r.saves++
	r.profile = profile
	return nil
}

// TestLoadRoundTrip проверяет, что сохраненный профиль читается без изменений.
func TestLoadRoundTrip(t *testing.T) {
	service := NewService(repository.NewMemoryProfileRepository(), nil)
	userID := uuid.New()

	budget := 800.0
	risk := models.RiskAggressive
	horizon := 30
	saved, err := service.Update(context.Background(), userID, Patch{MonthlyBudget: &budget, RiskTolerance: &risk, TimeHorizon: &horizon})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	loaded := service.Load(context.Background(), userID)
	if loaded != saved {
		t.Fatalf("expected %+v, got %+v", saved, loaded)
	}
	if loaded.CurrentSavings != Defaults().CurrentSavings {
		t.Fatalf("expected untouched fields to keep defaults, got %+v", loaded)
	}
}

// TestLoadDefaultsOnFailure проверяет возврат значений по умолчанию при ошибке хранилища.
func TestLoadDefaultsOnFailure(t *testing.T) {
	service := NewService(&failingRepository{}, nil)

	if got := service.Load(context.Background(), uuid.New()); got != Defaults() {
		t.Fatalf("expected defaults, got %+v", got)
	}

	if got := NewService(repository.NewMemoryProfileRepository(), nil).Load(context.Background(), uuid.New()); got != Defaults() {
		t.Fatalf("expected defaults for missing profile, got %+v", got)
	}
}

// TestUpdateSurfacesSaveError проверяет, что ошибка записи возвращается вызывающему.
func TestUpdateSurfacesSaveError(t *testing.T) {
	repo := &failingRepository{}
	service := NewService(repo, nil)

	budget := 900.0
	got, err := service.Update(context.Background(), uuid.New(), Patch{MonthlyBudget: &budget})
	if err == nil {
		t.Fatal("expected save error")
	}
	if got != Defaults() {
		t.Fatalf("expected previous profile on failure, got %+v", got)
	}
	if repo.saves != 1 {
		t.Fatalf("expected one save attempt, got %d", repo.saves)
	}
}

// TestUpdateSkipsUnchanged проверяет, что неизменный профиль не перезаписывается.
func TestUpdateSkipsUnchanged(t *testing.T) {
	repo := &rawRepository{profile: Defaults()}
	service := NewService(repo, nil)

	budget := Defaults().MonthlyBudget
	if _, err := service.Update(context.Background(), uuid.New(), Patch{MonthlyBudget: &budget}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := service.Update(context.Background(), uuid.New(), Patch{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.saves != 0 {
		t.Fatalf("expected no saves, got %d", repo.saves)
	}
}

// TestNormalizeMalformedProfile проверяет исправление поврежденных данных.
func TestNormalizeMalformedProfile(t *testing.T) {
	repo := &rawRepository{profile: models.FinancialProfile{
		MonthlyBudget:    math.NaN(),
		CurrentSavings:   math.Inf(1),
		TotalDebt:        -5,
		HasEmergencyFund: false,
		RiskTolerance:    "yolo",
		FinancialGoal:    "",
		TimeHorizon:      0,
	}}

	got := NewService(repo, nil).Load(context.Background(), uuid.New())
	want := Defaults()
	want.HasEmergencyFund = false

	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

// TestSyncDashboard проверяет перенос бюджета и суммы долга с дашборда.
func TestSyncDashboard(t *testing.T) {
	service := NewService(repository.NewMemoryProfileRepository(), nil)
	userID := uuid.New()
	loans := []models.Loan{{Principal: 12000}, {Principal: 3500.5}}

	got, err := service.SyncDashboard(context.Background(), userID, 650, loans)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.MonthlyBudget != 650 || got.TotalDebt != 15500.5 {
		t.Fatalf("unexpected profile %+v", got)
	}

	got, err = service.SyncDashboard(context.Background(), userID, 0, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.MonthlyBudget != 650 {
		t.Fatalf("expected budget to stay 650 for non-positive input, got %v", got.MonthlyBudget)
	}
	if got.TotalDebt != 0 {
		t.Fatalf("expected total debt 0 without loans, got %v", got.TotalDebt)
	}
}
