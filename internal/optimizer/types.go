package optimizer

import "encoding/json"

type LoanData struct {
	LoanName       string  `json:"loan_name"`
	Principal      float64 `json:"principal"`
	InterestRate   float64 `json:"interest_rate"`
	MinimumPayment float64 `json:"minimum_payment"`
}

type MultiLoanData struct {
	LoanType       string  `json:"loan_type"`
	LoanName       string  `json:"loan_name"`
	Principal      float64 `json:"principal"`
	InterestRate   float64 `json:"interest_rate"`
	MinimumPayment float64 `json:"minimum_payment"`
	TermMonths     *int    `json:"term_months,omitempty"`
}

type MarketAssumptions struct {
	ExpectedAnnualReturn float64 `json:"expected_annual_return"`
	Volatility           float64 `json:"volatility"`
	RiskFreeRate         float64 `json:"risk_free_rate"`
}

type OptimizationRequest struct {
	Loan                  LoanData          `json:"loan"`
	MonthlyBudget         float64           `json:"monthly_budget"`
	MonthsUntilGraduation int               `json:"months_until_graduation"`
	MarketAssumptions     MarketAssumptions `json:"market_assumptions"`
}

type MonthlyBreakdown struct {
	Month                    int     `json:"month"`
	DebtPathNetWorth         float64 `json:"debt_path_net_worth"`
	InvestPathNetWorth       float64 `json:"invest_path_net_worth"`
	DebtPathLoanBalance      float64 `json:"debt_path_loan_balance"`
	InvestPathLoanBalance    float64 `json:"invest_path_loan_balance"`
	InvestPathPortfolioValue float64 `json:"invest_path_portfolio_value"`
}

type InvestmentAllocation struct {
	Name          string  `json:"name"`
	Ticker        string  `json:"ticker"`
	Percentage    float64 `json:"percentage"`
	MonthlyAmount float64 `json:"monthly_amount"`
	Description   string  `json:"description"`
	RiskLevel     string  `json:"risk_level"`
}

// OptimizationResult is returned by /api/optimize. Only the fields the pages
// read are typed; absent optional fields stay nil.
type OptimizationResult struct {
	Recommendation        string                 `json:"recommendation"`
	NetWorthDebtPath      float64                `json:"net_worth_debt_path"`
	NetWorthInvestPath    float64                `json:"net_worth_invest_path"`
	MonthlyBreakdown      []MonthlyBreakdown     `json:"monthly_breakdown"`
	CrossoverMonth        *int                   `json:"crossover_month"`
	ConfidenceScore       float64                `json:"confidence_score"`
	InvestmentAllocations []InvestmentAllocation `json:"investment_allocations,omitempty"`
	InvestmentStrategy    *string                `json:"investment_strategy,omitempty"`
}

type MultiLoanRequest struct {
	Loans                 []MultiLoanData   `json:"loans"`
	MonthlyBudget         float64           `json:"monthly_budget"`
	MonthsUntilGraduation int               `json:"months_until_graduation"`
	MarketAssumptions     MarketAssumptions `json:"market_assumptions"`
}

type DebtPriority struct {
	LoanName                string  `json:"loan_name"`
	LoanType                string  `json:"loan_type"`
	Priority                int     `json:"priority"`
	InterestRate            float64 `json:"interest_rate"`
	RecommendedExtraPayment float64 `json:"recommended_extra_payment"`
	Reason                  string  `json:"reason"`
	GuaranteedReturn        float64 `json:"guaranteed_return"`
}

type NetWorthProjection struct {
	Current         float64 `json:"current"`
	DebtPath1yr     float64 `json:"debt_path_1yr"`
	DebtPath5yr     float64 `json:"debt_path_5yr"`
	InvestPath1yr   float64 `json:"invest_path_1yr"`
	InvestPath5yr   float64 `json:"invest_path_5yr"`
	FinalDebtPath   float64 `json:"final_debt_path"`
	FinalInvestPath float64 `json:"final_invest_path"`
}

type MultiLoanResult struct {
	OverallRecommendation    string                 `json:"overall_recommendation"`
	DebtPriorities           []DebtPriority         `json:"debt_priorities"`
	InvestmentRecommendation []InvestmentAllocation `json:"investment_recommendation,omitempty"`
	NetWorthProjection       *NetWorthProjection    `json:"net_worth_projection,omitempty"`
	Reasoning                []string               `json:"reasoning"`
	ConfidenceScore          float64                `json:"confidence_score"`
}

type PersonalizedPlanRequest struct {
	MonthlyInvestmentAmount float64 `json:"monthly_investment_amount"`
	RiskTolerance           string  `json:"risk_tolerance"`
	FinancialGoal           string  `json:"financial_goal"`
	TimeHorizonYears        int     `json:"time_horizon_years"`
	CurrentSavings          float64 `json:"current_savings"`
	HasEmergencyFund        bool    `json:"has_emergency_fund"`
}

type ETFAllocation struct {
	Ticker        string   `json:"ticker"`
	Name          string   `json:"name"`
	Percentage    float64  `json:"percentage"`
	MonthlyAmount float64  `json:"monthly_amount"`
	ExpenseRatio  *float64 `json:"expense_ratio,omitempty"`
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category,omitempty"`
}

type InvestmentPlan struct {
	PortfolioName         string          `json:"portfolio_name"`
	RiskProfile           string          `json:"risk_profile"`
	TargetAllocation      []ETFAllocation `json:"target_allocation"`
	ProjectedValue1yr     float64         `json:"projected_value_1yr"`
	ProjectedValue5yr     float64         `json:"projected_value_5yr"`
	ProjectedValue10yr    float64         `json:"projected_value_10yr"`
	ProjectedValue20yr    float64         `json:"projected_value_20yr"`
	ProjectedValue30yr    float64         `json:"projected_value_30yr"`
	ExpectedAnnualReturn  *float64        `json:"expected_annual_return,omitempty"`
	PortfolioExpenseRatio *float64        `json:"portfolio_expense_ratio,omitempty"`
	RebalancingFrequency  string          `json:"rebalancing_frequency,omitempty"`
	Reasoning             []string        `json:"reasoning"`
	NextSteps             []string        `json:"next_steps,omitempty"`
	Warnings              []string        `json:"warnings"`
}

type SimplePlanRequest struct {
	TotalPortfolioValue float64 `json:"total_portfolio_value" form:"total_portfolio_value" validate:"gte=0"`
	RiskTolerance       int     `json:"risk_tolerance" form:"risk_tolerance" validate:"gte=1,lte=10"`
	MonthlyContribution float64 `json:"monthly_contribution" form:"monthly_contribution" validate:"gte=0"`
}

type PlanRecommendation struct {
	Category          string  `json:"category"`
	Ticker            string  `json:"ticker"`
	Name              string  `json:"name"`
	AllocationPercent float64 `json:"allocation_percent"`
	DollarAmount      float64 `json:"dollar_amount"`
	ExpenseRatio      float64 `json:"expense_ratio"`
	Reason            string  `json:"reason"`
}

type MonthlyAllocation struct {
	Ticker        string  `json:"ticker"`
	Name          string  `json:"name"`
	MonthlyAmount float64 `json:"monthly_amount"`
}

type PlanProjections struct {
	ExpectedAnnualReturn float64 `json:"expected_annual_return"`
	Years                int     `json:"years"`
	CurrentValue         float64 `json:"current_value"`
	FutureValue          float64 `json:"future_value"`
	TotalGain            float64 `json:"total_gain"`
}

type SimplePlan struct {
	RiskProfile       string               `json:"risk_profile"`
	RiskTolerance     int                  `json:"risk_tolerance"`
	Allocation        map[string]float64   `json:"allocation"`
	AllocationDollars map[string]float64   `json:"allocation_dollars,omitempty"`
	Recommendations   []PlanRecommendation `json:"recommendations"`
	MonthlyAllocation []MonthlyAllocation  `json:"monthly_allocation,omitempty"`
	Advice            []string             `json:"advice,omitempty"`
	Projections       *PlanProjections     `json:"projections,omitempty"`
	NextSteps         []string             `json:"next_steps,omitempty"`
}

type AnalyzeRequest struct {
	AccessToken string `json:"access_token"`
	DaysBack    int    `json:"days_back"`
}

type HoldingsSummary struct {
	TotalValue    float64           `json:"total_value"`
	HoldingsCount int               `json:"holdings_count"`
	Accounts      []json.RawMessage `json:"accounts"`
}

type Holding struct {
	Ticker    *string  `json:"ticker"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Quantity  float64  `json:"quantity"`
	Price     float64  `json:"price"`
	Value     float64  `json:"value"`
	CostBasis *float64 `json:"cost_basis"`
}

type AssetAllocation struct {
	Stocks float64 `json:"stocks"`
	Bonds  float64 `json:"bonds"`
	Other  float64 `json:"other"`
}

type RecurringDeposits struct {
	Detected       bool     `json:"detected"`
	AverageMonthly *float64 `json:"average_monthly,omitempty"`
	MonthsActive   *int     `json:"months_active,omitempty"`
}

type FeeAnalysis struct {
	TotalFees       float64 `json:"total_fees"`
	AveragePerTrade float64 `json:"average_per_trade"`
}

type PortfolioAnalysis struct {
	HealthScore       float64            `json:"health_score"`
	Recommendations   []string           `json:"recommendations"`
	Strengths         []string           `json:"strengths"`
	Warnings          []string           `json:"warnings"`
	AssetAllocation   *AssetAllocation   `json:"asset_allocation,omitempty"`
	RecurringDeposits *RecurringDeposits `json:"recurring_deposits,omitempty"`
	FeeAnalysis       *FeeAnalysis       `json:"fee_analysis,omitempty"`
}

type AnalyzeResult struct {
	HoldingsSummary    HoldingsSummary   `json:"holdings_summary"`
	Holdings           []Holding         `json:"holdings"`
	RecentTransactions []json.RawMessage `json:"recent_transactions,omitempty"`
	Analysis           PortfolioAnalysis `json:"analysis"`
}

type AccessTokenRequest struct {
	AccessToken string `json:"access_token"`
}

// CompletePicture keeps the account groups opaque; the dashboard only shows
// the totals.
type CompletePicture struct {
	NetWorth         float64         `json:"net_worth"`
	TotalAssets      *float64        `json:"total_assets,omitempty"`
	TotalLiabilities *float64        `json:"total_liabilities,omitempty"`
	BankAccounts     json.RawMessage `json:"bank_accounts,omitempty"`
	Investments      json.RawMessage `json:"investments,omitempty"`
	Liabilities      json.RawMessage `json:"liabilities,omitempty"`
}

type ActionPlanRequest struct {
	AccessToken   string `json:"access_token"`
	RiskTolerance int    `json:"risk_tolerance"`
}

type Action struct {
	Priority int      `json:"priority"`
	Action   string   `json:"action"`
	Account  string   `json:"account,omitempty"`
	Amount   *float64 `json:"amount,omitempty"`
	Type     string   `json:"type,omitempty"`
	Reason   string   `json:"reason"`
}

type ActionPlan struct {
	Actions     []Action        `json:"actions"`
	Reasoning   []string        `json:"reasoning,omitempty"`
	Projections json.RawMessage `json:"projections,omitempty"`
	Summary     json.RawMessage `json:"summary,omitempty"`
}

type Quote struct {
	Ticker             string   `json:"ticker"`
	Price              float64  `json:"price"`
	ChangePercentToday float64  `json:"change_percent_today"`
	YTDReturn          *float64 `json:"ytd_return"`
	OneYearReturn      *float64 `json:"one_year_return"`
	FiveYearAvgReturn  float64  `json:"five_year_avg_return"`
	DataSource         string   `json:"data_source,omitempty"`
	LastUpdated        string   `json:"last_updated,omitempty"`
	Error              string   `json:"error,omitempty"`
}

type LinkTokenRequest struct {
	UserID      string `json:"user_id"`
	AccountType string `json:"account_type"`
}

type LinkToken struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration,omitempty"`
}

type ExchangeRequest struct {
	PublicToken string `json:"public_token"`
}

type ExchangeResult struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id,omitempty"`
}

type Account struct {
	AccountID string  `json:"account_id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Subtype   *string `json:"subtype"`
	Balance   float64 `json:"balance"`
}

type Balance struct {
	Accounts     []Account `json:"accounts"`
	TotalBalance float64   `json:"total_balance"`
}
