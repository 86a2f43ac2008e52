package core

// Summary bundles the derived budget values for one moment in time.
type Summary struct {
	Salary               float64
	TotalBudgeted        float64
	RemainingAfterBudget float64
	TotalExpenses        float64
	FreeBalance          float64
	EmergencyFundGoal    float64
	CommitmentRatio      float64
	MonthlyContribution  float64
}

// CategoryShare is a category with its fraction of the salary.
type CategoryShare struct {
	Category Category
	Share    float64 // BudgetedAmount / salary, 0 when salary is 0
}
