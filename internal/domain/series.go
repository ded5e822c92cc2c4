package domain

import "time"

// DateLayout is the canonical representation of every date column in the store.
const DateLayout = "2006-01-02"

// Column names of the published datasets and the renamed columns written to the store.
const (
	ColDate = "Dagsetning"

	ColWagePeriod        = "Mánuður"
	ColWageIndex         = "Vísitölugildi"
	ColWageMonthlyChange = "Mánaðarbreyting, %"
	ColWageYearlyChange  = "Ársbreyting, %"

	ColWageIndexRenamed         = "Laun_Vísitala"
	ColWageMonthlyChangeRenamed = "Laun_Breyting_Mán"
	ColWageYearlyChangeRenamed  = "Laun_Breyting_Ár"

	ColCPIIndex        = "Vísitala neysluverðs"
	ColInflationTarget = "Verðbólgumarkmið"
)

// WageRecord is one month of the wage index series.
type WageRecord struct {
	Period           time.Time `json:"period"` // first day of the month
	IndexValue       float64   `json:"indexValue"`
	MonthlyChangePct *float64  `json:"monthlyChangePct,omitempty"`
	YearlyChangePct  *float64  `json:"yearlyChangePct,omitempty"`
}

// InflationRecord is one observation of the consumer price index.
type InflationRecord struct {
	Date            time.Time `json:"date"`
	CPIIndex        float64   `json:"cpiIndex"`
	InflationTarget float64   `json:"inflationTarget"`
}

// MergedRecord is a wage record joined with the inflation observation of the same date.
type MergedRecord struct {
	Date             time.Time `json:"date"`
	WageIndex        float64   `json:"wageIndex"`
	MonthlyChangePct *float64  `json:"monthlyChangePct,omitempty"`
	YearlyChangePct  *float64  `json:"yearlyChangePct,omitempty"`
	CPIIndex         float64   `json:"cpiIndex"`
	InflationTarget  float64   `json:"inflationTarget"`
}

// MergedColumns names the columns of the merged table.
type MergedColumns struct {
	Date          string `json:"date"`
	WageIndex     string `json:"wageIndex"`
	MonthlyChange string `json:"monthlyChange,omitempty"`
	YearlyChange  string `json:"yearlyChange,omitempty"`
	CPIIndex      string `json:"cpiIndex"`
	Target        string `json:"inflationTarget"`
}

// DefaultMergedColumns returns the merged column names of the original job.
func DefaultMergedColumns() MergedColumns {
	return MergedColumns{
		Date:          ColDate,
		WageIndex:     ColWageIndexRenamed,
		MonthlyChange: ColWageMonthlyChangeRenamed,
		YearlyChange:  ColWageYearlyChangeRenamed,
		CPIIndex:      ColCPIIndex,
		Target:        ColInflationTarget,
	}
}
