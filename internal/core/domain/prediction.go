package domain

import (
	"time"

	"github.com/google/uuid"
)

// Decision labels returned to callers.
const (
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

// ProbabilitySource records whether the probability came from the model or
// from the degenerate label fallback.
type ProbabilitySource string

const (
	ProbabilityFromModel    ProbabilitySource = "model"
	ProbabilityFromFallback ProbabilitySource = "fallback"
)

// Raw column names as they appear in the training data.
const (
	ColumnID             = "ID"
	ColumnGender         = "CODE_GENDER"
	ColumnOwnCar         = "FLAG_OWN_CAR"
	ColumnOwnRealty      = "FLAG_OWN_REALTY"
	ColumnChildren       = "CNT_CHILDREN"
	ColumnIncome         = "AMT_INCOME_TOTAL"
	ColumnIncomeType     = "NAME_INCOME_TYPE"
	ColumnEducationType  = "NAME_EDUCATION_TYPE"
	ColumnFamilyStatus   = "NAME_FAMILY_STATUS"
	ColumnHousingType    = "NAME_HOUSING_TYPE"
	ColumnDaysBirth      = "DAYS_BIRTH"
	ColumnDaysEmployed   = "DAYS_EMPLOYED"
	ColumnFlagMobil      = "FLAG_MOBIL"
	ColumnFlagWorkPhone  = "FLAG_WORK_PHONE"
	ColumnFlagPhone      = "FLAG_PHONE"
	ColumnFlagEmail      = "FLAG_EMAIL"
	ColumnOccupationType = "OCCUPATION_TYPE"
	ColumnFamilyMembers  = "CNT_FAM_MEMBERS"
)

// PredictionRequest holds one applicant's attributes.
type PredictionRequest struct {
	ID             *int64
	Gender         string
	OwnCar         string
	OwnRealty      string
	Children       int
	Income         float64
	IncomeType     string
	EducationType  string
	FamilyStatus   string
	HousingType    string
	DaysBirth      int
	DaysEmployed   int
	FlagMobil      int
	FlagWorkPhone  int
	FlagPhone      int
	FlagEmail      int
	OccupationType string
	FamilyMembers  float64
}

// Validate enforces the range constraints the model was trained under.
func (r PredictionRequest) Validate() error {
	verr := &ValidationError{}

	if r.Income <= 0 {
		verr.add(ColumnIncome, "must be greater than 0")
	}
	if r.FamilyMembers <= 0 {
		verr.add(ColumnFamilyMembers, "must be greater than 0")
	}
	if r.Children < 0 {
		verr.add(ColumnChildren, "must be greater than or equal to 0")
	}
	for _, flag := range []struct {
		name  string
		value int
	}{
		{ColumnFlagMobil, r.FlagMobil},
		{ColumnFlagWorkPhone, r.FlagWorkPhone},
		{ColumnFlagPhone, r.FlagPhone},
		{ColumnFlagEmail, r.FlagEmail},
	} {
		if flag.value != 0 && flag.value != 1 {
			verr.add(flag.name, "must be 0 or 1")
		}
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{ColumnGender, r.Gender},
		{ColumnOwnCar, r.OwnCar},
		{ColumnOwnRealty, r.OwnRealty},
		{ColumnIncomeType, r.IncomeType},
		{ColumnEducationType, r.EducationType},
		{ColumnFamilyStatus, r.FamilyStatus},
		{ColumnHousingType, r.HousingType},
		{ColumnOccupationType, r.OccupationType},
	} {
		if field.value == "" {
			verr.add(field.name, "is required")
		}
	}

	return verr.orNil()
}

// FeatureRow is the request flattened into raw training columns.
type FeatureRow struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

// Row flattens the request into its raw training columns, identifier included.
func (r PredictionRequest) Row() FeatureRow {
	row := FeatureRow{
		Numeric: map[string]float64{
			ColumnChildren:      float64(r.Children),
			ColumnIncome:        r.Income,
			ColumnDaysBirth:     float64(r.DaysBirth),
			ColumnDaysEmployed:  float64(r.DaysEmployed),
			ColumnFlagMobil:     float64(r.FlagMobil),
			ColumnFlagWorkPhone: float64(r.FlagWorkPhone),
			ColumnFlagPhone:     float64(r.FlagPhone),
			ColumnFlagEmail:     float64(r.FlagEmail),
			ColumnFamilyMembers: r.FamilyMembers,
		},
		Categorical: map[string]string{
			ColumnGender:         r.Gender,
			ColumnOwnCar:         r.OwnCar,
			ColumnOwnRealty:      r.OwnRealty,
			ColumnIncomeType:     r.IncomeType,
			ColumnEducationType:  r.EducationType,
			ColumnFamilyStatus:   r.FamilyStatus,
			ColumnHousingType:    r.HousingType,
			ColumnOccupationType: r.OccupationType,
		},
	}
	if r.ID != nil {
		row.Numeric[ColumnID] = float64(*r.ID)
	}
	return row
}

// FeatureVector is the fixed-width model input produced by preprocessing.
type FeatureVector struct {
	Names  []string
	Values []float64
}

// Outcome is the raw inference result for one feature vector.
type Outcome struct {
	Label               int
	ProbabilityApproved float64
	Confidence          float64
	Decision            string
	ProbabilitySource   ProbabilitySource
}

// DecisionFor maps a class label to its decision string.
func DecisionFor(label int) string {
	if label == 1 {
		return DecisionApproved
	}
	return DecisionRejected
}

// Prediction is a served prediction.
type Prediction struct {
	ID                uuid.UUID         `json:"id"`
	RequestID         string            `json:"request_id,omitempty"`
	CustomerID        *int64            `json:"customer_id,omitempty"`
	Label             int               `json:"prediction"`
	Probability       float64           `json:"probability"`
	Decision          string            `json:"decision"`
	Confidence        float64           `json:"confidence"`
	ProbabilitySource ProbabilitySource `json:"probability_source"`
	ModelVersion      string            `json:"version"`
	RunID             string            `json:"run_id"`
	Cached            bool              `json:"cached"`
	CreatedAt         time.Time         `json:"timestamp"`
}
