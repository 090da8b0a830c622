package dto

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"card-approval-service/internal/core/domain"
)

// ============================================================================
// Prediction DTOs
// ============================================================================

// PredictionRequest mirrors the raw training columns. Pointers let the
// binding layer tell a missing field from an explicit zero.
type PredictionRequest struct {
	ID                *int64   `json:"ID"`
	CodeGender        *string  `json:"CODE_GENDER" binding:"required"`
	FlagOwnCar        *string  `json:"FLAG_OWN_CAR" binding:"required"`
	FlagOwnRealty     *string  `json:"FLAG_OWN_REALTY" binding:"required"`
	CntChildren       *int     `json:"CNT_CHILDREN" binding:"required"`
	AmtIncomeTotal    *float64 `json:"AMT_INCOME_TOTAL" binding:"required"`
	NameIncomeType    *string  `json:"NAME_INCOME_TYPE" binding:"required"`
	NameEducationType *string  `json:"NAME_EDUCATION_TYPE" binding:"required"`
	NameFamilyStatus  *string  `json:"NAME_FAMILY_STATUS" binding:"required"`
	NameHousingType   *string  `json:"NAME_HOUSING_TYPE" binding:"required"`
	DaysBirth         *int     `json:"DAYS_BIRTH" binding:"required"`
	DaysEmployed      *int     `json:"DAYS_EMPLOYED" binding:"required"`
	FlagMobil         *int     `json:"FLAG_MOBIL" binding:"required"`
	FlagWorkPhone     *int     `json:"FLAG_WORK_PHONE" binding:"required"`
	FlagPhone         *int     `json:"FLAG_PHONE" binding:"required"`
	FlagEmail         *int     `json:"FLAG_EMAIL" binding:"required"`
	OccupationType    *string  `json:"OCCUPATION_TYPE" binding:"required"`
	CntFamMembers     *float64 `json:"CNT_FAM_MEMBERS" binding:"required"`
}

// ToDomain converts a bound request. Unset optional values become zero and
// are left to domain validation.
func (r PredictionRequest) ToDomain() domain.PredictionRequest {
	return domain.PredictionRequest{
		ID:             r.ID,
		Gender:         str(r.CodeGender),
		OwnCar:         str(r.FlagOwnCar),
		OwnRealty:      str(r.FlagOwnRealty),
		Children:       integer(r.CntChildren),
		Income:         float(r.AmtIncomeTotal),
		IncomeType:     str(r.NameIncomeType),
		EducationType:  str(r.NameEducationType),
		FamilyStatus:   str(r.NameFamilyStatus),
		HousingType:    str(r.NameHousingType),
		DaysBirth:      integer(r.DaysBirth),
		DaysEmployed:   integer(r.DaysEmployed),
		FlagMobil:      integer(r.FlagMobil),
		FlagWorkPhone:  integer(r.FlagWorkPhone),
		FlagPhone:      integer(r.FlagPhone),
		FlagEmail:      integer(r.FlagEmail),
		OccupationType: str(r.OccupationType),
		FamilyMembers:  float(r.CntFamMembers),
	}
}

// BindingFieldErrors translates binding validation failures into field
// errors keyed by JSON name. It reports false for any other bind error, such
// as malformed JSON.
func BindingFieldErrors(err error) ([]domain.FieldError, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}

	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		message := "failed on " + fe.Tag()
		if fe.Tag() == "required" {
			message = "is required"
		}
		fields = append(fields, domain.FieldError{Field: jsonName(fe.StructField()), Message: message})
	}
	return fields, true
}

func jsonName(structField string) string {
	f, ok := reflect.TypeOf(PredictionRequest{}).FieldByName(structField)
	if !ok {
		return structField
	}
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return structField
	}
	return name
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func integer(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func float(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

type PredictionResponse struct {
	Prediction        int       `json:"prediction"`
	Probability       float64   `json:"probability"`
	Decision          string    `json:"decision"`
	Confidence        float64   `json:"confidence"`
	Version           string    `json:"version"`
	Timestamp         time.Time `json:"timestamp"`
	ProbabilitySource string    `json:"probability_source"`
	PredictionID      uuid.UUID `json:"prediction_id"`
	Cached            bool      `json:"cached"`
}

func ToPredictionResponse(p *domain.Prediction) PredictionResponse {
	return PredictionResponse{
		Prediction:        p.Label,
		Probability:       p.Probability,
		Decision:          p.Decision,
		Confidence:        p.Confidence,
		Version:           p.ModelVersion,
		Timestamp:         p.CreatedAt,
		ProbabilitySource: string(p.ProbabilitySource),
		PredictionID:      p.ID,
		Cached:            p.Cached,
	}
}

// ============================================================================
// Prediction Log DTOs
// ============================================================================

type PredictionLogResponse struct {
	ID                uuid.UUID `json:"id"`
	RequestID         string    `json:"request_id,omitempty"`
	CustomerID        *int64    `json:"customer_id,omitempty"`
	Prediction        int       `json:"prediction"`
	Probability       float64   `json:"probability"`
	Decision          string    `json:"decision"`
	Confidence        float64   `json:"confidence"`
	ProbabilitySource string    `json:"probability_source"`
	Version           string    `json:"version"`
	RunID             string    `json:"run_id"`
	Cached            bool      `json:"cached"`
	CreatedAt         time.Time `json:"created_at"`
}

type ListPredictionsResponse struct {
	Items      []PredictionLogResponse `json:"items"`
	Total      int                     `json:"total"`
	PageSize   int                     `json:"page_size"`
	NextOffset int                     `json:"next_offset"`
}

func ToPredictionLogResponse(p *domain.Prediction) PredictionLogResponse {
	return PredictionLogResponse{
		ID:                p.ID,
		RequestID:         p.RequestID,
		CustomerID:        p.CustomerID,
		Prediction:        p.Label,
		Probability:       p.Probability,
		Decision:          p.Decision,
		Confidence:        p.Confidence,
		ProbabilitySource: string(p.ProbabilitySource),
		Version:           p.ModelVersion,
		RunID:             p.RunID,
		Cached:            p.Cached,
		CreatedAt:         p.CreatedAt,
	}
}

// ToListPredictionsResponse builds a page. NextOffset is zero on the last page.
func ToListPredictionsResponse(items []*domain.Prediction, total, offset int) ListPredictionsResponse {
	resp := ListPredictionsResponse{
		Items:    make([]PredictionLogResponse, 0, len(items)),
		Total:    total,
		PageSize: len(items),
	}
	for _, p := range items {
		resp.Items = append(resp.Items, ToPredictionLogResponse(p))
	}
	if next := offset + len(items); next < total && len(items) > 0 {
		resp.NextOffset = next
	}
	return resp
}

// ============================================================================
// Service DTOs
// ============================================================================

type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
	Health  string `json:"health"`
	Metrics string `json:"metrics"`
}

type ProbeResponse struct {
	Status string `json:"status"`
}
