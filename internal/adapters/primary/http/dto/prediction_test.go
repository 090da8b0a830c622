package dto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-approval-service/internal/core/domain"
)

const samplePayload = `{
	"ID": 5008804,
	"CODE_GENDER": "M",
	"FLAG_OWN_CAR": "Y",
	"FLAG_OWN_REALTY": "Y",
	"CNT_CHILDREN": 0,
	"AMT_INCOME_TOTAL": 427500.0,
	"NAME_INCOME_TYPE": "Working",
	"NAME_EDUCATION_TYPE": "Higher education",
	"NAME_FAMILY_STATUS": "Civil marriage",
	"NAME_HOUSING_TYPE": "Rented apartment",
	"DAYS_BIRTH": -12005,
	"DAYS_EMPLOYED": -4542,
	"FLAG_MOBIL": 1,
	"FLAG_WORK_PHONE": 1,
	"FLAG_PHONE": 0,
	"FLAG_EMAIL": 0,
	"OCCUPATION_TYPE": "Managers",
	"CNT_FAM_MEMBERS": 2.0
}`

func TestPredictionRequest_ToDomain(t *testing.T) {
	var req PredictionRequest
	require.NoError(t, json.Unmarshal([]byte(samplePayload), &req))
	require.NoError(t, binding.Validator.ValidateStruct(&req))

	d := req.ToDomain()

	require.NotNil(t, d.ID)
	assert.Equal(t, int64(5008804), *d.ID)
	assert.Equal(t, "M", d.Gender)
	assert.Equal(t, 0, d.Children)
	assert.Equal(t, 427500.0, d.Income)
	assert.Equal(t, "Civil marriage", d.FamilyStatus)
	assert.Equal(t, -4542, d.DaysEmployed)
	assert.Equal(t, 0, d.FlagEmail)
	assert.Equal(t, 2.0, d.FamilyMembers)
	assert.NoError(t, d.Validate())
}

func TestPredictionRequest_ExplicitZeroIsPresent(t *testing.T) {
	var req PredictionRequest
	require.NoError(t, json.Unmarshal([]byte(samplePayload), &req))

	assert.NotNil(t, req.CntChildren)
	assert.NotNil(t, req.FlagPhone)
	assert.NoError(t, binding.Validator.ValidateStruct(&req))
}

func TestBindingFieldErrors_Missing(t *testing.T) {
	req := PredictionRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"CODE_GENDER": "F"}`), &req))

	err := binding.Validator.ValidateStruct(&req)
	require.Error(t, err)

	fields, ok := BindingFieldErrors(err)
	require.True(t, ok)
	assert.Len(t, fields, 16)
	assert.Contains(t, fields, domain.FieldError{Field: "AMT_INCOME_TOTAL", Message: "is required"})
	assert.NotContains(t, fields, domain.FieldError{Field: "CODE_GENDER", Message: "is required"})
	assert.NotContains(t, fields, domain.FieldError{Field: "ID", Message: "is required"})
}

func TestBindingFieldErrors_OtherError(t *testing.T) {
	_, ok := BindingFieldErrors(errors.New("unexpected EOF"))
	assert.False(t, ok)
}

func TestToPredictionResponse(t *testing.T) {
	id := uuid.New()
	now := time.Now()
	resp := ToPredictionResponse(&domain.Prediction{
		ID: id, Label: 1, Probability: 0.82, Decision: domain.DecisionApproved, Confidence: 0.82,
		ProbabilitySource: domain.ProbabilityFromModel, ModelVersion: "3", CreatedAt: now,
	})

	assert.Equal(t, 1, resp.Prediction)
	assert.Equal(t, "APPROVED", resp.Decision)
	assert.Equal(t, "3", resp.Version)
	assert.Equal(t, "model", resp.ProbabilitySource)
	assert.Equal(t, id, resp.PredictionID)
	assert.Equal(t, now, resp.Timestamp)
}

func TestToListPredictionsResponse(t *testing.T) {
	items := []*domain.Prediction{{ID: uuid.New()}, {ID: uuid.New()}}

	page := ToListPredictionsResponse(items, 5, 0)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, 2, page.NextOffset)

	last := ToListPredictionsResponse(items, 5, 3)
	assert.Equal(t, 0, last.NextOffset)

	empty := ToListPredictionsResponse(nil, 0, 0)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}
