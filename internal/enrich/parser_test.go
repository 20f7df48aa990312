package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParser_Parse(t *testing.T) {
	parser := NewParser()

	text := `Name: Lisinopril
Dosage: 10 mg
Type: film-coated tablet
Frequency: once daily
Times: 08:00, 20:00
Notes: Take on an empty stomach`

	suggestion := parser.Parse(text)

	assert.Equal(t, "Lisinopril", suggestion.Name)
	assert.Equal(t, 10.0, suggestion.DosageAmount)
	assert.Equal(t, "mg", suggestion.DosageUnit)
	assert.Equal(t, "tablet", suggestion.Type)
	assert.Equal(t, "daily", suggestion.Frequency)
	assert.Equal(t, []string{"08:00", "20:00"}, suggestion.Times)
	assert.Equal(t, "Take on an empty stomach", suggestion.Notes)
	assert.False(t, suggestion.Empty())
}

func TestParser_UnknownFieldsSkipped(t *testing.T) {
	parser := NewParser()

	text := `Name: Metformin
Dosage: unknown
Type: unknown
Times: unknown`

	suggestion := parser.Parse(text)

	assert.Equal(t, "Metformin", suggestion.Name)
	assert.Zero(t, suggestion.DosageAmount)
	assert.Empty(t, suggestion.Type)
	assert.Empty(t, suggestion.Times)
}

func TestParser_DosageVariants(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		input  string
		amount float64
		unit   string
	}{
		{"Dosage: 500 mg", 500, "mg"},
		{"Dosage: 2.5ml", 2.5, "ml"},
		{"Strength: 1000 IU per dose", 1000, "iu"},
		{"Dose: 2 tablets", 2, "tablet"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			suggestion := parser.Parse(tt.input)
			assert.Equal(t, tt.amount, suggestion.DosageAmount)
			assert.Equal(t, tt.unit, suggestion.DosageUnit)
		})
	}
}

func TestParser_TimeNormalization(t *testing.T) {
	parser := NewParser()

	suggestion := parser.Parse("Times: 8:00, 12:30, 8:00, 25:00")
	assert.Equal(t, []string{"08:00", "12:30"}, suggestion.Times)
}

func TestParser_JunkInput(t *testing.T) {
	parser := NewParser()

	suggestion := parser.Parse("the model rambled about something unrelated\nwithout any structure")
	assert.True(t, suggestion.Empty())
}
