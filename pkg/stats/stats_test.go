package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennantware/warbot/pkg/questionnaire"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"１２３", "123"},
		{"０．５", "0.5"},
		{"12.5", "12.5"},
		{"５０打席", "50打席"},
		{"全角　空白", "全角 空白"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in))
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		wantErr error
	}{
		{"plain integer", "42", 42, nil},
		{"decimal", "143.333", 143.333, nil},
		{"zero", "0", 0, nil},
		{"full width", "５００", 500, nil},
		{"full width decimal", "０．２５", 0.25, nil},
		{"padded", "  7 ", 7, nil},
		{"negative", "-5", 0, ErrNegative},
		{"full width negative", "-５", 0, ErrNegative},
		{"words", "five", 0, ErrNotNumber},
		{"empty", "", 0, ErrNotNumber},
		{"whitespace only", "   ", 0, ErrNotNumber},
		{"nan literal", "NaN", 0, ErrNotNumber},
		{"inf literal", "Inf", 0, ErrNotNumber},
		{"mixed", "12abc", 0, ErrNotNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParse_PitcherBlock(t *testing.T) {
	text := `投球回 143.333
自責点 52
被安打 120
被本塁打 ８
与四球 40
与死球 3
奪三振 165
登板 28
先発 26`

	answers, err := Parse(text, questionnaire.KindPitcher)
	require.NoError(t, err)

	require.Len(t, answers, 9)
	assert.InDelta(t, 143.333, answers["innings"], 1e-9)
	assert.Equal(t, float64(8), answers["homeRunsAllowed"], "full-width digits fold")
	assert.Equal(t, float64(26), answers["starts"])
}

func TestParse_OverlappingLabels(t *testing.T) {
	// 盗塁刺 and 許盗塁 both contain 盗塁; the longest label must win.
	text := `盗塁刺 10
許盗塁 22
盗塁 35
盗塁死 5`

	_, err := Parse(text, questionnaire.KindFielder)
	require.Error(t, err, "fielder paste is incomplete, but matched lines must bind correctly")

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.NotContains(t, pe.MissingLabels, "盗塁刺")
	assert.NotContains(t, pe.MissingLabels, "許盗塁")
	assert.NotContains(t, pe.MissingLabels, "盗塁")
	assert.NotContains(t, pe.MissingLabels, "盗塁死")
}

func TestParse_MissingFields(t *testing.T) {
	_, err := Parse("投球回 140", questionnaire.KindPitcher)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Len(t, pe.MissingLabels, 8)
	assert.Contains(t, pe.MissingLabels, "自責点")
}

func TestParse_UnknownKind(t *testing.T) {
	_, err := Parse("anything", questionnaire.Kind("coach"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestParse_FirstNumberOnLineWins(t *testing.T) {
	text := `登板 28 (うち先発 26)`

	answers, err := Parse(text, questionnaire.KindPitcher)
	require.Error(t, err)
	_ = answers

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.NotContains(t, pe.MissingLabels, "登板")
}
