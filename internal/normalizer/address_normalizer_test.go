package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Rules(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "postal code, unit number and neighborhood",
			input:    "07313 서울 영등포구 신길로 220 102호(신길동)",
			expected: "서울 영등포구 신길로 220",
		},
		{
			name:     "comma before unit number",
			input:    "서울 영등포구 신길로 220, 102호 (신길동)",
			expected: "서울 영등포구 신길로 220",
		},
		{
			name:     "comma without space before unit number",
			input:    "서울 영등포구 신길로 220,102호",
			expected: "서울 영등포구 신길로 220",
		},
		{
			name:     "comma before sub-unit number",
			input:    "서울 강남구 테헤란로 123, 45",
			expected: "서울 강남구 테헤란로 123",
		},
		{
			name:     "dangling comma",
			input:    "서울 강남구 테헤란로 152 ,",
			expected: "서울 강남구 테헤란로 152",
		},
		{
			name:     "whitespace collapse",
			input:    "  서울   영등포구\t신길로  220 ",
			expected: "서울 영등포구 신길로 220",
		},
		{
			name:     "floor segment",
			input:    "서울 강남구 테헤란로 152 12층",
			expected: "서울 강남구 테헤란로 152",
		},
		{
			name:     "building then unit",
			input:    "경기 성남시 분당구 판교로 100 101동 1203호",
			expected: "경기 성남시 분당구 판교로 100",
		},
		{
			name:     "complex segment",
			input:    "인천 연수구 송도동 23 2단지",
			expected: "인천 연수구 송도동 23",
		},
		{
			name:     "sub-unit number after road number",
			input:    "서울 강남구 테헤란로 123 45",
			expected: "서울 강남구 테헤란로 123",
		},
		{
			name:     "parenthesis in the middle",
			input:    "부산 해운대구 (우동) 센텀중앙로 79",
			expected: "부산 해운대구 센텀중앙로 79",
		},
		{
			name:     "full-width digits and parens",
			input:    "０７３１３ 서울 영등포구 신길로 ２２０（신길동）",
			expected: "서울 영등포구 신길로 220",
		},
		{
			name:     "neighborhood name ending in 동 is kept",
			input:    "서울 영등포구 신길동 123-4",
			expected: "서울 영등포구 신길동 123-4",
		},
		{
			name:     "postal code only",
			input:    "07313",
			expected: "07313",
		},
		{
			name:     "empty",
			input:    "   ",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Normalize(tc.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"07313 서울 영등포구 신길로 220 102호(신길동)",
		"99999 54321 서울 7 8",
		"12345 6",
		"서울 (a (b) c) 종로 1 2 3 4",
		"(신길동) 07313 서울 신길로 220",
		"서울 중구 을지로 3가 5층 501호",
		"a 1 2",
		"((",
		"102호",
		"",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_EquivalentKeys(t *testing.T) {
	a := Normalize("07313 서울 영등포구 신길로 220")
	b := Normalize("서울  영등포구 신길로 220 (신길동)")
	c := Normalize("서울 영등포구 신길로 220, 102호 (신길동)")
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestLoadRulesConfig(t *testing.T) {
	cfg, err := LoadRulesConfig()
	require.NoError(t, err)

	assert.Contains(t, cfg.DetailUnits, "층")
	assert.Contains(t, cfg.DetailUnits, "호")

	rules, err := cfg.compile()
	require.NoError(t, err)
	assert.True(t, rules.detailSegment.MatchString("신길로 220 102호"))
	assert.False(t, rules.detailSegment.MatchString("신길로 220 신길동"))
	assert.True(t, rules.detailSegment.MatchString("신길로 220, 102호"))
	assert.Equal(t, "신길로 220", rules.trailingSep.ReplaceAllString("신길로 220, ", ""))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"서울", "영등포구", "신길로", "220"}, Tokens("서울 영등포구  신길로 220"))
	assert.Empty(t, Tokens(""))
}
