package geocoder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/client-geomap/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockGenerator struct {
	mock.Mock
	available bool
}

func (m *mockGenerator) Available() bool { return m.available }

func (m *mockGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestBatchAI_PartialResult(t *testing.T) {
	addresses := []string{
		"서울 중구 세종대로 110",
		"부산 해운대구 센텀중앙로 79",
		"대구 중구 공평로 88",
		"인천 남동구 정각로 29",
		"광주 서구 내방로 111",
	}
	answer := `[
		{"address": "서울 중구 세종대로 110", "lat": 37.5663, "lng": 126.9779},
		{"address": "부산 해운대구 센텀중앙로 79", "lat": "35.1692", "lng": "129.1318"},
		{"address": "대구 중구 공평로 88", "lat": 35.8714, "lng": 128.6014},
		{"address": "인천 남동구 정각로 29", "lat": null, "lng": 126.7052},
		{"address": "광주 서구 내방로 111", "lat": "unknown", "lng": 126.8514}
	]`

	gen := &mockGenerator{available: true}
	gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(answer, nil).Once()
	cache := newMapCache()

	r := NewBatchAIResolver(gen, cache, 30, zap.NewNop())
	got := r.ResolveBatch(context.Background(), addresses)

	require.Len(t, got, 3)
	assert.Equal(t, models.Coordinate{Lat: 35.1692, Lng: 129.1318}, got["부산 해운대구 센텀중앙로 79"])
	assert.NotContains(t, got, "인천 남동구 정각로 29")
	assert.NotContains(t, got, "광주 서구 내방로 111")
	assert.Equal(t, 3, cache.puts)
	gen.AssertExpectations(t)
}

func TestBatchAI_PromptCarriesEveryAddress(t *testing.T) {
	gen := &mockGenerator{available: true}
	gen.On("GenerateJSON", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "07313 서울 영등포구 신길로 220 102호(신길동)") &&
			strings.Contains(p, "경기 성남시 분당구 판교역로 235")
	})).Return(`[]`, nil).Once()

	r := NewBatchAIResolver(gen, nil, 30, zap.NewNop())
	got := r.ResolveBatch(context.Background(), []string{
		"07313 서울 영등포구 신길로 220 102호(신길동)",
		"경기 성남시 분당구 판교역로 235",
	})

	assert.Empty(t, got)
	gen.AssertExpectations(t)
}

func TestBatchAI_MatchesNormalizedAndFuzzyAnswers(t *testing.T) {
	original := "07313 서울 영등포구 신길로 220 102호(신길동)"
	ascii := "Teheran-ro 152 Gangnam-gu Seoul"
	answer := "```json\n" + `{"results": [
		{"address": "서울 영등포구 신길로 220", "lat": 37.5066, "lng": 126.9147},
		{"address": "Teheran-ro 152 Gangnam-gu, Seoul", "lat": 37.5006, "lng": 127.0364},
		{"address": "Somewhere else entirely", "lat": 35.0, "lng": 129.0}
	]}` + "\n```"

	gen := &mockGenerator{available: true}
	gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(answer, nil)

	r := NewBatchAIResolver(gen, nil, 30, zap.NewNop())
	got := r.ResolveBatch(context.Background(), []string{original, ascii})

	require.Len(t, got, 2)
	assert.Equal(t, 37.5066, got[original].Lat)
	assert.Equal(t, 127.0364, got[ascii].Lng)
}

func TestBatchAI_FailureYieldsEmptyMap(t *testing.T) {
	gen := &mockGenerator{available: true}
	gen.On("GenerateJSON", mock.Anything, mock.Anything).Return("", errors.New("boom"))

	r := NewBatchAIResolver(gen, nil, 30, zap.NewNop())
	got := r.ResolveBatch(context.Background(), []string{"서울 중구 세종대로 110"})

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBatchAI_MalformedAnswerYieldsEmptyMap(t *testing.T) {
	gen := &mockGenerator{available: true}
	gen.On("GenerateJSON", mock.Anything, mock.Anything).Return("I could not find these.", nil)

	r := NewBatchAIResolver(gen, nil, 30, zap.NewNop())
	assert.Empty(t, r.ResolveBatch(context.Background(), []string{"서울 중구 세종대로 110"}))
}

func TestBatchAI_UnavailableSkipsRequest(t *testing.T) {
	gen := &mockGenerator{available: false}

	r := NewBatchAIResolver(gen, nil, 30, zap.NewNop())
	assert.False(t, r.Available())
	assert.Empty(t, r.ResolveBatch(context.Background(), []string{"서울 중구 세종대로 110"}))
	gen.AssertNotCalled(t, "GenerateJSON", mock.Anything, mock.Anything)
}

func TestBatchAI_TruncatesToBatchSize(t *testing.T) {
	gen := &mockGenerator{available: true}
	gen.On("GenerateJSON", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, `"a1"`) && strings.Contains(p, `"a2"`) && !strings.Contains(p, `"a3"`)
	})).Return(`[]`, nil).Once()

	r := NewBatchAIResolver(gen, nil, 2, zap.NewNop())
	r.ResolveBatch(context.Background(), []string{"a1", "a2", "a3"})
	gen.AssertExpectations(t)
}

func TestBatchAI_ResolveSingle(t *testing.T) {
	gen := &mockGenerator{available: true}
	gen.On("GenerateJSON", mock.Anything, mock.Anything).
		Return(`[{"address":"서울 중구 세종대로 110","lat":37.5663,"lng":126.9779}]`, nil)

	r := NewBatchAIResolver(gen, nil, 30, zap.NewNop())
	c, ok := r.Resolve(context.Background(), "서울 중구 세종대로 110")
	require.True(t, ok)
	assert.Equal(t, 126.9779, c.Lng)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{`37.5`, 37.5, true},
		{`"37.5"`, 37.5, true},
		{`" 126.9 "`, 126.9, true},
		{`null`, 0, false},
		{`""`, 0, false},
		{`"abc"`, 0, false},
		{`true`, 0, false},
		{``, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseNumber([]byte(tt.raw))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClampBatchSize(t *testing.T) {
	assert.Equal(t, MaxBatchSize, ClampBatchSize(0))
	assert.Equal(t, MaxBatchSize, ClampBatchSize(-1))
	assert.Equal(t, 7, ClampBatchSize(7))
	assert.Equal(t, MaxBatchSize, ClampBatchSize(50))
}
