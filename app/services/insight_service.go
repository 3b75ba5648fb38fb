package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/client-geomap/app/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// InsightFallback is shown when no visit guide can be generated
const InsightFallback = "현재 AI 비서가 응답할 수 없습니다."

// TextGenerator produces free text from a prompt
type TextGenerator interface {
	Available() bool
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Insight visit consultation guide for one client
type Insight struct {
	ClientID string `json:"client_id"`
	Text     string `json:"text"`
	Cached   bool   `json:"cached"`
	Fallback bool   `json:"fallback"`
}

// InsightService writes short visit guides for sales consultants
type InsightService struct {
	generator TextGenerator
	cache     *lru.Cache[string, string]
	logger    *zap.Logger
}

// NewInsightService creates the service with an LRU of cacheSize answers
func NewInsightService(generator TextGenerator, cacheSize int, logger *zap.Logger) (*InsightService, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating insight cache: %w", err)
	}
	return &InsightService{
		generator: generator,
		cache:     cache,
		logger:    logger,
	}, nil
}

// Generate returns the guide for rec. It never fails: any problem yields
// InsightFallback, which is not cached.
func (s *InsightService) Generate(ctx context.Context, rec models.ClientRecord) Insight {
	key := rec.Name + "|" + rec.Address
	if text, ok := s.cache.Get(key); ok {
		return Insight{ClientID: rec.ID, Text: text, Cached: true}
	}

	fallback := Insight{ClientID: rec.ID, Text: InsightFallback, Fallback: true}
	if s.generator == nil || !s.generator.Available() {
		return fallback
	}

	text, err := s.generator.GenerateText(ctx, insightPrompt(rec))
	if err != nil {
		s.logger.Warn("Insight generation failed", zap.String("client_id", rec.ID), zap.Error(err))
		return fallback
	}

	text = strings.TrimSpace(text)
	s.cache.Add(key, text)
	return Insight{ClientID: rec.ID, Text: text}
}

func insightPrompt(rec models.ClientRecord) string {
	category := rec.Category
	if category == "" {
		category = rec.BusinessType
	}
	return fmt.Sprintf(
		"당신은 한국의 중소기업 전문 경영 컨설턴트입니다. 아래 정보를 바탕으로 방문 상담 가이드를 작성하세요.\n"+
			"상호: %s, 업종: %s, 주소: %s\n"+
			"3~4줄 내외의 친절한 구어체로 작성하세요.",
		rec.Name, category, rec.Address)
}
