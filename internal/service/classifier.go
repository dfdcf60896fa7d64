package service

import (
	"context"
	"strings"
)

// ── 缺陷分类 ──────────────────────────────────────────────
//
// 原系统用多模态大模型对报修描述与照片做难度评估与报价。
// 这里只定义协作边界：接口 + 一个确定性的规则实现，
// 接入真实模型时替换 Classifier 注入即可，主流程不感知。
// ─────────────────────────────────────────────────────────────

// 难度分类（波兰市场定价口径，沿用业务方的分类名）
const (
	DifficultyLow      = "NISKI"
	DifficultyMedium   = "ŚREDNI"
	DifficultyHigh     = "WYSOKI"
	DifficultyVeryHigh = "BARDZO WYSOKI"
	DifficultyUnknown  = "WYCENA NIEMOŻLIWA"
)

// 各难度对应的报价区间
const (
	priceRangeLow      = "150-250 zł"
	priceRangeMedium   = "250-500 zł"
	priceRangeHigh     = "500-1200 zł"
	priceRangeVeryHigh = "powyżej 1200 zł"
)

// Classification 缺陷分类结果
type Classification struct {
	Difficulty     string // 难度分类
	PriceRange     string // 报价区间
	ClientResponse string // 给客户的答复文案
	Valid          bool   // 报修内容是否有效（无效的直接拒单）
}

// Classifier 缺陷分类与报价协作接口
type Classifier interface {
	Classify(ctx context.Context, description, photoURL string) (*Classification, error)
}

// ruleClassifier 基于关键词规则的确定性实现
// 取描述中命中的最高难度档；全部未命中则报"无法报价"，人工跟进
type ruleClassifier struct{}

// NewRuleClassifier 创建规则分类器
func NewRuleClassifier() Classifier {
	return &ruleClassifier{}
}

// 关键词按难度分组，全部小写匹配
var difficultyKeywords = []struct {
	difficulty string
	priceRange string
	keywords   []string
}{
	{DifficultyVeryHigh, priceRangeVeryHigh, []string{
		"remont", "cała instalacja", "zalanie", "wymiana pionu",
	}},
	{DifficultyHigh, priceRangeHigh, []string{
		"wymiana rur", "rura", "przeciek", "kabina", "prysznic", "pęknięt",
	}},
	{DifficultyMedium, priceRangeMedium, []string{
		"bateri", "spłuczk", "montaż wc", "odpływ", "zatkan", "udrożni", "syfon",
	}},
	{DifficultyLow, priceRangeLow, []string{
		"uszczelk", "kran", "ciekn", "kapie", "wymiana węża",
	}},
}

func (c *ruleClassifier) Classify(_ context.Context, description, _ string) (*Classification, error) {
	text := strings.ToLower(strings.TrimSpace(description))
	if len([]rune(text)) < 10 {
		return &Classification{
			Difficulty:     DifficultyUnknown,
			ClientResponse: "Opis zgłoszenia jest zbyt krótki, aby ocenić usterkę. Prosimy o więcej szczegółów.",
			Valid:          false,
		}, nil
	}

	for _, group := range difficultyKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(text, kw) {
				return &Classification{
					Difficulty:     group.difficulty,
					PriceRange:     group.priceRange,
					ClientResponse: "Dziękujemy za zgłoszenie. Orientacyjny koszt naprawy: " + group.priceRange + ". Dokładną wycenę potwierdzi hydraulik na miejscu.",
					Valid:          true,
				}, nil
			}
		}
	}

	// 识别不了的先收单，报价留待人工
	return &Classification{
		Difficulty:     DifficultyUnknown,
		ClientResponse: "Dziękujemy za zgłoszenie. Wycena wymaga oględzin — hydraulik potwierdzi koszt na miejscu.",
		Valid:          true,
	}, nil
}
