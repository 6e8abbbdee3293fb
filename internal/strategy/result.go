package strategy

import (
	"encoding/json"
	"fmt"
	"strings"

	"viral-strategy-ai/internal/gemini"
)

// Result is the mode-specific outcome of one analysis. The concrete type is selected by Mode.
type Result interface {
	Mode() Mode
	Summary() string
}

type Virality struct {
	Score   int      `json:"score"`
	Verdict string   `json:"verdict"`
	Drivers []string `json:"drivers,omitempty"`
	Risks   []string `json:"risks,omitempty"`
}

type ContentStrategy struct {
	Hook         string   `json:"hook"`
	Caption      string   `json:"caption"`
	Script       []string `json:"script,omitempty"`
	CallToAction string   `json:"callToAction"`
	Hashtags     []string `json:"hashtags"`
	PostingTime  string   `json:"postingTime,omitempty"`
	VisualIdeas  []string `json:"visualIdeas,omitempty"`
}

type SEO struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords"`
	Tags        []string `json:"tags,omitempty"`
}

type GenerationResult struct {
	Virality          Virality        `json:"virality"`
	Strategy          ContentStrategy `json:"strategy"`
	SEO               SEO             `json:"seo"`
	OptimizationIdeas []string        `json:"optimizationIdeas,omitempty"`
}

func (GenerationResult) Mode() Mode { return ModeGenerate }

func (r GenerationResult) Summary() string {
	if s := firstNonEmpty(r.Strategy.Hook, r.SEO.Title, r.Strategy.Caption); s != "" {
		return truncate(s, 120)
	}
	return fmt.Sprintf("Virality score %d", r.Virality.Score)
}

type Audit struct {
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	HookReview string   `json:"hookReview,omitempty"`
}

type RefinedContent struct {
	Title        string   `json:"title,omitempty"`
	Hook         string   `json:"hook"`
	Body         string   `json:"body"`
	CallToAction string   `json:"callToAction,omitempty"`
	Hashtags     []string `json:"hashtags,omitempty"`
}

type RefineData struct {
	BaselineScore  int            `json:"baselineScore"`
	FinalScore     int            `json:"finalScore"`
	Audit          Audit          `json:"audit"`
	RefinedContent RefinedContent `json:"refinedContent"`
	Changes        []string       `json:"changes,omitempty"`
}

type RefineResult struct {
	RefineData RefineData `json:"refineData"`
}

func (RefineResult) Mode() Mode { return ModeRefine }

func (r RefineResult) Summary() string {
	rc := r.RefineData.RefinedContent
	if s := firstNonEmpty(rc.Title, rc.Hook); s != "" {
		return truncate(s, 120)
	}
	return fmt.Sprintf("Refined draft %d -> %d", r.RefineData.BaselineScore, r.RefineData.FinalScore)
}

type SpyRow struct {
	Analysis string `json:"analysis"`
	Keywords string `json:"keywords"`
	Strategy string `json:"strategy"`
	Learning string `json:"learning"`
}

type CompetitorInsights struct {
	SpyReport []SpyRow `json:"spyReport"`
}

type GroundingMetadata struct {
	Sources []gemini.Citation `json:"sources,omitempty"`
}

type SpyResult struct {
	CompetitorInsights CompetitorInsights `json:"competitorInsights"`
	GroundingMetadata  GroundingMetadata  `json:"groundingMetadata"`
}

func (SpyResult) Mode() Mode { return ModeSpy }

func (r SpyResult) Summary() string {
	rows := r.CompetitorInsights.SpyReport
	if len(rows) > 0 && strings.TrimSpace(rows[0].Strategy) != "" {
		return truncate(rows[0].Strategy, 120)
	}
	return fmt.Sprintf("%d competitor insights", len(rows))
}

type TrendItem struct {
	Headline    string `json:"headline"`
	WhyItsHot   string `json:"whyItsHot"`
	ContentIdea string `json:"contentIdea"`
	Platform    string `json:"platform,omitempty"`
	Difficulty  string `json:"difficulty,omitempty"`
}

type TrendResult struct {
	Trends            []TrendItem       `json:"trends"`
	GroundingMetadata GroundingMetadata `json:"groundingMetadata"`
}

func (TrendResult) Mode() Mode { return ModeTrend }

func (r TrendResult) Summary() string {
	if len(r.Trends) > 0 && strings.TrimSpace(r.Trends[0].Headline) != "" {
		return truncate(r.Trends[0].Headline, 120)
	}
	return fmt.Sprintf("%d trends", len(r.Trends))
}

// DecodeResult rehydrates a persisted result of the given mode.
func DecodeResult(mode Mode, raw []byte) (Result, error) {
	switch mode {
	case ModeGenerate:
		var r GenerationResult
		err := unmarshalInto(raw, &r)
		return r, err
	case ModeRefine:
		var r RefineResult
		err := unmarshalInto(raw, &r)
		return r, err
	case ModeSpy:
		var r SpyResult
		err := unmarshalInto(raw, &r)
		return r, err
	case ModeTrend:
		var r TrendResult
		err := unmarshalInto(raw, &r)
		return r, err
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

func unmarshalInto(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
