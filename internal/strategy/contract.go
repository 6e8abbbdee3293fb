package strategy

import (
	"sort"

	"viral-strategy-ai/internal/gemini"
)

// Models selects the model variants used per mode.
type Models struct {
	Default            string
	Deep               string
	DeepThinkingBudget int
}

func DefaultModels() Models {
	return Models{
		Default:            gemini.DefaultModel,
		Deep:               gemini.DeepModel,
		DeepThinkingBudget: 32768,
	}
}

// Contract is how the outbound request makes the reply machine-parseable. Schema and Search
// are mutually exclusive.
type Contract struct {
	Model          string
	Schema         *gemini.Schema
	Search         bool
	ThinkingBudget int
}

// Structured reports whether the mode's reply is schema-constrained.
func Structured(mode Mode) bool {
	return mode == ModeGenerate || mode == ModeRefine
}

func ContractFor(mode Mode, models Models) Contract {
	d := DefaultModels()
	if models.Default == "" {
		models.Default = d.Default
	}
	if models.Deep == "" {
		models.Deep = d.Deep
	}

	switch mode {
	case ModeRefine:
		return Contract{Model: models.Deep, Schema: refineSchema(), ThinkingBudget: models.DeepThinkingBudget}
	case ModeSpy, ModeTrend:
		return Contract{Model: models.Default, Search: true}
	default:
		return Contract{Model: models.Default, Schema: generationSchema()}
	}
}

// Apply copies the contract onto a request.
func (c Contract) Apply(req gemini.Request) gemini.Request {
	req.Model = c.Model
	req.Schema = c.Schema
	req.Search = c.Search
	req.ThinkingBudget = c.ThinkingBudget
	return req
}

func generationSchema() *gemini.Schema {
	return object(map[string]*gemini.Schema{
		"virality": object(map[string]*gemini.Schema{
			"score":   score(),
			"verdict": str("One-sentence verdict on the viral potential"),
			"drivers": strList("What pushes reach up"),
			"risks":   strList("What could hold it back"),
		}, "score", "verdict", "drivers"),
		"strategy": object(map[string]*gemini.Schema{
			"hook":         str("Opening line or first-seconds hook"),
			"caption":      str("Ready-to-post caption"),
			"script":       strList("Beat-by-beat script or slide outline"),
			"callToAction": str("Call to action"),
			"hashtags":     strList("Hashtags without the # sign"),
			"postingTime":  str("Best posting window"),
			"visualIdeas":  strList("Shot, thumbnail or design ideas"),
		}, "hook", "caption", "callToAction", "hashtags"),
		"seo": object(map[string]*gemini.Schema{
			"title":       str("Search-optimized title"),
			"description": str("Search-optimized description"),
			"keywords":    strList("Search keywords"),
			"tags":        strList("Platform tags"),
		}, "keywords"),
		"optimizationIdeas": strList("Concrete ideas that would raise the score"),
	}, "virality", "strategy", "seo", "optimizationIdeas")
}

func refineSchema() *gemini.Schema {
	refineData := object(map[string]*gemini.Schema{
		"baselineScore": score(),
		"finalScore":    score(),
		"audit": object(map[string]*gemini.Schema{
			"strengths":  strList("What already works"),
			"weaknesses": strList("What hurts performance"),
			"hookReview": str("Assessment of the opening hook"),
		}, "strengths", "weaknesses"),
		"refinedContent": object(map[string]*gemini.Schema{
			"title":        str("Refined title"),
			"hook":         str("Refined hook"),
			"body":         str("Refined full text"),
			"callToAction": str("Refined call to action"),
			"hashtags":     strList("Hashtags without the # sign"),
		}, "hook", "body"),
		"changes": strList("Each change made and why"),
	}, "baselineScore", "finalScore", "audit", "refinedContent", "changes")

	return object(map[string]*gemini.Schema{"refineData": refineData}, "refineData")
}

func object(props map[string]*gemini.Schema, required ...string) *gemini.Schema {
	ordering := append([]string(nil), required...)
	for _, key := range sortedKeys(props) {
		if !contains(ordering, key) {
			ordering = append(ordering, key)
		}
	}
	return &gemini.Schema{Type: "OBJECT", Properties: props, Required: required, PropertyOrdering: ordering}
}

func str(desc string) *gemini.Schema {
	return &gemini.Schema{Type: "STRING", Description: desc}
}

func strList(desc string) *gemini.Schema {
	return &gemini.Schema{Type: "ARRAY", Description: desc, Items: &gemini.Schema{Type: "STRING"}}
}

func score() *gemini.Schema {
	lo, hi := 0.0, 100.0
	return &gemini.Schema{Type: "INTEGER", Description: "Score from 0 to 100", Minimum: &lo, Maximum: &hi}
}

func sortedKeys(m map[string]*gemini.Schema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
