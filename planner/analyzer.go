package planner

import (
	"fmt"
	"regexp"
	"strings"
)

// PromptAnalyzer classifies free-text editing instructions into structured
// intents using a fixed, ordered rule table. It is a pure function of its
// input plus the table; classification never fails (see the inpaint
// fallback in AnalyzePrompt).
type PromptAnalyzer struct {
	rules []intentRule
}

// intentRule owns the detection patterns, target action, base confidence and
// capturing extractor for one intent
type intentRule struct {
	patterns   []*regexp.Regexp
	action     IntentAction
	confidence float64
	extract    *regexp.Regexp
}

// NewPromptAnalyzer creates an analyzer with the built-in rule table
func NewPromptAnalyzer() *PromptAnalyzer {
	return &PromptAnalyzer{rules: intentRules()}
}

func intentRules() []intentRule {
	return []intentRule{
		{
			patterns: compileAll(
				`remove\s+(?:the\s+)?(.+)`,
				`delete\s+(?:the\s+)?(.+)`,
				`erase\s+(?:the\s+)?(.+)`,
				`get\s+rid\s+of\s+(?:the\s+)?(.+)`,
				`take\s+out\s+(?:the\s+)?(.+)`,
			),
			action:     ActionRemove,
			confidence: 0.9,
			extract:    regexp.MustCompile(`(?:remove|delete|erase|get rid of|take out)\s+(?:the\s+)?(.+)`),
		},
		{
			patterns: compileAll(
				`replace\s+(?:the\s+)?(.+?)\s+with\s+(.+)`,
				`swap\s+(?:the\s+)?(.+?)\s+for\s+(.+)`,
				`change\s+(?:the\s+)?(.+?)\s+to\s+(.+)`,
			),
			action:     ActionReplace,
			confidence: 0.92,
			extract:    regexp.MustCompile(`(?:replace|swap|change)\s+(?:the\s+)?(.+?)\s+(?:with|for|to)\s+(?:a\s+|an\s+|the\s+)?(.+)`),
		},
		{
			patterns: compileAll(
				`add\s+(?:a\s+)?(.+)`,
				`insert\s+(?:a\s+)?(.+)`,
				`put\s+(?:a\s+)?(.+)`,
				`place\s+(?:a\s+)?(.+)`,
			),
			action:     ActionInsert,
			confidence: 0.85,
			extract:    regexp.MustCompile(`(?:add|insert|put|place)\s+(?:a\s+)?(.+)`),
		},
		{
			patterns: compileAll(
				`inpaint\s+(?:the\s+)?(.+)`,
				`fill\s+(?:the\s+)?(.+)`,
				`fix\s+(?:the\s+)?(.+)`,
				`repair\s+(?:the\s+)?(.+)`,
			),
			action:     ActionInpaint,
			confidence: 0.88,
			extract:    regexp.MustCompile(`(?:inpaint|fill|fix|repair)\s+(?:the\s+)?(.+)`),
		},
		{
			patterns: compileAll(
				`segment\s+(?:the\s+)?(.+)`,
				`isolate\s+(?:the\s+)?(.+)`,
				`mask\s+(?:the\s+)?(.+)`,
				`select\s+(?:the\s+)?(.+)`,
			),
			action:     ActionSegment,
			confidence: 0.87,
			extract:    regexp.MustCompile(`(?:segment|isolate|mask|select)\s+(?:the\s+)?(.+)`),
		},
		{
			patterns: compileAll(
				`correct\s+(?:the\s+)?(.+)`,
				`adjust\s+(?:the\s+)?(.+)`,
				`fix\s+(?:the\s+)?color`,
				`enhance\s+(?:the\s+)?(.+)`,
				`improve\s+(?:the\s+)?(.+)`,
			),
			action:     ActionCorrect,
			confidence: 0.82,
			extract:    regexp.MustCompile(`(?:correct|adjust|enhance|improve)\s+(?:the\s+)?(.+)`),
		},
		{
			patterns: compileAll(
				`composite\s+(?:the\s+)?(.+)`,
				`combine\s+(?:the\s+)?(.+)`,
				`merge\s+(?:the\s+)?(.+)`,
				`blend\s+(?:the\s+)?(.+)`,
			),
			action:     ActionComposite,
			confidence: 0.8,
			extract:    regexp.MustCompile(`(?:composite|combine|merge|blend)\s+(?:the\s+)?(.+)`),
		},
	}
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// commonObjects is the fixed vocabulary of scene-object nouns scanned for
// complexity scoring and reasoning text. It never affects the action choice.
var commonObjects = []string{
	"person", "people", "man", "woman", "child", "car", "vehicle", "truck",
	"building", "house", "tree", "sky", "ground", "road", "water", "sign",
	"pole", "wire", "shadow", "reflection", "logo", "text", "glare", "noise",
	"background", "foreground", "subject", "object", "item", "product",
}

// AnalyzePrompt classifies an instruction. All rules are evaluated; the
// matching rule with the highest confidence wins, ties broken by declaration
// order. When nothing matches, the intent falls back to inpaint at 0.6.
func (a *PromptAnalyzer) AnalyzePrompt(prompt string) PlannerAnalysis {
	normalized := strings.ToLower(strings.TrimSpace(prompt))

	var best *PlannerIntent
	for _, rule := range a.rules {
		for _, re := range rule.patterns {
			if !re.MatchString(normalized) {
				continue
			}
			if best != nil && rule.confidence <= best.Confidence {
				continue
			}
			intent := PlannerIntent{
				Action:     rule.action,
				Confidence: rule.confidence,
			}
			if m := rule.extract.FindStringSubmatch(normalized); m != nil {
				intent.Target = strings.TrimSpace(m[1])
				if len(m) > 2 {
					intent.Replacement = strings.TrimSpace(m[2])
				}
			}
			best = &intent
		}
	}

	var objects []string
	for _, obj := range commonObjects {
		if strings.Contains(normalized, obj) {
			objects = append(objects, obj)
		}
	}

	complexity := ComplexityLow
	switch {
	case len(normalized) > 100 || len(objects) > 3:
		complexity = ComplexityHigh
	case len(normalized) > 50 || len(objects) > 1:
		complexity = ComplexityMedium
	}

	if best == nil {
		best = &PlannerIntent{Action: ActionInpaint, Confidence: 0.6}
	}

	return PlannerAnalysis{
		Intent:          *best,
		DetectedObjects: objects,
		Complexity:      complexity,
		Reasoning:       buildReasoning(*best, objects, complexity),
	}
}

var actionDescriptions = map[IntentAction]string{
	ActionRemove:    "remove an object from the video",
	ActionReplace:   "replace one object with another",
	ActionInsert:    "add a new object to the scene",
	ActionInpaint:   "fill in or repair a region",
	ActionSegment:   "isolate and mask specific objects",
	ActionCorrect:   "adjust colors or exposure",
	ActionComposite: "combine multiple elements",
}

func buildReasoning(intent PlannerIntent, objects []string, complexity Complexity) string {
	desc, ok := actionDescriptions[intent.Action]
	if !ok {
		desc = "process the video"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I detected intent to %s.", desc)
	if intent.Target != "" {
		fmt.Fprintf(&b, " Target: %q.", intent.Target)
	}
	if len(objects) > 0 {
		fmt.Fprintf(&b, " Detected objects: %s.", strings.Join(objects, ", "))
	}
	fmt.Fprintf(&b, " Complexity: %s (based on prompt length and object count).", complexity)
	return b.String()
}
