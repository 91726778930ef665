package planner

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rohanthewiz/serr"
	"vedit/catalog"
)

// PlanSynthesizer turns a classified intent into an ordered,
// dependency-annotated execution plan using the model catalog
type PlanSynthesizer struct {
	catalog *catalog.Catalog
}

// NewPlanSynthesizer creates a synthesizer over the given catalog
func NewPlanSynthesizer(cat *catalog.Catalog) *PlanSynthesizer {
	return &PlanSynthesizer{catalog: cat}
}

// Synthesize builds an execution plan for the analysis. Synthesis is
// synchronous and deterministic apart from generated ids; a missing catalog
// descriptor is an invariant violation, not a runtime condition.
func (s *PlanSynthesizer) Synthesize(prompt string, analysis PlannerAnalysis) (*ExecutionPlan, error) {
	var steps []ExecutionStep
	var err error

	intent := analysis.Intent
	switch intent.Action {
	case ActionRemove:
		steps, err = s.buildRemovalSteps(intent)
	case ActionReplace:
		steps, err = s.buildReplacementSteps(intent)
	case ActionInsert:
		steps, err = s.buildInsertionSteps(intent)
	case ActionInpaint:
		steps, err = s.buildInpaintingSteps(intent)
	case ActionSegment:
		steps, err = s.buildSegmentationSteps(intent)
	case ActionCorrect:
		steps, err = s.buildCorrectionSteps(intent)
	case ActionComposite:
		steps, err = s.buildCompositeSteps()
	default:
		steps, err = s.buildFallbackSteps()
	}
	if err != nil {
		return nil, err
	}

	if err := validateDependencies(steps); err != nil {
		return nil, serr.Wrap(err, "synthesized plan has an invalid dependency graph")
	}

	total := 0
	for i := range steps {
		steps[i].Order = i
		total += steps[i].EstimatedTime
	}

	now := time.Now()
	return &ExecutionPlan{
		ID:                 uuid.New().String(),
		Prompt:             prompt,
		Steps:              steps,
		CreatedAt:          now,
		UpdatedAt:          now,
		TotalEstimatedTime: total,
		Status:             PlanStatusPendingApproval,
		CurrentStepIndex:   0,
	}, nil
}

func (s *PlanSynthesizer) buildRemovalSteps(intent PlannerIntent) ([]ExecutionStep, error) {
	seg, err := s.newStep(stepSpec{
		modelType:   catalog.SegmentationSAM3,
		explanation: fmt.Sprintf("First, I'll use SAM 3 to precisely segment %q. This creates an accurate mask for removal.", intent.Target),
		parameters: map[string]catalog.Value{
			"mode":         catalog.Select("auto"),
			"refine_edges": catalog.Boolean(true),
		},
		recommended: true,
	})
	if err != nil {
		return nil, err
	}

	removal, err := s.newStep(stepSpec{
		modelType:   catalog.ObjectRemoval,
		explanation: "Now I'll remove the segmented object using intelligent inpainting to fill the background naturally.",
		parameters: map[string]catalog.Value{
			"auto_detect": catalog.Boolean(false),
			"feather":     catalog.Slider(0.3),
		},
		dependencies: []string{seg.ID},
		recommended:  true,
	})
	if err != nil {
		return nil, err
	}

	return []ExecutionStep{seg, removal}, nil
}

func (s *PlanSynthesizer) buildReplacementSteps(intent PlannerIntent) ([]ExecutionStep, error) {
	seg, err := s.newStep(stepSpec{
		modelType:   catalog.SegmentationSAM3,
		explanation: fmt.Sprintf("I'll start by segmenting %q to create a precise mask for replacement.", intent.Target),
		parameters: map[string]catalog.Value{
			"mode":         catalog.Select("auto"),
			"refine_edges": catalog.Boolean(true),
		},
		recommended: true,
	})
	if err != nil {
		return nil, err
	}

	replacement := intent.Replacement
	if replacement == "" {
		replacement = "new object"
	}

	repl, err := s.newStep(stepSpec{
		modelType:   catalog.ObjectReplacement,
		explanation: fmt.Sprintf("Now I'll replace the segmented area with %q while preserving lighting and perspective.", replacement),
		parameters: map[string]catalog.Value{
			"prompt":            catalog.Text(replacement),
			"preserve_lighting": catalog.Boolean(true),
		},
		dependencies: []string{seg.ID},
		recommended:  true,
	})
	if err != nil {
		return nil, err
	}

	return []ExecutionStep{seg, repl}, nil
}

func (s *PlanSynthesizer) buildInsertionSteps(intent PlannerIntent) ([]ExecutionStep, error) {
	// Placement analysis is optional; the insertion itself still depends on
	// it when present.
	seg, err := s.newStep(stepSpec{
		modelType:   catalog.SegmentationSAM3,
		explanation: fmt.Sprintf("I'll analyze the scene structure to determine optimal placement for %q.", intent.Target),
		parameters: map[string]catalog.Value{
			"mode":         catalog.Select("auto"),
			"refine_edges": catalog.Boolean(true),
		},
		optional:    true,
		recommended: true,
	})
	if err != nil {
		return nil, err
	}

	ins, err := s.newStep(stepSpec{
		modelType:   catalog.ObjectInsertion,
		explanation: fmt.Sprintf("I'll insert %q into the scene with realistic lighting and shadows.", intent.Target),
		parameters: map[string]catalog.Value{
			"prompt":   catalog.Text(intent.Target),
			"position": catalog.Select("center"),
		},
		dependencies: []string{seg.ID},
		recommended:  true,
	})
	if err != nil {
		return nil, err
	}

	return []ExecutionStep{seg, ins}, nil
}

func (s *PlanSynthesizer) buildInpaintingSteps(intent PlannerIntent) ([]ExecutionStep, error) {
	target := intent.Target
	if target == "" {
		target = "the specified region"
	}

	step, err := s.newStep(stepSpec{
		modelType:   catalog.VideoInpainting,
		explanation: fmt.Sprintf("I'll use ProPainter to inpaint %q with high-quality, temporally consistent results.", target),
		parameters: map[string]catalog.Value{
			"quality":              catalog.Select("standard"),
			"temporal_consistency": catalog.Slider(0.8),
		},
		recommended: true,
	})
	if err != nil {
		return nil, err
	}
	return []ExecutionStep{step}, nil
}

func (s *PlanSynthesizer) buildSegmentationSteps(intent PlannerIntent) ([]ExecutionStep, error) {
	target := intent.Target
	mode := "auto"
	if target != "" {
		mode = "text"
	} else {
		target = "the specified objects"
	}

	step, err := s.newStep(stepSpec{
		modelType:   catalog.SegmentationSAM3,
		explanation: fmt.Sprintf("I'll segment %q using SAM 3 for precise isolation.", target),
		parameters: map[string]catalog.Value{
			"mode":         catalog.Select(mode),
			"refine_edges": catalog.Boolean(true),
		},
		recommended: true,
	})
	if err != nil {
		return nil, err
	}
	return []ExecutionStep{step}, nil
}

func (s *PlanSynthesizer) buildCorrectionSteps(intent PlannerIntent) ([]ExecutionStep, error) {
	target := intent.Target
	if target == "" {
		target = "the video"
	}

	step, err := s.newStep(stepSpec{
		modelType:   catalog.ColorCorrection,
		explanation: fmt.Sprintf("I'll apply color correction to adjust %s with fine-tuned parameters.", target),
		parameters: map[string]catalog.Value{
			"exposure":   catalog.Slider(0),
			"contrast":   catalog.Slider(0.1),
			"saturation": catalog.Slider(0),
		},
		recommended: true,
	})
	if err != nil {
		return nil, err
	}
	return []ExecutionStep{step}, nil
}

func (s *PlanSynthesizer) buildCompositeSteps() ([]ExecutionStep, error) {
	seg, err := s.newStep(stepSpec{
		modelType:   catalog.SegmentationSAM3,
		explanation: "I'll start by segmenting the elements that need to be composited.",
		parameters: map[string]catalog.Value{
			"mode":         catalog.Select("auto"),
			"refine_edges": catalog.Boolean(true),
		},
		recommended: true,
	})
	if err != nil {
		return nil, err
	}

	blend, err := s.newStep(stepSpec{
		modelType:   catalog.VideoInpainting,
		explanation: "Then I'll blend the composited elements with the background for seamless integration.",
		parameters: map[string]catalog.Value{
			"quality":              catalog.Select("high"),
			"temporal_consistency": catalog.Slider(0.9),
		},
		dependencies: []string{seg.ID},
		recommended:  true,
	})
	if err != nil {
		return nil, err
	}

	return []ExecutionStep{seg, blend}, nil
}

// buildFallbackSteps covers an intent with no dedicated strategy
func (s *PlanSynthesizer) buildFallbackSteps() ([]ExecutionStep, error) {
	step, err := s.newStep(stepSpec{
		modelType:   catalog.VideoInpainting,
		explanation: "I'll apply general video inpainting to address your request.",
		parameters: map[string]catalog.Value{
			"quality":              catalog.Select("standard"),
			"temporal_consistency": catalog.Slider(0.7),
		},
		recommended: true,
	})
	if err != nil {
		return nil, err
	}
	return []ExecutionStep{step}, nil
}

type stepSpec struct {
	modelType    catalog.ModelType
	explanation  string
	parameters   map[string]catalog.Value
	dependencies []string
	optional     bool
	recommended  bool
}

func (s *PlanSynthesizer) newStep(spec stepSpec) (ExecutionStep, error) {
	model, ok := s.catalog.Get(spec.modelType)
	if !ok {
		return ExecutionStep{}, serr.New(fmt.Sprintf("catalog has no descriptor for model %s", spec.modelType))
	}

	deps := spec.dependencies
	if deps == nil {
		deps = []string{}
	}

	return ExecutionStep{
		ID:            uuid.New().String(),
		Order:         0,
		ModelType:     spec.modelType,
		ModelName:     model.Name,
		Status:        StepStatusPending,
		Parameters:    spec.parameters,
		Explanation:   spec.explanation,
		EstimatedTime: model.EstimatedTime,
		Dependencies:  deps,
		IsOptional:    spec.optional,
		IsRecommended: spec.recommended,
	}, nil
}
