package catalog

import (
	"testing"
)

// TestDefaultCatalogComplete tests that every model is present with sane data
func TestDefaultCatalogComplete(t *testing.T) {
	cat := DefaultCatalog()

	expected := []ModelType{
		VideoInpainting, ObjectRemoval, ObjectReplacement, SegmentationSAM3,
		ObjectInsertion, BackgroundRemoval, StyleTransfer, ColorCorrection,
	}
	if len(cat.List()) != len(expected) {
		t.Fatalf("expected %d models, got %d", len(expected), len(cat.List()))
	}

	for _, id := range expected {
		model, ok := cat.Get(id)
		if !ok {
			t.Errorf("model %s missing", id)
			continue
		}
		if model.Name == "" || model.EstimatedTime <= 0 {
			t.Errorf("model %s has incomplete descriptor: %+v", id, model)
		}
	}
}

// TestEstimatedTimes tests the nominal durations
func TestEstimatedTimes(t *testing.T) {
	cat := DefaultCatalog()

	times := map[ModelType]int{
		VideoInpainting:   45,
		ObjectRemoval:     30,
		ObjectReplacement: 60,
		SegmentationSAM3:  15,
		ObjectInsertion:   90,
		BackgroundRemoval: 25,
		StyleTransfer:     120,
		ColorCorrection:   10,
	}
	for id, want := range times {
		model, _ := cat.Get(id)
		if model.EstimatedTime != want {
			t.Errorf("%s: expected %ds, got %ds", id, want, model.EstimatedTime)
		}
	}
}

// TestDefaults tests parameter default extraction
func TestDefaults(t *testing.T) {
	cat := DefaultCatalog()

	defaults := cat.Defaults(VideoInpainting)
	if defaults["quality"].Text != "high" {
		t.Errorf("expected quality high, got %q", defaults["quality"].Text)
	}
	if defaults["temporal_consistency"].Num != 0.8 {
		t.Errorf("expected temporal_consistency 0.8, got %v", defaults["temporal_consistency"].Num)
	}

	if got := cat.Defaults(ModelType("nope")); len(got) != 0 {
		t.Errorf("expected empty defaults for unknown model, got %v", got)
	}
}

// TestValidateValue tests type, range and option validation
func TestValidateValue(t *testing.T) {
	cat := DefaultCatalog()
	model, _ := cat.Get(VideoInpainting)

	var quality, temporal ParameterSpec
	for _, spec := range model.Parameters {
		switch spec.ID {
		case "quality":
			quality = spec
		case "temporal_consistency":
			temporal = spec
		}
	}

	if err := quality.Validate(Select("draft")); err != nil {
		t.Errorf("valid option rejected: %v", err)
	}
	if err := quality.Validate(Select("ultra")); err == nil {
		t.Error("invalid option accepted")
	}
	if err := quality.Validate(Number(3)); err == nil {
		t.Error("type mismatch accepted")
	}

	if err := temporal.Validate(Slider(0.5)); err != nil {
		t.Errorf("in-range slider rejected: %v", err)
	}
	if err := temporal.Validate(Slider(1.5)); err == nil {
		t.Error("out-of-range slider accepted")
	}
}
