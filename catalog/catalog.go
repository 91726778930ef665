package catalog

// ModelType identifies a processing operation handled by the model backend
type ModelType string

const (
	VideoInpainting   ModelType = "video_inpainting"
	ObjectRemoval     ModelType = "object_removal"
	ObjectReplacement ModelType = "object_replacement"
	SegmentationSAM3  ModelType = "segmentation_sam3"
	ObjectInsertion   ModelType = "object_insertion"
	BackgroundRemoval ModelType = "background_removal"
	StyleTransfer     ModelType = "style_transfer"
	ColorCorrection   ModelType = "color_correction"
)

// Category groups models by the kind of work they do
type Category string

const (
	CategoryInpainting   Category = "inpainting"
	CategorySegmentation Category = "segmentation"
	CategoryGeneration   Category = "generation"
	CategoryCorrection   Category = "correction"
)

// Option is one selectable value of a select parameter
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ParameterSpec describes one parameter of a model
type ParameterSpec struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Default     Value     `json:"default"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Step        *float64  `json:"step,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	Description string    `json:"description,omitempty"`
}

// ModelDescriptor describes one model available to plans and manual steps.
// Descriptors are created once at process start and never mutated.
type ModelDescriptor struct {
	ID             ModelType       `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Category       Category        `json:"category"`
	EstimatedTime  int             `json:"estimated_time"` // seconds, nominal
	RequiresMask   bool            `json:"requires_mask"`
	RequiresPrompt bool            `json:"requires_prompt"`
	Parameters     []ParameterSpec `json:"parameters"`
}

// Catalog is the static registry of available models
type Catalog struct {
	models []ModelDescriptor
	byID   map[ModelType]*ModelDescriptor
}

// New builds a catalog from descriptors
func New(models []ModelDescriptor) *Catalog {
	c := &Catalog{
		models: models,
		byID:   make(map[ModelType]*ModelDescriptor, len(models)),
	}
	for i := range c.models {
		c.byID[c.models[i].ID] = &c.models[i]
	}
	return c
}

// Get returns the descriptor for a model type
func (c *Catalog) Get(id ModelType) (*ModelDescriptor, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// List returns all descriptors in declaration order
func (c *Catalog) List() []ModelDescriptor {
	out := make([]ModelDescriptor, len(c.models))
	copy(out, c.models)
	return out
}

// Defaults returns a parameter map pre-filled with each spec's default value
func (c *Catalog) Defaults(id ModelType) map[string]Value {
	m, ok := c.byID[id]
	if !ok {
		return map[string]Value{}
	}
	params := make(map[string]Value, len(m.Parameters))
	for _, spec := range m.Parameters {
		params[spec.ID] = spec.Default
	}
	return params
}

func fp(v float64) *float64 { return &v }

// DefaultCatalog returns the built-in model registry
func DefaultCatalog() *Catalog {
	return New([]ModelDescriptor{
		{
			ID:            VideoInpainting,
			Name:          "Video Inpainting",
			Description:   "Remove unwanted objects and fill the background naturally using ProPainter",
			Category:      CategoryInpainting,
			EstimatedTime: 45,
			RequiresMask:  true,
			Parameters: []ParameterSpec{
				{
					ID: "quality", Name: "Quality", Type: ParamSelect, Default: Select("high"),
					Options: []Option{
						{Label: "Draft (Fast)", Value: "draft"},
						{Label: "Standard", Value: "standard"},
						{Label: "High Quality", Value: "high"},
					},
					Description: "Trade-off between quality and processing time",
				},
				{
					ID: "temporal_consistency", Name: "Temporal Consistency", Type: ParamSlider,
					Default: Slider(0.8), Min: fp(0), Max: fp(1), Step: fp(0.1),
					Description: "Ensure consistency across frames",
				},
			},
		},
		{
			ID:            ObjectRemoval,
			Name:          "Object Removal",
			Description:   "Detect and remove objects automatically",
			Category:      CategoryInpainting,
			EstimatedTime: 30,
			RequiresMask:  true,
			Parameters: []ParameterSpec{
				{
					ID: "auto_detect", Name: "Auto Detect", Type: ParamBoolean, Default: Boolean(true),
					Description: "Automatically detect object boundaries",
				},
				{
					ID: "feather", Name: "Edge Feather", Type: ParamSlider,
					Default: Slider(0.3), Min: fp(0), Max: fp(1), Step: fp(0.05),
					Description: "Smooth edges of removed area",
				},
			},
		},
		{
			ID:             ObjectReplacement,
			Name:           "Object Replacement",
			Description:    "Replace objects with new content while maintaining lighting and perspective",
			Category:       CategoryGeneration,
			EstimatedTime:  60,
			RequiresMask:   true,
			RequiresPrompt: true,
			Parameters: []ParameterSpec{
				{
					ID: "prompt", Name: "Replacement Description", Type: ParamText, Default: Text(""),
					Description: "Describe what to replace the object with",
				},
				{
					ID: "preserve_lighting", Name: "Preserve Lighting", Type: ParamBoolean, Default: Boolean(true),
					Description: "Match lighting of the original scene",
				},
			},
		},
		{
			ID:            SegmentationSAM3,
			Name:          "SAM 3 Segmentation",
			Description:   "Advanced segmentation using Segment Anything Model 3",
			Category:      CategorySegmentation,
			EstimatedTime: 15,
			Parameters: []ParameterSpec{
				{
					ID: "mode", Name: "Segmentation Mode", Type: ParamSelect, Default: Select("auto"),
					Options: []Option{
						{Label: "Auto (All Objects)", Value: "auto"},
						{Label: "Point Prompt", Value: "point"},
						{Label: "Box Prompt", Value: "box"},
						{Label: "Text Prompt", Value: "text"},
					},
					Description: "How to select objects for segmentation",
				},
				{
					ID: "refine_edges", Name: "Refine Edges", Type: ParamBoolean, Default: Boolean(true),
					Description: "Apply edge refinement",
				},
			},
		},
		{
			ID:             ObjectInsertion,
			Name:           "Object Insertion",
			Description:    "Insert new objects into the video with realistic blending",
			Category:       CategoryGeneration,
			EstimatedTime:  90,
			RequiresMask:   true,
			RequiresPrompt: true,
			Parameters: []ParameterSpec{
				{
					ID: "prompt", Name: "Object Description", Type: ParamText, Default: Text(""),
					Description: "Describe the object to insert",
				},
				{
					ID: "position", Name: "Position", Type: ParamSelect, Default: Select("center"),
					Options: []Option{
						{Label: "Center", Value: "center"},
						{Label: "Foreground", Value: "foreground"},
						{Label: "Background", Value: "background"},
					},
					Description: "Depth placement of the object",
				},
			},
		},
		{
			ID:            BackgroundRemoval,
			Name:          "Background Removal",
			Description:   "Remove the background while keeping foreground subjects",
			Category:      CategorySegmentation,
			EstimatedTime: 25,
			Parameters: []ParameterSpec{
				{
					ID: "subject", Name: "Subject Selection", Type: ParamSelect, Default: Select("auto"),
					Options: []Option{
						{Label: "Auto-detect", Value: "auto"},
						{Label: "Person", Value: "person"},
						{Label: "Custom", Value: "custom"},
					},
					Description: "What to keep as foreground",
				},
			},
		},
		{
			ID:             StyleTransfer,
			Name:           "Style Transfer",
			Description:    "Apply artistic styles to video",
			Category:       CategoryGeneration,
			EstimatedTime:  120,
			RequiresPrompt: true,
			Parameters: []ParameterSpec{
				{
					ID: "style", Name: "Style", Type: ParamSelect, Default: Select("cinematic"),
					Options: []Option{
						{Label: "Cinematic", Value: "cinematic"},
						{Label: "Vintage", Value: "vintage"},
						{Label: "Noir", Value: "noir"},
						{Label: "Anime", Value: "anime"},
						{Label: "Custom", Value: "custom"},
					},
					Description: "Choose a visual style",
				},
				{
					ID: "intensity", Name: "Intensity", Type: ParamSlider,
					Default: Slider(0.7), Min: fp(0), Max: fp(1), Step: fp(0.1),
					Description: "How strongly to apply the style",
				},
			},
		},
		{
			ID:            ColorCorrection,
			Name:          "Color Correction",
			Description:   "Adjust colors, exposure, and tone",
			Category:      CategoryCorrection,
			EstimatedTime: 10,
			Parameters: []ParameterSpec{
				{
					ID: "exposure", Name: "Exposure", Type: ParamSlider,
					Default: Slider(0), Min: fp(-1), Max: fp(1), Step: fp(0.1),
					Description: "Adjust brightness",
				},
				{
					ID: "contrast", Name: "Contrast", Type: ParamSlider,
					Default: Slider(0), Min: fp(-1), Max: fp(1), Step: fp(0.1),
					Description: "Adjust contrast",
				},
				{
					ID: "saturation", Name: "Saturation", Type: ParamSlider,
					Default: Slider(0), Min: fp(-1), Max: fp(1), Step: fp(0.1),
					Description: "Adjust color saturation",
				},
			},
		},
	})
}
