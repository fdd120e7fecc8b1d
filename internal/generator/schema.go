package generator

import "google.golang.org/genai"

func styleSchema(description string) *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: description,
		Properties: map[string]*genai.Schema{
			"top":             str("CSS top position (e.g., '10px', '20%')"),
			"left":            str("CSS left position (e.g., '10px', '20%')"),
			"width":           str("CSS width (e.g., '100px', '50%')"),
			"height":          str("CSS height (e.g., '100px', '50%')"),
			"backgroundColor": str("TailwindCSS background color class (e.g., 'bg-sky-500')"),
			"borderColor":     str("TailwindCSS border color class (e.g., 'border-red-500')"),
			"color":           str("TailwindCSS text color class (e.g., 'text-white')"),
			"opacity":         {Type: genai.TypeNumber, Description: "Opacity from 0 to 1"},
			"content":         str("Text or code content of the element"),
			"fontSize":        str("TailwindCSS font size class (e.g., 'text-lg')"),
			"zIndex":          {Type: genai.TypeNumber, Description: "CSS z-index"},
			"transform":       str("CSS transform property (e.g., 'rotate(45deg)')"),
			"transformOrigin": str("CSS transform-origin property (e.g., '0 0')"),
			"borderWidth":     str("TailwindCSS border width class (e.g., 'border-2')"),
			"borderStyle":     str("TailwindCSS border style class (e.g., 'border-dashed')"),
			"whiteSpace":      {Type: genai.TypeString, Enum: []string{"pre-wrap", "normal"}, Description: "CSS white-space property"},
		},
	}
}

// childElementSchema describes elements inside a container. They cannot have children.
func childElementSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":    {Type: genai.TypeString, Description: "Unique identifier for the element."},
			"type":  {Type: genai.TypeString, Enum: []string{"box", "text", "code", "pointer"}, Description: "The type of non-container element to render."},
			"style": styleSchema(""),
		},
		Required: []string{"id", "type", "style"},
	}
}

func elementSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":    {Type: genai.TypeString, Description: "Unique identifier for the element."},
			"type":  {Type: genai.TypeString, Enum: []string{"box", "text", "code", "pointer", "array"}, Description: "The type of element to render."},
			"style": styleSchema(""),
			"children": {
				Type:        genai.TypeArray,
				Description: "Child elements for composite elements like 'array'. Child elements cannot have their own children.",
				Items:       childElementSchema(),
			},
		},
		Required: []string{"id", "type", "style"},
	}
}

// planSchema is the response schema sent with every generation request.
func planSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"scene": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"width":  {Type: genai.TypeNumber, Description: "The width of the animation canvas in pixels."},
					"height": {Type: genai.TypeNumber, Description: "The height of the animation canvas in pixels."},
				},
				Required: []string{"width", "height"},
			},
			"elements": {
				Type:        genai.TypeArray,
				Description: "The initial set of elements on the canvas.",
				Items:       elementSchema(),
			},
			"steps": {
				Type:        genai.TypeArray,
				Description: "The sequence of animation steps.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"description": {Type: genai.TypeString, Description: "Text description of what is happening in this step."},
						"actions": {
							Type:        genai.TypeArray,
							Description: "The actions to perform in this step.",
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"elementId": {Type: genai.TypeString, Description: "The ID of the element to animate."},
									"type":      {Type: genai.TypeString, Enum: []string{"UPDATE", "FADE_IN", "FADE_OUT"}, Description: "The type of action to perform."},
									"payload":   styleSchema("The style properties to apply for an 'UPDATE' action."),
								},
								Required: []string{"elementId", "type"},
							},
						},
						"duration": {Type: genai.TypeNumber, Description: "Optional duration for this step in milliseconds."},
					},
					Required: []string{"description", "actions"},
				},
			},
		},
		Required: []string{"scene", "elements", "steps"},
	}
}
