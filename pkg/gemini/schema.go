package gemini

import (
	"google.golang.org/genai"

	"veo-director/internal/types"
)

func analysisSchema() *genai.Schema {
	root := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{},
	}
	for _, group := range types.AnalysisFields {
		obj := &genai.Schema{
			Type:             genai.TypeObject,
			Properties:       map[string]*genai.Schema{},
			Required:         group.Fields,
			PropertyOrdering: group.Fields,
		}
		for _, field := range group.Fields {
			obj.Properties[field] = &genai.Schema{Type: genai.TypeString}
		}
		root.Properties[group.Name] = obj
		root.Required = append(root.Required, group.Name)
		root.PropertyOrdering = append(root.PropertyOrdering, group.Name)
	}
	return root
}

func scriptSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"timestamp":  {Type: genai.TypeString, Description: "e.g. 00:00 - 00:08"},
				"veo_prompt": {Type: genai.TypeString, Description: "The English prompt for Veo 3"},
			},
			Required:         []string{"timestamp", "veo_prompt"},
			PropertyOrdering: []string{"timestamp", "veo_prompt"},
		},
	}
}
