package qgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"ai-edulab-be/pkg/store"
)

// buildMaterialContext renders the source materials into a prompt
// block. With no materials the agent falls back to general-knowledge
// generation instead of failing.
func buildMaterialContext(materials []store.MaterialContent) string {
	if len(materials) == 0 {
		return "<source_material>\nNo source material provided. Generate from general knowledge of the topic.\n</source_material>\n"
	}

	var block strings.Builder
	block.WriteString("<source_material>\n")
	block.WriteString("Base every question on the material below. Cite the material id in sources.\n\n")
	for _, m := range materials {
		block.WriteString(fmt.Sprintf("--- MATERIAL: %s (id: %s) ---\n", m.Name, m.Id))
		block.WriteString(m.Content)
		block.WriteString("\n\n")
	}
	block.WriteString("</source_material>\n")
	return block.String()
}

// renderQuestions serializes the current artifact questions for
// inclusion in an update/rewrite prompt.
func renderQuestions(questions []store.GeneratedQuestion) string {
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func questionSchemaHint() string {
	var hint strings.Builder
	hint.WriteString("Respond ONLY with a JSON array. Each element:\n")
	hint.WriteString(`{"question_id": "...", "type": "multiple_choice|short_answer|true_false|essay", "difficulty": "easy|medium|hard", "cognitive_level": "...", "question": "...", "options": ["..."], "correct_answer": "...", "explanation": "...", "tags": ["..."]}`)
	hint.WriteString("\n")
	return hint.String()
}
