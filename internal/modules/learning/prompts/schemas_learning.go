package prompts

func LearnerMetadataSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"native_language": StringSchema(),
		"target_language": StringSchema(),
		"proficiency":     EnumSchema("beginner", "intermediate", "advanced"),
	}, []string{"native_language", "target_language", "proficiency"})
}

func LessonDraftSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"sub_topic":   StringSchema(),
		"keywords":    ArraySchema(StringSchema(), 1, 3),
		"description": StringSchema(),
	}, []string{"sub_topic", "keywords", "description"})
}

func CurriculumSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"title":        StringSchema(),
		"description":  StringSchema(),
		"lesson_topic": StringSchema(),
		"sub_topics":   ArraySchema(LessonDraftSchema(), 1, 0),
	}, []string{"title", "description", "lesson_topic", "sub_topics"})
}

func FlashcardsSchema() map[string]any {
	card := ObjectSchema(map[string]any{
		"word":       StringSchema(),
		"definition": StringSchema(),
		"example":    StringSchema(),
	}, []string{"word", "definition", "example"})
	return ObjectSchema(map[string]any{
		"flashcards": ArraySchema(card, 1, 0),
	}, []string{"flashcards"})
}

func ExercisesSchema() map[string]any {
	exercise := ObjectSchema(map[string]any{
		"sentence":    StringSchema(),
		"answer":      StringSchema(),
		"choices":     ArraySchema(StringSchema(), 4, 4),
		"explanation": OptionalStringSchema(),
	}, []string{"sentence", "answer", "choices"})
	return ObjectSchema(map[string]any{
		"exercises": ArraySchema(exercise, 1, 0),
	}, []string{"exercises"})
}

func SimulationSchema() map[string]any {
	segment := ObjectSchema(map[string]any{
		"speaker":                   StringSchema(),
		"target_language_text":      StringSchema(),
		"base_language_translation": StringSchema(),
		"phonetics":                 OptionalStringSchema(),
	}, []string{"speaker", "target_language_text", "base_language_translation"})
	return ObjectSchema(map[string]any{
		"title":    StringSchema(),
		"setting":  StringSchema(),
		"segments": ArraySchema(segment, 1, 0),
	}, []string{"title", "setting", "segments"})
}
