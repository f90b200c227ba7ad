package prompts

type PromptName string

const (
	PromptMetadata   PromptName = "learner_metadata"
	PromptCurriculum PromptName = "curriculum"
	PromptFlashcards PromptName = "lesson_flashcards"
	PromptExercises  PromptName = "lesson_exercises"
	PromptSimulation PromptName = "lesson_simulation"
)
