package prompts

// Input is a superset of all fields any prompt might need.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	// Learner request
	RequestText string

	// Learner metadata
	NativeLanguage string
	TargetLanguage string
	Proficiency    string

	// Curriculum planning
	LessonCount int

	// Lesson
	LessonTopic       string
	SubTopic          string
	KeywordsCSV       string
	LessonDescription string

	// Artifact contracts
	FlashcardCount int
	ExerciseCount  int
	ChoiceCount    int
	MinSegments    int
	MaxSegments    int
}
