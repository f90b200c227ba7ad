package prompts

// RegisterAll registers every prompt this service renders into r.
func RegisterAll(r *Registry) {
	r.RegisterSpec(Spec{
		Name:       PromptMetadata,
		Version:    1,
		SchemaName: "learner_metadata",
		Schema:     LearnerMetadataSchema,
		System: `
You identify who a language learner is from what they wrote.
Infer the language they already speak (native_language), the language they want to learn
(target_language) and their proficiency in the target language.
Use lowercase English language names such as "english" or "spanish".
proficiency must be one of: beginner, intermediate, advanced. Default to beginner when unclear.
If the native language is not stated, use the language the learner wrote in.
Return JSON only.`,
		User: `{{.RequestText}}`,
	})

	r.RegisterSpec(Spec{
		Name:       PromptCurriculum,
		Version:    1,
		SchemaName: "curriculum",
		Schema:     CurriculumSchema,
		System: `
You design short {{.TargetLanguage}} courses for {{.Proficiency}} learners whose native language is {{.NativeLanguage}}.
Write every title and description in {{.NativeLanguage}}.
Return JSON only.`,
		User: `
Learner request:
{{.RequestText}}

Output rules:
- title: a short course title.
- description: one or two sentences describing the course.
- lesson_topic: the overall theme the lessons share.
- sub_topics: exactly {{.LessonCount}} lessons in the order they should be taught.
- each sub_topic has a title (sub_topic), 1-3 short keywords and a one sentence description.`,
		Validators: []Validator{
			RequireNonEmpty("RequestText", func(in Input) string { return in.RequestText }),
			RequireLearner(),
			RequirePositive("LessonCount", func(in Input) int { return in.LessonCount }),
		},
	})

	r.RegisterSpec(Spec{
		Name:       PromptFlashcards,
		Version:    1,
		SchemaName: "lesson_flashcards",
		Schema:     FlashcardsSchema,
		System: `
You write vocabulary flashcards for a {{.Proficiency}} learner of {{.TargetLanguage}} whose native language is {{.NativeLanguage}}.
word and example are in {{.TargetLanguage}}; definition is in {{.NativeLanguage}}.
Return JSON only.`,
		User: `
Course theme: {{.LessonTopic}}
Lesson: {{.SubTopic}}
Keywords: {{.KeywordsCSV}}
Lesson description: {{.LessonDescription}}

Output rules:
- flashcards: {{.FlashcardCount}} cards covering the lesson vocabulary.
- each card has word, definition and one example sentence that uses the word.`,
		Validators: []Validator{
			RequireLearner(),
			RequireNonEmpty("SubTopic", func(in Input) string { return in.SubTopic }),
			RequirePositive("FlashcardCount", func(in Input) int { return in.FlashcardCount }),
		},
	})

	r.RegisterSpec(Spec{
		Name:       PromptExercises,
		Version:    1,
		SchemaName: "lesson_exercises",
		Schema:     ExercisesSchema,
		System: `
You write fill-in-the-blank exercises for a {{.Proficiency}} learner of {{.TargetLanguage}} whose native language is {{.NativeLanguage}}.
Sentences are in {{.TargetLanguage}}; explanations are in {{.NativeLanguage}}.
Return JSON only.`,
		User: `
Course theme: {{.LessonTopic}}
Lesson: {{.SubTopic}}
Keywords: {{.KeywordsCSV}}
Lesson description: {{.LessonDescription}}

Output rules:
- exercises: {{.ExerciseCount}} items.
- sentence contains exactly one blank written as "___".
- choices has exactly {{.ChoiceCount}} distinct options and exactly one of them equals answer.
- explanation says briefly why the answer is correct.`,
		Validators: []Validator{
			RequireLearner(),
			RequireNonEmpty("SubTopic", func(in Input) string { return in.SubTopic }),
			RequirePositive("ExerciseCount", func(in Input) int { return in.ExerciseCount }),
			RequirePositive("ChoiceCount", func(in Input) int { return in.ChoiceCount }),
		},
	})

	r.RegisterSpec(Spec{
		Name:       PromptSimulation,
		Version:    1,
		SchemaName: "lesson_simulation",
		Schema:     SimulationSchema,
		System: `
You write short role-play dialogues for a {{.Proficiency}} learner of {{.TargetLanguage}} whose native language is {{.NativeLanguage}}.
Each line is spoken in {{.TargetLanguage}} and translated into {{.NativeLanguage}}.
Return JSON only.`,
		User: `
Course theme: {{.LessonTopic}}
Lesson: {{.SubTopic}}
Keywords: {{.KeywordsCSV}}
Lesson description: {{.LessonDescription}}

Output rules:
- title and setting describe the scene in {{.NativeLanguage}}.
- segments: between {{.MinSegments}} and {{.MaxSegments}} lines of dialogue in order.
- each segment has speaker, target_language_text, base_language_translation and optional phonetics.`,
		Validators: []Validator{
			RequireLearner(),
			RequireNonEmpty("SubTopic", func(in Input) string { return in.SubTopic }),
			RequireSegmentRange(),
		},
	})
}
