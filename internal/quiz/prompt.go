package quiz

import (
	"fmt"
	"strings"
)

func buildPrompt(topic string, count int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a quiz about the topic %q with exactly %d multiple-choice questions.\n\n", topic, count)

	b.WriteString("Keep it short, the quiz is shown inside a small game window:\n")
	b.WriteString("- every question is one simple sentence of at most 15 words;\n")
	b.WriteString("- every answer option is at most 5 words;\n")
	b.WriteString("- avoid jargon where a plain word works.\n\n")

	b.WriteString("Make it fresh: the questions must differ from quizzes you generated before on this topic, ")
	b.WriteString("and the wrong options must be plausible but clearly wrong.\n\n")

	b.WriteString("Reply with a single JSON object and nothing else, no markdown. ")
	b.WriteString(`The object has one key "questions", an array of objects with the keys:` + "\n")
	b.WriteString(`- "q": the question text;` + "\n")
	b.WriteString(`- "a": an array of exactly 4 distinct answer options;` + "\n")
	b.WriteString(`- "correct": the correct option, copied exactly from "a".` + "\n\n")
	b.WriteString(`Example element: {"q": "What is the capital of France?", "a": ["Berlin", "Madrid", "Paris", "Rome"], "correct": "Paris"}`)

	return b.String()
}

func buildListPrompt(topic string, count int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate a multiple-choice quiz about %q.\n", topic)
	fmt.Fprintf(&b, "The quiz should have %d questions.\n", count)
	b.WriteString("Each question must have exactly 4 answer options and a single correct answer.\n")
	b.WriteString("Format the output as a valid JSON array of objects, each with the keys:\n")
	b.WriteString(`- "question_text": the text of the question;` + "\n")
	b.WriteString(`- "options": an array of exactly 4 distinct answer options;` + "\n")
	b.WriteString(`- "correct_answer": the text of the correct option, copied exactly from "options".` + "\n")
	b.WriteString("Do not include any text before or after the JSON array.")

	return b.String()
}
