package generation

import (
	"fmt"
	"strings"
)

const OptionsPerQuestion = 4

const systemPrompt = `You are a helpful assistant generating interview preparation content.
Return STRICT JSON only. Do not include backticks or any text outside the JSON.
Every question must have exactly 4 options and its "answer" must repeat one of the options verbatim.
Keep prompts short and explanations to 1-2 sentences. Do not make the correct option obviously longer or more detailed than the distractors.`

func BuildInterviewPrompt(spec Spec) string {
	techStack := "not specified"
	if len(spec.TechStack) > 0 {
		techStack = strings.Join(spec.TechStack, ", ")
	}

	return fmt.Sprintf(`Input:
- Company: %s
- Role: %s
- Type: %s
- Tech stack: %s
- Rounds: %d
- Questions per round: %d (min 5, max 10)
- Total questions desired overall: approximately %d

Task:
1) Produce exactly %d topics relevant to the role and type.
2) For each topic, produce %d multiple-choice questions.
3) Each question must have: prompt (short), options (array of 4 strings), answer (one of the options exactly), explanation (1-2 sentences).

Return JSON with this schema:
{
  "topics": [
    {
      "name": string,
      "questions": [ { "prompt": string, "options": [string, string, string, string], "answer": string, "explanation": string } ]
    }
  ]
}`,
		spec.Company, spec.Role, spec.Type, techStack,
		spec.Rounds, spec.PerRound, spec.NumQuestions,
		spec.Rounds, spec.PerRound,
	)
}

func BuildPracticePrompt(spec Spec) string {
	return fmt.Sprintf(`Input:
- Language/Context: %s
- Topic: %s
- Number of questions: %d

Task:
Produce %d multiple-choice questions for the topic. Each question must have:
- prompt (short)
- options (array of 4 strings)
- answer (MUST be exactly one of the options)
- explanation (1-2 concise sentences)

Return JSON with this schema:
{
  "questions": [ { "prompt": string, "options": [string,string,string,string], "answer": string, "explanation": string } ]
}`,
		spec.Language, spec.Subject, spec.NumQuestions, spec.NumQuestions,
	)
}

func BuildUserPrompt(spec Spec) string {
	if spec.Kind == KindPractice {
		return BuildPracticePrompt(spec)
	}
	return BuildInterviewPrompt(spec)
}
