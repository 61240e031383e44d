package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/voice-interview/internal/models"
)

// InterviewSystemPrompt frames every interview chat completion.
const InterviewSystemPrompt = `You are an AI assistant helping a recruiter evaluate a candidate's CV and experience.
Use the provided CV data and previous conversation context to engage in a natural discussion about the candidate's experience.
Focus on:
- Understanding the depth of their experience
- Technical skills and achievements
- Problem-solving approaches
- Project impacts and outcomes

Keep responses concise and professional.`

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildInterviewContext renders the CV and retrieved prior exchanges into the
// context message sent ahead of the recruiter's question.
func (pb *PromptBuilder) BuildInterviewContext(cv models.CVData, previous []models.ScoredContent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CV Summary: %s\n\n", strings.TrimSpace(cv.PersonalInfo.Summary))
	fmt.Fprintf(&b, "Skills: %s\n\n", strings.Join(cv.Skills, ", "))

	b.WriteString("Experience:\n")
	for _, exp := range cv.Experience {
		fmt.Fprintf(&b, "%s at %s (%s)\n", exp.Role, exp.Company, exp.Period)
		for _, highlight := range exp.Highlights {
			b.WriteString(highlight)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("\nPrevious Discussion Context:\n")
	for _, item := range previous {
		b.WriteString(strings.TrimSpace(item.Content))
		b.WriteString("\n")
	}

	return b.String()
}

// BuildCVAnalysisPrompt asks the model to turn raw CV text into the CVData JSON shape.
func (pb *PromptBuilder) BuildCVAnalysisPrompt(cvText string) string {
	return fmt.Sprintf(`You are an expert HR analyst. Extract structured information from the candidate's CV below.

CANDIDATE CV:
%s

Return your response in the following JSON format:
{
  "personalInfo": {
    "name": "<full name>",
    "email": "<email or empty string>",
    "phone": "<phone or empty string>",
    "location": "<location or empty string>",
    "summary": "<2-3 sentence professional summary>"
  },
  "skills": ["<skill>", "..."],
  "experience": [
    {
      "role": "<job title>",
      "company": "<company>",
      "period": "<e.g. 2019 - 2023>",
      "highlights": ["<achievement or responsibility>", "..."]
    }
  ],
  "education": [
    {
      "degree": "<degree>",
      "institution": "<institution>",
      "year": "<graduation year>"
    }
  ]
}

Only use information present in the CV. Return ONLY the JSON object.`, cvText)
}

// FormatQAPair is the content stored for each answered question.
func FormatQAPair(question, answer string) string {
	return fmt.Sprintf("Q: %s\nA: %s", question, answer)
}
