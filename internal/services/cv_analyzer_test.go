package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeGenerator struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

const acmeCVJSON = `{
  "personalInfo": {"name": "Jane Doe", "email": "jane@example.com", "summary": "Backend engineer."},
  "skills": ["Go", "PostgreSQL", 5],
  "experience": [
    {"role": "Senior Engineer", "company": "Acme", "period": "2019-2023", "highlights": ["Led the billing migration"]}
  ],
  "education": [{"degree": "BSc", "institution": "MIT", "year": 2015}]
}`

func TestAnalyzeFencedReply(t *testing.T) {
	gen := &fakeGenerator{reply: "Here you go:\n```json\n" + acmeCVJSON + "\n```"}
	analyzer := NewCVAnalyzer(gen, nil)

	cv, err := analyzer.Analyze(context.Background(), "Jane Doe\nSenior Engineer at Acme")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(gen.prompt, "Senior Engineer at Acme") {
		t.Error("prompt should embed the CV text")
	}
	if cv.PersonalInfo.Name != "Jane Doe" || cv.PersonalInfo.Summary != "Backend engineer." {
		t.Errorf("personal info = %+v", cv.PersonalInfo)
	}
	if len(cv.Skills) != 3 || cv.Skills[2] != "5" {
		t.Errorf("skills = %v", cv.Skills)
	}
	if len(cv.Experience) != 1 || cv.Experience[0].Company != "Acme" {
		t.Errorf("experience = %+v", cv.Experience)
	}
	if len(cv.Education) != 1 || cv.Education[0].Year != "2015" {
		t.Errorf("education = %+v", cv.Education)
	}
}

func TestParseCVDataRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"missing skills":      `{"personalInfo": {"summary": "x"}, "experience": []}`,
		"experience not list": `{"personalInfo": {"summary": "x"}, "skills": [], "experience": {}}`,
		"role missing":        `{"personalInfo": {"summary": "x"}, "skills": [], "experience": [{"company": "Acme"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseCVData(raw); err == nil || !strings.Contains(err.Error(), "schema validation failed") {
				t.Errorf("expected schema error, got %v", err)
			}
		})
	}
}

func TestParseCVDataEmptyLists(t *testing.T) {
	cv, err := ParseCVData(`{"personalInfo": {"summary": ""}, "skills": [], "experience": []}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cv.Skills == nil || cv.Experience == nil {
		t.Error("lists should be non-nil")
	}
}

func TestAnalyzeGeneratorError(t *testing.T) {
	cause := errors.New("quota")
	_, err := NewCVAnalyzer(&fakeGenerator{err: cause}, nil).Analyze(context.Background(), "cv")
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{`sure! {"a":{"b":2}} thanks`, `{"a":{"b":2}}`},
		{"no json here", "no json here"},
	}
	for _, tc := range cases {
		if got := extractJSON(tc.in); got != tc.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
