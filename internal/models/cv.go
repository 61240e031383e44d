package models

// CVData is the structured form of a parsed résumé.
type CVData struct {
	PersonalInfo PersonalInfo `json:"personalInfo" mapstructure:"personalInfo"`
	Skills       []string     `json:"skills" mapstructure:"skills"`
	Experience   []Experience `json:"experience" mapstructure:"experience"`
	Education    []Education  `json:"education,omitempty" mapstructure:"education"`
}

type PersonalInfo struct {
	Name     string `json:"name,omitempty" mapstructure:"name"`
	Email    string `json:"email,omitempty" mapstructure:"email"`
	Phone    string `json:"phone,omitempty" mapstructure:"phone"`
	Location string `json:"location,omitempty" mapstructure:"location"`
	Summary  string `json:"summary" mapstructure:"summary"`
}

type Experience struct {
	Role       string   `json:"role" mapstructure:"role"`
	Company    string   `json:"company" mapstructure:"company"`
	Period     string   `json:"period" mapstructure:"period"`
	Highlights []string `json:"highlights" mapstructure:"highlights"`
}

type Education struct {
	Degree      string `json:"degree" mapstructure:"degree"`
	Institution string `json:"institution" mapstructure:"institution"`
	Year        string `json:"year" mapstructure:"year"`
}
