package models

// LLMPreferences customizes how answers are generated for a user.
type LLMPreferences struct {
	Model            string   `json:"model,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	InstructionStyle string   `json:"instruction_style,omitempty"`
}

// UserPreferences holds per-user application settings.
type UserPreferences struct {
	LLM *LLMPreferences `json:"llm,omitempty"`
}

// UserModel represents a registered reader.
type UserModel struct {
	Base
	Email          string          `json:"email"           gorm:"uniqueIndex;not null"`
	Password       string          `json:"-"               gorm:"not null"`
	Name           string          `json:"name"`
	ProfilePicture string          `json:"profile_picture"`
	Preferences    UserPreferences `json:"preferences"     gorm:"type:longtext;serializer:json"`
	BooksFinished  int             `json:"books_finished"  gorm:"not null;default:0"`
}

func (UserModel) TableName() string { return "users" }
