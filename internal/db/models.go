package db

// Session is the single row describing the local user's current session
type Session struct {
	ID          string `json:"id"`
	Token       string `json:"-"`
	InterviewID string `json:"interview_id"`
	CreatedAt   int64  `json:"created_at"` // Unix millis
	UpdatedAt   int64  `json:"updated_at"` // Unix millis
}

// HasToken reports whether a bearer token has been stored
func (s Session) HasToken() bool { return s.Token != "" }
