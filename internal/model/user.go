package model

// User is an API consumer identified by UserID.
type User struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	APICredits int64  `json:"api_credits"`
}
