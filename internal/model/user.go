package model

import "time"

// User represents a registered learner account.
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	TargetScore  int       `json:"target_score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest is the payload for creating a new account.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Password    string `json:"password" binding:"required,min=6,max=128"`
	TargetScore int    `json:"target_score" binding:"omitempty,min=10,max=160"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// UpdateTargetScoreRequest changes the learner's goal on the 10-160 scale.
type UpdateTargetScoreRequest struct {
	TargetScore int `json:"target_score" binding:"required,min=10,max=160"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
