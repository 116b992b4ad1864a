package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"strings"
)

// User is the identity record returned by an authentication gateway and
// persisted under the user key. Fields beyond ID, Name and Email are
// role-specific and omitted when empty.
type User struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	StudentID     string   `json:"studentId,omitempty"`
	TeacherID     string   `json:"teacherId,omitempty"`
	AdminID       string   `json:"adminId,omitempty"`
	ProctorID     string   `json:"proctorId,omitempty"`
	Department    string   `json:"department,omitempty"`
	Permissions   []string `json:"permissions,omitempty"`
	AssignedExams []int64  `json:"assignedExams,omitempty"`
	Avatar        *string  `json:"avatar"`
}

// Validate reports whether the record carries the minimum identity fields.
func (u User) Validate() error {
	if u.ID == 0 {
		return errors.New("user id is required")
	}
	if strings.TrimSpace(u.Name) == "" {
		return errors.New("user name is required")
	}
	return nil
}

// Credentials is the ephemeral input of a single login attempt. It is never persisted.
type Credentials struct {
	Email    string
	Password string
	Role     Role
}

// Complete reports whether both email and password were supplied.
func (c Credentials) Complete() bool {
	return c.Email != "" && c.Password != ""
}

// Grant is the successful outcome of an authentication: the user record and an opaque bearer token.
type Grant struct {
	User  User
	Token string
}

// LoginRequest is the gateway wire request.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     Role   `json:"role"     validate:"required"`
}

// LoginResponse is the gateway wire response. Success carries User and Token,
// failure carries Message.
type LoginResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}
