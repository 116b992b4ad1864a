package testutil

import (
	"time"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
)

// TestTime returns a fixed time for testing.
func TestTime() time.Time {
	return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
}

// FixedTimeFunc returns a function that always returns the same time.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// UserFor returns a minimal valid user for role.
func UserFor(role domainauth.Role) domainauth.User {
	switch role {
	case domainauth.RoleStudent:
		return domainauth.User{ID: 1, Name: "John Doe", Email: "student@test.com", StudentID: "ST001"}
	case domainauth.RoleTeacher:
		return domainauth.User{ID: 2, Name: "Jane Smith", Email: "teacher@test.com", TeacherID: "TC001"}
	case domainauth.RoleAdmin:
		return domainauth.User{ID: 3, Name: "Admin User", Email: "admin@test.com", AdminID: "AD001"}
	case domainauth.RoleProctor:
		return domainauth.User{ID: 4, Name: "Proctor User", Email: "proctor@test.com", ProctorID: "PR001"}
	default:
		return domainauth.User{ID: 99, Name: "Unknown"}
	}
}

// CredentialsFor returns complete credentials for role.
func CredentialsFor(role domainauth.Role) domainauth.Credentials {
	return domainauth.Credentials{Email: UserFor(role).Email, Password: "password", Role: role}
}

// StringPtr returns a pointer to the given string value.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to the given int value.
func IntPtr(i int) *int { return &i }

// TimePtr returns a pointer to the given time value.
func TimePtr(t time.Time) *time.Time { return &t }
