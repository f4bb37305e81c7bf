package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxMessageLength = 4000

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func ValidateRegister(email, username, displayName, role, password string) ValidationErrors {
	errs := make(ValidationErrors)

	// Email
	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}

	// Username
	username = strings.TrimSpace(username)
	if username == "" {
		errs.Add("username", "Username is required")
	} else if len(username) < 3 {
		errs.Add("username", "Username must be at least 3 characters")
	} else if len(username) > 50 {
		errs.Add("username", "Username is too long")
	} else if !usernameRegex.MatchString(username) {
		errs.Add("username", "Username can only contain letters, numbers, _ and -")
	}

	// Display name
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		errs.Add("display_name", "Display name is required")
	} else if len(displayName) < 2 {
		errs.Add("display_name", "Display name must be at least 2 characters")
	} else if len(displayName) > 100 {
		errs.Add("display_name", "Display name is too long")
	}

	// Role
	if role != "" && role != "student" && role != "educator" && role != "admin" {
		errs.Add("role", "Role must be student, educator, or admin")
	}

	// Password
	validatePassword(password, errs)

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}

	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

func ValidateSendMessage(recipientID uuid.UUID, text string) ValidationErrors {
	errs := make(ValidationErrors)

	if recipientID == uuid.Nil {
		errs.Add("recipient_id", "Recipient is required")
	}
	validateMessageText(text, errs)

	return errs
}

func ValidateGroupMessage(text string) ValidationErrors {
	errs := make(ValidationErrors)
	validateMessageText(text, errs)
	return errs
}

func ValidateCreateGroup(name string, members []uuid.UUID) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Group name is required")
	} else if len(name) < 2 {
		errs.Add("name", "Group name must be at least 2 characters")
	} else if len(name) > 100 {
		errs.Add("name", "Group name is too long")
	}

	validateMemberIDs(members, errs)

	return errs
}

func ValidateAddMembers(members []uuid.UUID) ValidationErrors {
	errs := make(ValidationErrors)
	validateMemberIDs(members, errs)
	return errs
}

func validateMemberIDs(members []uuid.UUID, errs ValidationErrors) {
	if len(members) == 0 {
		errs.Add("members", "At least one member is required")
		return
	}
	for _, id := range members {
		if id == uuid.Nil {
			errs.Add("members", "Member ids must be valid")
			return
		}
	}
}

func validateMessageText(text string, errs ValidationErrors) {
	if strings.TrimSpace(text) == "" {
		errs.Add("text", "Message text is required")
	} else if utf8.RuneCountInString(text) > maxMessageLength {
		errs.Add("text", fmt.Sprintf("Message must be at most %d characters", maxMessageLength))
	}
}

func validatePassword(password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
		return
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("password", fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
