package validator

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateRegister(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		username  string
		display   string
		role      string
		password  string
		wantField string
	}{
		{"valid student", "a@b.com", "alice", "Alice", "student", "Passw0rd", ""},
		{"valid default role", "a@b.com", "alice", "Alice", "", "Passw0rd", ""},
		{"missing email", "", "alice", "Alice", "student", "Passw0rd", "email"},
		{"bad email", "not-an-email", "alice", "Alice", "student", "Passw0rd", "email"},
		{"short username", "a@b.com", "al", "Alice", "student", "Passw0rd", "username"},
		{"bad username chars", "a@b.com", "al ice!", "Alice", "student", "Passw0rd", "username"},
		{"missing display name", "a@b.com", "alice", "", "student", "Passw0rd", "display_name"},
		{"unknown role", "a@b.com", "alice", "Alice", "wizard", "Passw0rd", "role"},
		{"short password", "a@b.com", "alice", "Alice", "student", "Pw0", "password"},
		{"weak password", "a@b.com", "alice", "Alice", "student", "passwordonly", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateRegister(tt.email, tt.username, tt.display, tt.role, tt.password)
			if tt.wantField == "" {
				assert.False(t, errs.HasErrors(), "unexpected errors: %v", errs)
			} else {
				assert.Contains(t, errs, tt.wantField)
			}
		})
	}
}

func TestValidateSendMessage(t *testing.T) {
	recipient := uuid.New()

	errs := ValidateSendMessage(recipient, "hello")
	assert.False(t, errs.HasErrors())

	errs = ValidateSendMessage(uuid.Nil, "hello")
	assert.Contains(t, errs, "recipient_id")

	errs = ValidateSendMessage(recipient, "")
	assert.Contains(t, errs, "text")

	errs = ValidateSendMessage(recipient, "   \n\t")
	assert.Contains(t, errs, "text")

	errs = ValidateSendMessage(recipient, strings.Repeat("x", 4001))
	assert.Contains(t, errs, "text")

	// Length limit counts runes, not bytes.
	errs = ValidateSendMessage(recipient, strings.Repeat("ব", 4000))
	assert.False(t, errs.HasErrors())
}

func TestValidateCreateGroup(t *testing.T) {
	member := uuid.New()

	errs := ValidateCreateGroup("Study Group", []uuid.UUID{member})
	assert.False(t, errs.HasErrors())

	errs = ValidateCreateGroup("", []uuid.UUID{member})
	assert.Contains(t, errs, "name")

	errs = ValidateCreateGroup("x", []uuid.UUID{member})
	assert.Contains(t, errs, "name")

	errs = ValidateCreateGroup(strings.Repeat("x", 101), []uuid.UUID{member})
	assert.Contains(t, errs, "name")

	errs = ValidateCreateGroup("Study Group", nil)
	assert.Contains(t, errs, "members")

	errs = ValidateCreateGroup("Study Group", []uuid.UUID{uuid.Nil})
	assert.Contains(t, errs, "members")
}

func TestValidateAddMembers(t *testing.T) {
	errs := ValidateAddMembers([]uuid.UUID{uuid.New()})
	assert.False(t, errs.HasErrors())

	errs = ValidateAddMembers(nil)
	assert.Contains(t, errs, "members")
}
