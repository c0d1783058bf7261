package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

// validatorInstance is a package-level validator instance.
// Using a single instance is more efficient as it caches struct information.
var validatorInstance = validator.New()

var caseReferencePattern = regexp.MustCompile(`^TAFEP-\d{14}$`)

func init() {
	_ = validatorInstance.RegisterValidation("casereference", func(fl validator.FieldLevel) bool {
		return caseReferencePattern.MatchString(fl.Field().String())
	})
}

// Case is a complaint filed at the end of a conversation.
type Case struct {
	Reference      string    `json:"reference" validate:"required,casereference"`
	ConversationID string    `json:"conversation_id" validate:"required"`
	Summary        string    `json:"summary" validate:"required"`
	Transcript     string    `json:"transcript"`
	ContactEmail   string    `json:"contact_email,omitempty" validate:"omitempty,email"`
	CreatedAt      time.Time `json:"created_at"`
}

// Validate checks the case before it is stored.
func (c *Case) Validate() error {
	if err := validatorInstance.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// NewCaseReference formats a reference such as TAFEP-20240131154500.
func NewCaseReference(t time.Time) string {
	return "TAFEP-" + t.Format("20060102150405")
}

// ValidEmail reports whether s is a syntactically valid address.
func ValidEmail(s string) bool {
	return validatorInstance.Var(s, "required,email") == nil
}
