package registration

import (
	"regexp"
	"strings"
)

// Input carries the raw registration form fields.
type Input struct {
	Name       string
	Email      string
	Password   string
	Phone      string
	Street     string
	Suburb     string
	City       string
	Province   string
	PostalCode string
}

// PendingRegistration is the validated, normalized form data held in memory
// between form submission and code verification. It is never persisted.
type PendingRegistration struct {
	Name       string
	Email      string
	Password   string
	Phone      string
	Street     string
	Suburb     string
	City       string
	Province   string
	PostalCode string
}

// ValidationError reports the first failing local validation rule. These
// never reach a network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	namePattern   = regexp.MustCompile(`^[A-Za-z]+(?:[ -][A-Za-z]+)*$`)
	postalPattern = regexp.MustCompile(`^[0-9]{4,6}$`)
	hasLetter     = regexp.MustCompile(`[A-Za-z]`)
	hasDigit      = regexp.MustCompile(`[0-9]`)
	nonDigits     = regexp.MustCompile(`[^0-9]`)
)

const minStreetLength = 5

// normalizePhone strips formatting and rewrites a 27-prefixed number to its
// local 0-prefixed form.
func normalizePhone(phone string) string {
	digits := nonDigits.ReplaceAllString(phone, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "27") {
		digits = "0" + digits[2:]
	}
	return digits
}

func validateInput(in Input) (*PendingRegistration, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || !namePattern.MatchString(name) {
		return nil, &ValidationError{Field: "name", Message: "Please enter your name using letters, spaces or hyphens only."}
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, &ValidationError{Field: "email", Message: "Please enter your email address."}
	}

	password := strings.TrimSpace(in.Password)
	if len(password) < 6 {
		return nil, &ValidationError{Field: "password", Message: "Password should be at least 6 characters."}
	}

	phone := normalizePhone(in.Phone)
	if len(phone) != 10 {
		return nil, &ValidationError{Field: "phone", Message: "Please enter a valid 10-digit phone number."}
	}

	street := strings.TrimSpace(in.Street)
	if len(street) < minStreetLength || !hasLetter.MatchString(street) || !hasDigit.MatchString(street) {
		return nil, &ValidationError{Field: "street", Message: "Please enter a valid street address (e.g. 12 Main Rd)."}
	}

	suburb := strings.TrimSpace(in.Suburb)
	if suburb == "" || !namePattern.MatchString(suburb) {
		return nil, &ValidationError{Field: "suburb", Message: "Please enter a valid suburb."}
	}

	city := strings.TrimSpace(in.City)
	if city == "" || !namePattern.MatchString(city) {
		return nil, &ValidationError{Field: "city", Message: "Please enter a valid city."}
	}

	postal := strings.TrimSpace(in.PostalCode)
	if !postalPattern.MatchString(postal) {
		return nil, &ValidationError{Field: "postalCode", Message: "Please enter a valid postal code."}
	}

	return &PendingRegistration{
		Name:       name,
		Email:      email,
		Password:   password,
		Phone:      phone,
		Street:     street,
		Suburb:     suburb,
		City:       city,
		Province:   strings.TrimSpace(in.Province),
		PostalCode: postal,
	}, nil
}
