// Package payload turns user input into the exact text that is encoded in a
// QR code: a URL verbatim, or a vCard 3.0 contact card.
package payload

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// Kind selects the payload type.
type Kind string

const (
	KindURL     Kind = "url"
	KindContact Kind = "contact"
)

// Contact holds the contact card fields. Empty strings are absent.
//
// Field values are written as-is: semicolons, commas, backslashes and line
// breaks are not escaped and will corrupt the card.
type Contact struct {
	Name         string `json:"name" form:"name" validate:"notblank"`
	Phone        string `json:"phone,omitempty" form:"phone"`
	Email        string `json:"email,omitempty" form:"email" validate:"omitempty,email"`
	Organization string `json:"organization,omitempty" form:"organization"`
	Title        string `json:"title,omitempty" form:"title"`
}

// Data is the user input for one payload.
type Data struct {
	URL     string
	Contact Contact
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("notblank", validateNotBlank)
	return v
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Build returns the payload for kind. It fails with *model.ValidationError
// when the URL is blank, the contact name is blank, or the contact email is
// present but malformed.
func Build(kind Kind, data Data) (string, error) {
	switch kind {
	case KindURL:
		if strings.TrimSpace(data.URL) == "" {
			return "", model.Invalid("url", "is required")
		}
		return data.URL, nil
	case KindContact:
		if err := ValidateContact(data.Contact); err != nil {
			return "", err
		}
		return VCard(data.Contact), nil
	default:
		return "", model.Invalid("kind", "must be url or contact")
	}
}

// ValidateContact checks the contact fields.
func ValidateContact(c Contact) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.Invalid("contact", err.Error())
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Name":
		return model.Invalid("name", "is required")
	case "Email":
		return model.Invalid("email", "is not a valid email address")
	default:
		return model.Invalid(strings.ToLower(fe.Field()), "failed "+fe.Tag()+" check")
	}
}

// VCard serializes c as a vCard 3.0 block. Lines are separated by "\n" and
// optional properties are left out when empty.
func VCard(c Contact) string {
	lines := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:" + c.Name,
		"N:" + c.Name + ";;;",
	}
	if c.Organization != "" {
		lines = append(lines, "ORG:"+c.Organization)
	}
	if c.Title != "" {
		lines = append(lines, "TITLE:"+c.Title)
	}
	if c.Phone != "" {
		lines = append(lines, "TEL;TYPE=CELL:"+c.Phone)
	}
	if c.Email != "" {
		lines = append(lines, "EMAIL:"+c.Email)
	}
	lines = append(lines, "END:VCARD")
	return strings.Join(lines, "\n")
}

// ParseVCard reads back the fields written by VCard. It accepts "\r\n" line
// endings and ignores properties it does not know.
func ParseVCard(s string) (Contact, bool) {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) < 2 || lines[0] != "BEGIN:VCARD" || lines[len(lines)-1] != "END:VCARD" {
		return Contact{}, false
	}
	var c Contact
	for _, line := range lines[1 : len(lines)-1] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(key, ";")
		switch strings.ToUpper(name) {
		case "FN":
			c.Name = value
		case "ORG":
			c.Organization = value
		case "TITLE":
			c.Title = value
		case "TEL":
			c.Phone = value
		case "EMAIL":
			c.Email = value
		}
	}
	return c, c.Name != ""
}
