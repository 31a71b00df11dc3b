package contact

import (
	"regexp"
	"strings"
)

// Field identifies one of the contact form inputs.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldMessage Field = "message"
)

// Fields lists the form inputs in display order.
var Fields = []Field{FieldName, FieldEmail, FieldMessage}

// ParseField maps a form input name to a Field.
func ParseField(raw string) (Field, bool) {
	switch f := Field(strings.ToLower(strings.TrimSpace(raw))); f {
	case FieldName, FieldEmail, FieldMessage:
		return f, true
	}
	return "", false
}

// Validation messages surfaced next to the offending input.
const (
	MsgNameRequired    = "Name is required"
	MsgEmailRequired   = "Email is required"
	MsgEmailInvalid    = "Email is invalid"
	MsgMessageRequired = "Message is required"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Data holds the user-entered contact fields.
type Data struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Get returns the value stored for f.
func (d Data) Get(f Field) string {
	switch f {
	case FieldName:
		return d.Name
	case FieldEmail:
		return d.Email
	case FieldMessage:
		return d.Message
	}
	return ""
}

func (d *Data) set(f Field, value string) bool {
	switch f {
	case FieldName:
		d.Name = value
	case FieldEmail:
		d.Email = value
	case FieldMessage:
		d.Message = value
	default:
		return false
	}
	return true
}

// Errors maps invalid fields to their display message. A missing key means valid.
type Errors map[Field]string

// Has reports whether f currently carries an error.
func (e Errors) Has(f Field) bool {
	_, ok := e[f]
	return ok
}

// Clone returns an independent copy.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Validate checks every field of d independently and returns the failures.
func Validate(d Data) Errors {
	errs := Errors{}
	if strings.TrimSpace(d.Name) == "" {
		errs[FieldName] = MsgNameRequired
	}
	if strings.TrimSpace(d.Email) == "" {
		errs[FieldEmail] = MsgEmailRequired
	} else if !emailPattern.MatchString(d.Email) {
		errs[FieldEmail] = MsgEmailInvalid
	}
	if strings.TrimSpace(d.Message) == "" {
		errs[FieldMessage] = MsgMessageRequired
	}
	return errs
}
