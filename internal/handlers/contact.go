package handlers

import "leftmove.org/leftmove-web/internal/contact"

// ContactView is the render model for the contact form.
type ContactView struct {
	Fields []FieldView
	Sent   bool
	// Invalid is true when the last submit failed validation.
	Invalid bool
}

// FieldView describes one input of the contact form.
type FieldView struct {
	Name      string
	LabelKey  string
	Label     string
	Type      string
	Multiline bool
	Value     string
	Error     string
	ErrorKey  string
}

var fieldMeta = map[contact.Field]FieldView{
	contact.FieldName:    {LabelKey: "contact.field.name", Label: "Name", Type: "text"},
	contact.FieldEmail:   {LabelKey: "contact.field.email", Label: "Email", Type: "email"},
	contact.FieldMessage: {LabelKey: "contact.field.message", Label: "Message", Type: "text", Multiline: true},
}

var errorKeys = map[string]string{
	contact.MsgNameRequired:    "contact.error.name_required",
	contact.MsgEmailRequired:   "contact.error.email_required",
	contact.MsgEmailInvalid:    "contact.error.email_invalid",
	contact.MsgMessageRequired: "contact.error.message_required",
}

// ErrorKey returns the i18n key for a validation message, or "" when unknown.
func ErrorKey(msg string) string { return errorKeys[msg] }

// Field builds the view for a single field from a snapshot.
func Field(s contact.Snapshot, f contact.Field) FieldView {
	v := fieldMeta[f]
	v.Name = string(f)
	v.Value = s.Value(f)
	v.Error = s.Error(f)
	v.ErrorKey = ErrorKey(v.Error)
	return v
}

// BuildContactView renders a snapshot into the ordered field list.
func BuildContactView(s contact.Snapshot, sent bool) *ContactView {
	view := &ContactView{Sent: sent, Invalid: len(s.Errors) > 0}
	for _, f := range contact.Fields {
		view.Fields = append(view.Fields, Field(s, f))
	}
	return view
}
