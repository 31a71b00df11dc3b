package contact

// Signal receives the payload of every successful submission.
type Signal interface {
	ContactSubmitted(Data)
}

// SignalFunc adapts a function to Signal.
type SignalFunc func(Data)

// ContactSubmitted calls f.
func (f SignalFunc) ContactSubmitted(d Data) { f(d) }

// Snapshot is an immutable view of the form handed to renderers.
type Snapshot struct {
	Data   Data
	Errors Errors
}

// Error returns the message for f, or "" when f is valid.
func (s Snapshot) Error(f Field) string { return s.Errors[f] }

// Value returns the current value of f.
func (s Snapshot) Value(f Field) string { return s.Data.Get(f) }

// Event is a UI event applied to a FormState.
type Event interface{ isFormEvent() }

// FieldEdited reports that the user changed an input.
type FieldEdited struct {
	Field Field
	Value string
}

// Submitted reports a submit click.
type Submitted struct{}

func (FieldEdited) isFormEvent() {}
func (Submitted) isFormEvent()   {}

// FormState owns the contact form values and validation errors.
// An instance is not safe for concurrent use.
type FormState struct {
	data      Data
	errors    Errors
	signal    Signal
	listeners []func(Snapshot)
}

// New returns an empty form that reports successful submissions to signal.
// signal may be nil.
func New(signal Signal) *FormState {
	return &FormState{errors: Errors{}, signal: signal}
}

// Restore rebuilds a form from previously rendered state.
func Restore(data Data, errs Errors, signal Signal) *FormState {
	f := New(signal)
	f.data = data
	if errs != nil {
		for k, v := range errs {
			if pf, ok := ParseField(string(k)); ok {
				f.errors[pf] = v
			}
		}
	}
	return f
}

// Subscribe registers fn to be called with a snapshot after every state change.
func (f *FormState) Subscribe(fn func(Snapshot)) {
	if fn != nil {
		f.listeners = append(f.listeners, fn)
	}
}

// Snapshot returns a copy of the current state.
func (f *FormState) Snapshot() Snapshot {
	return Snapshot{Data: f.data, Errors: f.errors.Clone()}
}

// SetField overwrites the value of field and drops its pending error without
// re-validating. It returns false for an unknown field.
func (f *FormState) SetField(field Field, value string) bool {
	if !f.data.set(field, value) {
		return false
	}
	delete(f.errors, field)
	f.notify()
	return true
}

// Validate evaluates the current values. It does not change state.
func (f *FormState) Validate() Errors {
	return Validate(f.data)
}

// Submit validates the form. On success the values are cleared, the signal fires
// once with the previous values, and those values are returned with ok=true.
// On failure the values are kept and the errors replaced.
func (f *FormState) Submit() (Data, bool) {
	errs := f.Validate()
	if len(errs) > 0 {
		f.errors = errs
		f.notify()
		return Data{}, false
	}
	payload := f.data
	f.data = Data{}
	f.errors = Errors{}
	if f.signal != nil {
		f.signal.ContactSubmitted(payload)
	}
	f.notify()
	return payload, true
}

// Dispatch applies ev and reports whether it was recognised.
func (f *FormState) Dispatch(ev Event) bool {
	switch e := ev.(type) {
	case FieldEdited:
		return f.SetField(e.Field, e.Value)
	case Submitted:
		f.Submit()
		return true
	}
	return false
}

func (f *FormState) notify() {
	if len(f.listeners) == 0 {
		return
	}
	snap := f.Snapshot()
	for _, fn := range f.listeners {
		fn(snap)
	}
}
