package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"leftmove.org/leftmove-web/internal/contact"
	handlersPkg "leftmove.org/leftmove-web/internal/handlers"
	mw "leftmove.org/leftmove-web/internal/middleware"
	"leftmove.org/leftmove-web/internal/observability"
	"leftmove.org/leftmove-web/internal/seo"
	"leftmove.org/leftmove-web/internal/submission"
)

const fallbackDeliverTimeout = 5 * time.Second

// restoreContact rebuilds the form from the posted values. Errors are not carried
// between requests: a submit recomputes all of them and an edit only ever clears one.
func restoreContact(r *http.Request, signal contact.Signal) *contact.FormState {
	data := contact.Data{
		Name:    r.PostForm.Get(string(contact.FieldName)),
		Email:   r.PostForm.Get(string(contact.FieldEmail)),
		Message: r.PostForm.Get(string(contact.FieldMessage)),
	}
	return contact.Restore(data, nil, signal)
}

func contactPageData(r *http.Request, view *handlersPkg.ContactView) handlersPkg.PageData {
	lang := mw.Lang(r)
	title := i18nOrDefault(lang, "contact.title", "Contact Us")
	desc := i18nOrDefault(lang, "contact.seo.desc", "")
	vm := pageData(r, title, desc, "")
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(seo.WebPage("ContactPage", title, desc, vm.SEO.Canonical, "")))
	vm.Contact = view
	return vm
}

// ContactPageHandler renders an empty contact form.
func ContactPageHandler(w http.ResponseWriter, r *http.Request) {
	sent := mw.GetSession(r).TakeContactSent()
	form := contact.New(nil)
	renderPage(w, r, "contact", http.StatusOK, contactPageData(r, handlersPkg.BuildContactView(form.Snapshot(), sent)))
}

// ContactSubmitHandler validates the posted form. A valid submission is handed to
// the configured sinks and the form comes back empty.
func ContactSubmitHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		mw.WriteError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	lang := mw.Lang(r)
	rid, _ := mw.RequestID(r.Context())
	signal := contact.SignalFunc(func(d contact.Data) {
		deliverContact(r.Context(), messageBuilder.Build(d, lang, rid))
	})
	form := restoreContact(r, signal)
	form.Dispatch(contact.Submitted{})
	snap := form.Snapshot()
	sent := len(snap.Errors) == 0

	if !mw.IsHTMX(r.Context()) {
		if sent {
			sess := mw.GetSession(r)
			sess.Contact.Sent = true
			sess.MarkDirty()
			http.Redirect(w, r, "/contact", http.StatusSeeOther)
			return
		}
		renderPage(w, r, "contact", http.StatusUnprocessableEntity, contactPageData(r, handlersPkg.BuildContactView(snap, false)))
		return
	}

	// htmx only swaps 2xx responses, so an invalid form is still a 200 here
	renderTemplate(w, r, "frag_contact_form", http.StatusOK, handlersPkg.PageData{
		Lang:      lang,
		CSRFToken: mw.CSRFToken(r),
		Contact:   handlersPkg.BuildContactView(snap, sent),
	})
}

// ContactFieldHandler applies a single field edit and returns that field's error slot.
func ContactFieldHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		mw.WriteError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	field, ok := contact.ParseField(r.PostForm.Get("field"))
	if !ok {
		mw.WriteError(w, r, http.StatusBadRequest, "unknown field")
		return
	}
	form := restoreContact(r, nil)
	form.Dispatch(contact.FieldEdited{Field: field, Value: r.PostForm.Get(string(field))})
	renderTemplate(w, r, "frag_contact_field_error", http.StatusOK, fieldFrag{
		Lang:      mw.Lang(r),
		CSRFToken: mw.CSRFToken(r),
		Field:     handlersPkg.Field(form.Snapshot(), field),
	})
}

// deliverContact hands msg to the submission sinks. Failures are logged and do not
// change what the visitor sees.
func deliverContact(ctx context.Context, msg submission.Message) {
	timeout := siteCfg.Submission.DeliverTimeout
	if timeout <= 0 {
		timeout = fallbackDeliverTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := observability.FromContext(ctx).With(
		zap.String("message_id", msg.ID),
		zap.String("sinks", submissionSink.Name()),
	)
	if err := submissionSink.Deliver(ctx, msg); err != nil {
		logger.Error("contact delivery failed", zap.Error(err))
		return
	}
	logger.Info("contact delivered")
}
