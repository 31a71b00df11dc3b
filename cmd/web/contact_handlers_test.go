package main

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func validContact() url.Values {
	return url.Values{
		"name":    {"Ada Lovelace"},
		"email":   {"ada@example.com"},
		"message": {"Tell me more about the simulator."},
	}
}

func TestContactPageRendersEmptyForm(t *testing.T) {
	srv, _ := newTestRouter(t)
	rec := newBrowser(t, srv).get("/contact")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	doc := parseHTML(t, rec)
	require.Equal(t, "Contact Us", strings.TrimSpace(doc.Find("main h1").Text()))
	for _, id := range []string{"contact-name", "contact-email", "contact-message"} {
		require.Equal(t, 1, doc.Find("#"+id).Length(), id)
		require.Empty(t, strings.TrimSpace(doc.Find("#"+id+"-error").Text()), id)
	}
	require.Equal(t, "textarea", goquery.NodeName(doc.Find("#contact-message")))
	require.Equal(t, 0, doc.Find(".notice").Length())
}

func TestContactSubmitInvalidKeepsValuesAndShowsErrors(t *testing.T) {
	srv, sink := newTestRouter(t)
	b := newBrowser(t, srv)
	b.get("/contact")

	rec := b.post("/contact", url.Values{"name": {"Ada"}, "email": {"not-an-email"}}, false)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	doc := parseHTML(t, rec)
	require.Empty(t, strings.TrimSpace(doc.Find("#contact-name-error").Text()))
	require.Equal(t, "Email is invalid", strings.TrimSpace(doc.Find("#contact-email-error").Text()))
	require.Equal(t, "Message is required", strings.TrimSpace(doc.Find("#contact-message-error").Text()))
	name, _ := doc.Find("#contact-name").Attr("value")
	require.Equal(t, "Ada", name)
	email, _ := doc.Find("#contact-email").Attr("value")
	require.Equal(t, "not-an-email", email)
	invalid, _ := doc.Find("#contact-email").Attr("aria-invalid")
	require.Equal(t, "true", invalid)
	require.Empty(t, sink.messages())
}

func TestContactSubmitEmptyReportsEveryField(t *testing.T) {
	srv, _ := newTestRouter(t)
	b := newBrowser(t, srv)
	b.get("/contact")

	rec := b.post("/contact", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec)
	require.Equal(t, "Name is required", strings.TrimSpace(doc.Find("#contact-name-error").Text()))
	require.Equal(t, "Email is required", strings.TrimSpace(doc.Find("#contact-email-error").Text()))
	require.Equal(t, "Message is required", strings.TrimSpace(doc.Find("#contact-message-error").Text()))
}

func TestContactSubmitValidRedirectsAndDelivers(t *testing.T) {
	srv, sink := newTestRouter(t)
	b := newBrowser(t, srv)
	b.get("/contact")

	rec := b.post("/contact", validContact(), false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/contact", rec.Header().Get("Location"))

	msgs := sink.messages()
	require.Len(t, msgs, 1)
	require.NotEmpty(t, msgs[0].ID)
	require.Equal(t, "Ada Lovelace", msgs[0].Name)
	require.Equal(t, "ada@example.com", msgs[0].Email)
	require.Equal(t, "Tell me more about the simulator.", msgs[0].Message)
	require.Equal(t, "en", msgs[0].Lang)

	// the notice shows once after the redirect
	doc := parseHTML(t, b.get("/contact"))
	require.Equal(t, 1, doc.Find(".notice").Length())
	name, _ := doc.Find("#contact-name").Attr("value")
	require.Empty(t, name)

	doc = parseHTML(t, b.get("/contact"))
	require.Equal(t, 0, doc.Find(".notice").Length())
}

func TestContactSubmitHTMXClearsForm(t *testing.T) {
	srv, sink := newTestRouter(t)
	b := newBrowser(t, srv)
	b.get("/contact")

	rec := b.post("/contact", validContact(), true)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec)
	require.Equal(t, 1, doc.Find("#contact-form .notice").Length())
	name, _ := doc.Find("#contact-name").Attr("value")
	require.Empty(t, name)
	require.Empty(t, strings.TrimSpace(doc.Find("#contact-message").Text()))
	require.Len(t, sink.messages(), 1)
	// fragment only, no layout
	require.Equal(t, 0, doc.Find("header#site-header").Length())
}

func TestContactDeliveryFailureStillConfirms(t *testing.T) {
	srv, sink := newTestRouter(t)
	sink.err = errors.New("downstream unavailable")
	b := newBrowser(t, srv)
	b.get("/contact")

	rec := b.post("/contact", validContact(), true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, parseHTML(t, rec).Find(".notice").Length())
	require.Len(t, sink.messages(), 1)
}

func TestContactFieldEditClearsOnlyThatError(t *testing.T) {
	srv, _ := newTestRouter(t)
	b := newBrowser(t, srv)
	b.get("/contact")
	require.Equal(t, http.StatusOK, b.post("/contact", nil, true).Code)

	form := url.Values{"field": {"name"}, "name": {"A"}, "email": {""}, "message": {""}}
	rec := b.post("/contact/field", form, true)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec)
	slot := doc.Find("#contact-name-error")
	require.Equal(t, 1, slot.Length())
	require.Empty(t, strings.TrimSpace(slot.Text()))

	// an edit never re-validates, so a bad email does not produce a new error
	rec = b.post("/contact/field", url.Values{"field": {"email"}, "email": {"bad"}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, strings.TrimSpace(parseHTML(t, rec).Find("#contact-email-error").Text()))
}

func TestContactFieldEditClearsErrorStyling(t *testing.T) {
	srv, _ := newTestRouter(t)
	b := newBrowser(t, srv)
	b.get("/contact")

	doc := parseHTML(t, b.post("/contact", nil, true))
	input := doc.Find("#contact-name")
	invalid, _ := input.Attr("aria-invalid")
	require.Equal(t, "true", invalid)
	hook, ok := input.Attr("hx-on::after-request")
	require.True(t, ok)
	require.Contains(t, hook, "removeAttribute('aria-invalid')")
	class, _ := input.Closest(".field").Attr("class")
	require.Equal(t, "field", class)

	rec := b.post("/contact/field", url.Values{"field": {"name"}, "name": {"A"}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	slot := parseHTML(t, rec).Find("p#contact-name-error")
	require.Equal(t, 1, slot.Length())
	require.Empty(t, slot.Text())

	// the red border is keyed on a non-empty error slot
	css, err := os.ReadFile("../../public/assets/site.css")
	require.NoError(t, err)
	require.Contains(t, string(css), ".field:has(.field-error:not(:empty)) input")
	require.NotContains(t, string(css), "has-error")
}

func TestContactSubmitDeliversValuesAsTyped(t *testing.T) {
	srv, sink := newTestRouter(t)
	b := newBrowser(t, srv)
	b.get("/contact")

	form := url.Values{"name": {" Ada "}, "email": {"ada@example.com"}, "message": {"  indented\n  line\n"}}
	require.Equal(t, http.StatusOK, b.post("/contact", form, true).Code)
	msgs := sink.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, " Ada ", msgs[0].Name)
	require.Equal(t, "  indented\n  line\n", msgs[0].Message)
}

func TestContactFieldUnknownField(t *testing.T) {
	srv, _ := newTestRouter(t)
	b := newBrowser(t, srv)
	b.get("/contact")
	rec := b.post("/contact/field", url.Values{"field": {"phone"}}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactPageVisitDropsStaleErrors(t *testing.T) {
	srv, _ := newTestRouter(t)
	b := newBrowser(t, srv)
	b.get("/contact")
	require.Equal(t, http.StatusUnprocessableEntity, b.post("/contact", nil, false).Code)

	doc := parseHTML(t, b.get("/contact"))
	require.Empty(t, strings.TrimSpace(doc.Find("#contact-name-error").Text()))
	require.Empty(t, strings.TrimSpace(doc.Find("#contact-email-error").Text()))
	require.Empty(t, strings.TrimSpace(doc.Find("#contact-message-error").Text()))
}

func TestContactErrorsTranslated(t *testing.T) {
	srv, _ := newTestRouter(t)
	b := newBrowser(t, srv)
	b.get("/contact?hl=fr")

	rec := b.post("/contact", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	got := strings.TrimSpace(parseHTML(t, rec).Find("#contact-name-error").Text())
	require.NotEmpty(t, got)
	require.Equal(t, i18nBundle.T("fr", "contact.error.name_required"), got)
}
