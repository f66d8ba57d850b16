package certificate

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"math"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"charity/internal/domain"
	"charity/internal/storage"
)

// Issuer renders and stores a certificate and returns its URL. Errors wrap domain.ErrRender.
type Issuer interface {
	IssueDonationCertificate(ctx context.Context, d domain.Donation, p domain.Project) (string, error)
	IssueVolunteerCertificate(ctx context.Context, r domain.Registration, p domain.Project) (string, error)
}

// HTMLIssuer renders certificates as standalone HTML documents. Donation
// certificates use the donor's locale when it parses, lang otherwise.
type HTMLIssuer struct {
	store storage.ObjectStore
	lang  language.Tag
}

func NewHTMLIssuer(store storage.ObjectStore, lang language.Tag) *HTMLIssuer {
	return &HTMLIssuer{store: store, lang: lang}
}

var donationTmpl = template.Must(template.New("donation").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Certificate of Donation</title></head>
<body class="certificate donation">
<h1>Certificate of Appreciation</h1>
<p>This certifies that <strong>{{.Name}}</strong> donated <strong>{{.Amount}}</strong> to <em>{{.Project}}</em>.</p>
<p>Tracking code {{.TrackingCode}} &middot; {{.Date}}</p>
</body></html>`))

var volunteerTmpl = template.Must(template.New("volunteer").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Certificate of Volunteering</title></head>
<body class="certificate volunteer">
<h1>Certificate of Volunteering</h1>
<p>Awarded to volunteer <strong>{{.Volunteer}}</strong> for <em>{{.Project}}</em>{{if .Role}} as {{.Role}}{{end}}.</p>
<p>{{.Hours}} hours contributed, {{.Tasks}} tasks completed.</p>
<p>{{.Date}}</p>
</body></html>`))

func (i *HTMLIssuer) IssueDonationCertificate(ctx context.Context, d domain.Donation, p domain.Project) (string, error) {
	issued := time.Now().UTC()
	if d.CompletedAt != nil {
		issued = *d.CompletedAt
	}
	var buf bytes.Buffer
	err := donationTmpl.Execute(&buf, map[string]string{
		"Name":         d.DisplayName(),
		"Amount":       FormatAmount(i.langFor(d.Donor.Locale), d.Currency, d.Amount),
		"Project":      p.Title,
		"TrackingCode": d.TrackingCode,
		"Date":         issued.Format("2 January 2006"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: donation template: %v", domain.ErrRender, err)
	}
	return i.put(ctx, "certificates/donations/"+d.ID+".html", buf.Bytes())
}

func (i *HTMLIssuer) IssueVolunteerCertificate(ctx context.Context, r domain.Registration, p domain.Project) (string, error) {
	issued := time.Now().UTC()
	if r.CompletedAt != nil {
		issued = *r.CompletedAt
	}
	printer := message.NewPrinter(i.lang)
	var buf bytes.Buffer
	err := volunteerTmpl.Execute(&buf, map[string]string{
		"Volunteer": r.VolunteerID,
		"Project":   p.Title,
		"Role":      r.Declaration.PreferredRole,
		"Hours":     printer.Sprint(r.HoursContributed),
		"Tasks":     printer.Sprint(r.TasksCompleted),
		"Date":      issued.Format("2 January 2006"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: volunteer template: %v", domain.ErrRender, err)
	}
	return i.put(ctx, "certificates/volunteers/"+r.ID+".html", buf.Bytes())
}

func (i *HTMLIssuer) langFor(locale string) language.Tag {
	if locale == "" {
		return i.lang
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return i.lang
	}
	return tag
}

func (i *HTMLIssuer) put(ctx context.Context, key string, data []byte) (string, error) {
	url, err := i.store.Put(ctx, key, data, "text/html; charset=utf-8")
	if err != nil {
		return "", fmt.Errorf("%w: store certificate: %v", domain.ErrRender, err)
	}
	return url, nil
}

// FormatAmount renders a stored amount with the currency symbol and the
// grouping rules of lang.
func FormatAmount(lang language.Tag, code string, amount int64) string {
	printer := message.NewPrinter(lang)
	unit, err := currency.ParseISO(code)
	if err != nil {
		return printer.Sprintf("%d %s", amount, code)
	}
	digits := domain.MinorUnitDigits(code)
	value := float64(amount) / math.Pow10(digits)
	return printer.Sprintf("%v %v", currency.Symbol(unit), number.Decimal(value, number.Scale(digits)))
}
