// Package renderer turns a quote record into document bytes.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"quote-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.Renderer = (*HTML)(nil)

// HTML renders quotes as standalone HTML documents.
type HTML struct {
	tpl *template.Template
}

func NewHTML() (*HTML, error) {
	tpl, err := template.New("quote").Funcs(template.FuncMap{
		"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"join":  func(ss []string) string { return strings.Join(ss, ", ") },
	}).Parse(quoteTemplate)
	if err != nil {
		return nil, err
	}
	return &HTML{tpl: tpl}, nil
}

func (r *HTML) ContentType() string { return "text/html; charset=utf-8" }
func (r *HTML) Ext() string         { return "html" }

func (r *HTML) Render(ctx context.Context, doc adapter.QuoteDocument) ([]byte, error) {
	if doc.Price == nil {
		return nil, fmt.Errorf("render quote: missing price breakdown")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("render quote: %w", err)
	}
	return buf.Bytes(), nil
}

const quoteTemplate = `<!DOCTYPE html>
<html lang="nl">
<head>
<meta charset="utf-8">
<title>Offerte {{.JobID}}</title>
<style>
body { font-family: sans-serif; max-width: 42em; margin: 2em auto; color: #222; }
table { border-collapse: collapse; width: 100%; }
td, th { border-bottom: 1px solid #ddd; padding: 0.4em 0.6em; text-align: left; }
.total { font-weight: bold; }
.muted { color: #777; font-size: 0.9em; }
</style>
</head>
<body>
<h1>Offerte</h1>
<p class="muted">Referentie {{.JobID}} &middot; {{.CreatedAt.Format "02-01-2006"}}</p>

<h2>Klant</h2>
<p>{{.Customer.Name}}<br>{{.Customer.Email}}{{if .Customer.Phone}}<br>{{.Customer.Phone}}{{end}}</p>

<h2>Werkzaamheden</h2>
<p>Oppervlakte: {{.Customer.AreaM2}} m&sup2;<br>
Ondergrond: {{.Substrate}}{{if .Issues}}<br>
Aandachtspunten: {{join .Issues}}{{end}}</p>

<h2>Prijsopbouw</h2>
<table>
<tr><td>Subtotaal</td><td>{{.Price.Currency}} {{money .Price.Subtotal}}</td></tr>
{{if gt .Price.SurchargeFraction 0.0}}<tr><td>Toeslag</td><td>{{money .Price.SurchargeFraction}} (fractie)</td></tr>{{end}}
{{if .Price.MinimumApplied}}<tr><td colspan="2" class="muted">Minimumtarief toegepast</td></tr>{{end}}
<tr><td>BTW</td><td>{{.Price.Currency}} {{money .Price.VATAmount}}</td></tr>
<tr class="total"><td>Totaal</td><td>{{.Price.Currency}} {{money .Price.Total}}</td></tr>
</table>

<h2>Doorlooptijd</h2>
<p>{{.Price.LeadTimeEstimate}}</p>

<h2>Aannames</h2>
<ul>
{{range .Price.Assumptions}}<li>{{.}}</li>
{{end}}</ul>
</body>
</html>
`
