package dispatcher

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	textTemplate "text/template"

	"github.com/gpwsignals/engine/internal/domain"
)

// messageData is the shape both channel templates render from.
type messageData struct {
	Symbol     string
	Action     string
	Confidence string
	Price      string
	Target     string
	StopLoss   string
	Reason     string
}

func dataFor(sig domain.TradingSignal) messageData {
	return messageData{
		Symbol:     sig.Stock,
		Action:     strings.ToUpper(string(sig.Type)),
		Confidence: fmt.Sprintf("%.0f%%", sig.Confidence),
		Price:      sig.PriceAtSignal.StringFixed(2),
		Target:     sig.TargetPrice.StringFixed(2),
		StopLoss:   sig.StopLossPrice.StringFixed(2),
		Reason:     reasonSummary(sig.Reason),
	}
}

// reasonSummary renders the discriminated Reason union as a short
// human-readable phrase, spec.md §4.9's "short reason".
func reasonSummary(r domain.Reason) string {
	switch r.Kind {
	case domain.ReasonTechnicalVotes:
		if len(r.BullishVotes) >= len(r.BearishVotes) {
			return strings.Join(r.BullishVotes, ", ")
		}
		return strings.Join(r.BearishVotes, ", ")
	case domain.ReasonNewsAdjusted:
		return "technical signal reinforced by news sentiment"
	case domain.ReasonNewsVeto:
		return "news sentiment overrode the technical signal"
	case domain.ReasonPreferenceFilter:
		return "confidence below your threshold"
	case domain.ReasonInsufficientData:
		return "insufficient price history"
	default:
		return r.Detail
	}
}

var telegramTemplate = textTemplate.Must(textTemplate.New("telegram").Parse(
	"{{.Symbol}}: {{.Action}} ({{.Confidence}} confidence)\n" +
		"Price: {{.Price}}  Target: {{.Target}}  Stop: {{.StopLoss}}\n" +
		"Reason: {{.Reason}}",
))

var emailHTMLTemplate = template.Must(template.New("email_html").Parse(
	`<html><body>
<h2>{{.Symbol}}: {{.Action}}</h2>
<p>Confidence: {{.Confidence}}</p>
<table>
<tr><td>Price at signal</td><td>{{.Price}}</td></tr>
<tr><td>Target</td><td>{{.Target}}</td></tr>
<tr><td>Stop-loss</td><td>{{.StopLoss}}</td></tr>
</table>
<p>{{.Reason}}</p>
</body></html>`,
))

var emailTextTemplate = textTemplate.Must(textTemplate.New("email_text").Parse(
	"{{.Symbol}}: {{.Action}} ({{.Confidence}} confidence)\n" +
		"Price at signal: {{.Price}}\nTarget: {{.Target}}\nStop-loss: {{.StopLoss}}\n\n{{.Reason}}",
))

func renderTelegram(sig domain.TradingSignal) (string, error) {
	var buf bytes.Buffer
	if err := telegramTemplate.Execute(&buf, dataFor(sig)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderEmail(sig domain.TradingSignal) (subject, html, text string, err error) {
	data := dataFor(sig)
	subject = fmt.Sprintf("[GPW] %s %s @ %s", data.Symbol, data.Action, data.Price)

	var htmlBuf, textBuf bytes.Buffer
	if err = emailHTMLTemplate.Execute(&htmlBuf, data); err != nil {
		return "", "", "", err
	}
	if err = emailTextTemplate.Execute(&textBuf, data); err != nil {
		return "", "", "", err
	}
	return subject, htmlBuf.String(), textBuf.String(), nil
}
