// internal/actions/email/layout.go
package email

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var layoutMarkers = []string{"<html", "<!doctype", "<body"}

// HasLayout reports whether content already carries a document shell.
func HasLayout(content string) bool {
	lower := strings.ToLower(content)
	for _, m := range layoutMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

const layoutTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f5f7;font-family:Arial,Helvetica,sans-serif;">
<table role="presentation" width="100%%" cellpadding="0" cellspacing="0">
<tr><td align="center" style="padding:24px;">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:6px;">
<tr><td style="padding:20px 32px;border-bottom:1px solid #e5e7eb;font-size:18px;font-weight:bold;color:#111827;">%s</td></tr>
<tr><td style="padding:32px;font-size:15px;line-height:1.6;color:#374151;">%s</td></tr>
<tr><td style="padding:16px 32px;font-size:12px;color:#9ca3af;border-top:1px solid #e5e7eb;">You are receiving this email because of activity on your %s merchant account.</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`

// WrapLayout places an HTML fragment inside the standard branded layout.
func WrapLayout(fragment, subject, brand string) string {
	if brand == "" {
		brand = "Merchant Services"
	}
	b := html.EscapeString(brand)
	return fmt.Sprintf(layoutTemplate, html.EscapeString(subject), b, fragment, b)
}

var (
	blockBreak = regexp.MustCompile(`(?i)<\s*(br\s*/?|/p|/div|/h[1-6]|/li|/tr)\s*>`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
	spaceRuns  = regexp.MustCompile(`[ \t]+`)
	textPolicy = bluemonday.StrictPolicy()
)

// PlainText derives a readable text alternative from HTML.
func PlainText(htmlContent string) string {
	withBreaks := blockBreak.ReplaceAllString(htmlContent, "$0\n")
	stripped := html.UnescapeString(textPolicy.Sanitize(withBreaks))

	lines := strings.Split(stripped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
