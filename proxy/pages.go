package proxy

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/gomitmproxy/proxyutil"
	"github.com/AdguardTeam/urlmatcher"
	"github.com/AdguardTeam/urlmatcher/internal/ufnet"
)

// blockedPage is the page returned instead of blocked content.
const blockedPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Blocked</title>
</head>
<body>
<h1>Request to {{.Hostname}} was blocked</h1>
<p>Filter: <code>{{.FilterText}}</code></p>
</body>
</html>
`

var blockedPageTmpl = template.Must(template.New("blockedPage").Parse(blockedPage))

// blockedPageParameters are the parameters of [blockedPageTmpl].
type blockedPageParameters struct {
	Hostname   string
	FilterText string
}

// buildBlockedPage returns the blocked page for the session.
func buildBlockedPage(logger *slog.Logger, session *Session, f urlmatcher.Filter) (page string) {
	params := blockedPageParameters{
		Hostname:   ufnet.ExtractHostname(session.URL),
		FilterText: f.Text(),
	}

	var data bytes.Buffer
	err := blockedPageTmpl.Execute(&data, params)
	if err != nil {
		logger.Error("building blocked page", "id", session.ID, slogutil.KeyError, err)

		return ""
	}

	return data.String()
}

// newBlockedResponse returns the response for a blocked request.
func newBlockedResponse(logger *slog.Logger, session *Session, f urlmatcher.Filter) (res *http.Response) {
	body := bytes.NewReader([]byte(buildBlockedPage(logger, session, f)))
	res = proxyutil.NewResponse(http.StatusInternalServerError, body, session.HTTPRequest)
	res.Close = true
	res.Header.Set("Content-Type", "text/html; charset=utf-8")

	return res
}
