package proxy

import (
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/AdguardTeam/urlmatcher/contenttype"
	"github.com/AdguardTeam/urlmatcher/internal/ufnet"
)

// Session contains the data necessary to filter a request and its response.
//
// A request is checked twice.  Once the request headers are received, its
// type is assumed from the Sec-Fetch-Dest and Accept headers and from the URL.
// Once the response headers are received, the Content-Type header tells the
// type for sure and the request is checked again if the type has changed.
type Session struct {
	// HTTPRequest is the filtered request.
	HTTPRequest *http.Request

	// HTTPResponse is the response, if it has been received.
	HTTPResponse *http.Response

	// ID is the identifier of the proxy session.
	ID string

	// URL is the full URL of the request.
	URL string

	// DocumentURL is the URL of the page that made the request, if known.
	DocumentURL string

	// DocumentHost is the hostname of the page that made the request, if
	// known.
	DocumentHost string

	// MediaType is the media type of the response.
	MediaType string

	// Type is the content type of the request.
	Type contenttype.Type
}

// NewSession returns a new *Session for req.
func NewSession(id string, req *http.Request) (s *Session) {
	s = &Session{
		HTTPRequest: req,
		ID:          id,
		URL:         req.URL.String(),
		Type:        assumeRequestType(req, nil),
	}

	if ref := req.Referer(); ref != "" {
		s.DocumentURL = ref
		s.DocumentHost = ufnet.ExtractHostname(ref)
	}

	return s
}

// SetResponse sets the response of the session and updates the request type.
// It returns true if the type has changed.
func (s *Session) SetResponse(res *http.Response) (changed bool) {
	s.HTTPResponse = res

	mediaType, _, _ := mime.ParseMediaType(res.Header.Get("Content-Type"))
	s.MediaType = mediaType

	t := assumeRequestType(s.HTTPRequest, res)
	if t == contenttype.Other || t == s.Type {
		return false
	}

	s.Type = t

	return true
}

// fetchDests maps the values of the Sec-Fetch-Dest header to the content
// types.
var fetchDests = map[string]contenttype.Type{
	"audio":         contenttype.Media,
	"audioworklet":  contenttype.Script,
	"document":      contenttype.Document,
	"embed":         contenttype.Object,
	"font":          contenttype.Font,
	"frame":         contenttype.Subdocument,
	"iframe":        contenttype.Subdocument,
	"image":         contenttype.Image,
	"object":        contenttype.Object,
	"paintworklet":  contenttype.Script,
	"script":        contenttype.Script,
	"serviceworker": contenttype.Script,
	"sharedworker":  contenttype.Script,
	"style":         contenttype.Stylesheet,
	"track":         contenttype.Media,
	"video":         contenttype.Media,
	"worker":        contenttype.Script,
	"xslt":          contenttype.Stylesheet,
}

// assumeRequestType assumes the request type from what is known at this
// point.  res is nil if the response hasn't been received yet.
func assumeRequestType(req *http.Request, res *http.Response) (t contenttype.Type) {
	if res != nil {
		mediaType, _, _ := mime.ParseMediaType(res.Header.Get("Content-Type"))

		return assumeRequestTypeFromMediaType(mediaType)
	}

	if t, ok := fetchDests[req.Header.Get("Sec-Fetch-Dest")]; ok {
		return t
	}

	t = assumeRequestTypeFromMediaType(req.Header.Get("Accept"))
	if t == contenttype.Other {
		t = assumeRequestTypeFromURL(req.URL)
	}

	return t
}

// assumeRequestTypeFromMediaType tries to detect the content type from the
// media type.
func assumeRequestTypeFromMediaType(mediaType string) (t contenttype.Type) {
	switch {
	case
		strings.HasPrefix(mediaType, "application/xhtml"),
		strings.HasPrefix(mediaType, "text/html"):
		return contenttype.Document
	case strings.HasPrefix(mediaType, "text/css"):
		return contenttype.Stylesheet
	case
		strings.HasPrefix(mediaType, "application/javascript"),
		strings.HasPrefix(mediaType, "application/x-javascript"),
		strings.HasPrefix(mediaType, "text/javascript"):
		return contenttype.Script
	case strings.HasPrefix(mediaType, "image/"):
		return contenttype.Image
	case strings.HasPrefix(mediaType, "application/x-shockwave-flash"):
		return contenttype.Object
	case
		strings.HasPrefix(mediaType, "application/font"),
		strings.HasPrefix(mediaType, "application/vnd.ms-fontobject"),
		strings.HasPrefix(mediaType, "application/x-font-"),
		strings.HasPrefix(mediaType, "font/"):
		return contenttype.Font
	case
		strings.HasPrefix(mediaType, "audio/"),
		strings.HasPrefix(mediaType, "video/"):
		return contenttype.Media
	case strings.HasPrefix(mediaType, "application/json"):
		return contenttype.XMLHTTPRequest
	default:
		return contenttype.Other
	}
}

// fileExtensions maps file extensions to the content types.
var fileExtensions = map[string]contenttype.Type{
	".js":     contenttype.Script,
	".vbs":    contenttype.Script,
	".coffee": contenttype.Script,

	".jpg":  contenttype.Image,
	".jpeg": contenttype.Image,
	".gif":  contenttype.Image,
	".png":  contenttype.Image,
	".webp": contenttype.Image,
	".svg":  contenttype.Image,
	".tiff": contenttype.Image,
	".ico":  contenttype.Image,

	".css":  contenttype.Stylesheet,
	".less": contenttype.Stylesheet,

	".jar": contenttype.Object,
	".swf": contenttype.Object,

	".wav":  contenttype.Media,
	".mp3":  contenttype.Media,
	".mp4":  contenttype.Media,
	".avi":  contenttype.Media,
	".flv":  contenttype.Media,
	".m3u":  contenttype.Media,
	".webm": contenttype.Media,
	".mpeg": contenttype.Media,
	".3gp":  contenttype.Media,
	".ogg":  contenttype.Media,
	".mov":  contenttype.Media,
	".mkv":  contenttype.Media,

	".ttf":   contenttype.Font,
	".otf":   contenttype.Font,
	".woff":  contenttype.Font,
	".woff2": contenttype.Font,
	".eot":   contenttype.Font,

	".json": contenttype.XMLHTTPRequest,
}

// assumeRequestTypeFromURL assumes the request type from the file extension.
func assumeRequestTypeFromURL(u *url.URL) (t contenttype.Type) {
	t, ok := fileExtensions[strings.ToLower(path.Ext(u.Path))]
	if !ok {
		return contenttype.Other
	}

	return t
}
