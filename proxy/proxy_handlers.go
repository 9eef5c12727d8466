package proxy

import (
	"net/http"

	"github.com/AdguardTeam/gomitmproxy"
	"github.com/AdguardTeam/urlmatcher"
	"github.com/AdguardTeam/urlmatcher/contenttype"
	"github.com/AdguardTeam/urlmatcher/rules"
)

// onRequest handles the outgoing HTTP requests.
func (s *Server) onRequest(sess *gomitmproxy.Session) (req *http.Request, res *http.Response) {
	r := sess.Request()
	session := NewSession(sess.ID(), r)

	s.logger.Debug("saving session", "id", session.ID)
	sess.SetProp(sessionPropKey, session)

	if r.Method == http.MethodConnect {
		// Do nothing for CONNECT requests.
		return nil, nil
	}

	f := s.blockingFilter(session)
	if f != nil {
		s.logger.Debug("blocked", "id", session.ID, "filter", f.Text(), "url", session.URL)

		// Mark the request as blocked so that onResponse skips it.
		sess.SetProp(requestBlockedKey, true)

		return nil, newBlockedResponse(s.logger, session, f)
	}

	return r, nil
}

// onResponse handles the responses.  The request is checked again if the
// response tells a different content type.
func (s *Server) onResponse(sess *gomitmproxy.Session) (res *http.Response) {
	if _, ok := sess.GetProp(requestBlockedKey); ok {
		return nil
	}

	v, ok := sess.GetProp(sessionPropKey)
	if !ok {
		s.logger.Error("session not found", "id", sess.ID())

		return nil
	}

	session, ok := v.(*Session)
	if !ok {
		s.logger.Error("session not found", "id", sess.ID(), "type", v)

		return nil
	}

	if !session.SetResponse(sess.Response()) {
		return nil
	}

	f := s.blockingFilter(session)
	if f != nil {
		s.logger.Debug("blocked by type", "id", session.ID, "filter", f.Text(), "type", session.Type)

		return newBlockedResponse(s.logger, session, f)
	}

	return nil
}

// blockingFilter returns the filter that blocks the request or nil if the
// request should pass.  Pages whitelisted with $document are not filtered at
// all, and pages whitelisted with $genericblock are only filtered with
// site-specific filters.
func (s *Server) blockingFilter(session *Session) (f urlmatcher.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	specificOnly := false
	if session.DocumentURL != "" {
		doc, host := session.DocumentURL, session.DocumentHost
		if s.matcher.IsWhitelisted(doc, contenttype.Document, host, "") {
			return nil
		}

		specificOnly = s.matcher.IsWhitelisted(doc, contenttype.GenericBlock, host, "")
	}

	f = s.matcher.Match(session.URL, session.Type, session.DocumentHost, "", specificOnly)
	if f == nil || f.Kind() == rules.KindWhitelist {
		return nil
	}

	return f
}
