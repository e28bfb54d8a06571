// Package sessionhttp hosts the session action protocol over HTTP. A
// Handler owns a middleware factory and runs the full per-call lifecycle
// for every POST: resolve the inbound cookie headers, dispatch the decoded
// action envelope, emit the set-cookie header for a freshly created
// session, then run the completion hook. http.Header serves as both the
// inbound header multi-map and the response header sink, so no adaptation
// layer sits between the transport and the middleware.
package sessionhttp
