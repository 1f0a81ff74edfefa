package resource

const (
	// HeaderCSRFToken carries anti-forgery token of mutating API requests
	HeaderCSRFToken = "X-CSRF-Token"
	// FieldCSRFToken carries anti-forgery token of html form submissions
	FieldCSRFToken = "authenticity_token"
	// MetaCSRFToken is the name of the meta tag the token is rendered into
	MetaCSRFToken = "csrf-token"

	PathPosts   = "/posts"
	PathNewPost = "/posts/new"
)
