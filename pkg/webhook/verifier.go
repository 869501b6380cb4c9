package webhook

import (
	"net/http"
	"strings"

	"github.com/twilio/twilio-go/client"
)

// SignatureHeader carries Twilio's request signature.
const SignatureHeader = "X-Twilio-Signature"

// Verifier authenticates a parsed callback request.
type Verifier interface {
	Verify(r *http.Request) error
}

// TwilioVerifier checks X-Twilio-Signature with the account auth token.
type TwilioVerifier struct {
	validator client.RequestValidator
	publicURL string
}

// NewTwilioVerifier returns a verifier for authToken. publicURL is the
// externally visible scheme and host; when empty it is derived from the
// request and X-Forwarded-Proto.
func NewTwilioVerifier(authToken, publicURL string) *TwilioVerifier {
	return &TwilioVerifier{
		validator: client.NewRequestValidator(authToken),
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Verify expects r.ParseForm to have been called.
func (v *TwilioVerifier) Verify(r *http.Request) error {
	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		return ErrInvalidSignature
	}

	params := make(map[string]string, len(r.PostForm))
	for k, vals := range r.PostForm {
		if len(vals) > 0 {
			params[k] = vals[0]
		}
	}
	if !v.validator.Validate(v.requestURL(r), params, signature) {
		return ErrInvalidSignature
	}
	return nil
}

func (v *TwilioVerifier) requestURL(r *http.Request) string {
	if v.publicURL != "" {
		return v.publicURL + r.URL.RequestURI()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
