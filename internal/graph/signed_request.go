package graph

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"
)

const signedRequestAlgorithm = "HMAC-SHA256"

var base64Alphabet = regexp.MustCompile(`^[a-zA-Z0-9/\r\n+]*={0,2}$`)

// SignedRequest is a verified "signature.payload" string signed with the app
// secret.
type SignedRequest struct {
	app     *App
	raw     string
	payload *Object
}

// ParseSignedRequest verifies raw against the secret of app and decodes its
// payload.
func ParseSignedRequest(app *App, raw string) (*SignedRequest, error) {
	encodedSig, encodedPayload, ok := strings.Cut(raw, ".")
	if !ok {
		return nil, &SignedRequestError{Message: "Malformed signed request.", Code: CodeMalformedSigned}
	}

	sig, err := Base64URLDecode(encodedSig)
	if err != nil {
		return nil, err
	}
	if len(sig) == 0 || string(sig) == "0" {
		return nil, &SignedRequestError{Message: "Signed request has malformed encoded signature data.", Code: CodeUndecodableSigned}
	}
	if !hmac.Equal(signPayload(app, encodedPayload), sig) {
		return nil, &SignedRequestError{Message: "Signed request has an invalid signature.", Code: CodeSignatureMismatch}
	}

	payload, err := decodeSignedPayload(encodedPayload)
	if err != nil {
		return nil, err
	}
	sr := &SignedRequest{app: app, raw: raw, payload: payload}
	if alg, _ := sr.Get("algorithm").(string); alg != signedRequestAlgorithm {
		return nil, &SignedRequestError{Message: "Signed request is using the wrong algorithm.", Code: CodeWrongAlgorithm}
	}
	return sr, nil
}

func decodeSignedPayload(encoded string) (*Object, error) {
	data, err := Base64URLDecode(encoded)
	if err != nil {
		return nil, err
	}
	malformed := &SignedRequestError{Message: "Signed request has malformed encoded payload data.", Code: CodeUndecodableSigned}
	if len(data) == 0 {
		return nil, malformed
	}
	v, err := DecodeJSON(data)
	if err != nil {
		return nil, malformed
	}
	switch val := v.(type) {
	case *Object:
		return val, nil
	case []any:
		return CollectionFromSlice(val), nil
	default:
		return nil, malformed
	}
}

// MakeSignedRequest signs payload with the secret of app. algorithm and
// issued_at are filled in when missing.
func MakeSignedRequest(app *App, payload *Object) (string, error) {
	payload = payload.Clone()
	if v, ok := payload.Get("algorithm"); !ok || v == nil {
		payload.Set("algorithm", signedRequestAlgorithm)
	}
	if v, ok := payload.Get("issued_at"); !ok || v == nil {
		payload.Set("issued_at", now().Unix())
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	encodedPayload := Base64URLEncode(data)
	return Base64URLEncode(signPayload(app, encodedPayload)) + "." + encodedPayload, nil
}

func signPayload(app *App, encodedPayload string) []byte {
	mac := hmac.New(sha256.New, []byte(app.Secret()))
	mac.Write([]byte(encodedPayload))
	return mac.Sum(nil)
}

// Raw returns the signed request as received.
func (s *SignedRequest) Raw() string { return s.raw }

// Payload returns the decoded payload.
func (s *SignedRequest) Payload() *Object { return s.payload }

// Get returns a payload field, or nil.
func (s *SignedRequest) Get(key string) any {
	v, _ := s.payload.Get(key)
	return v
}

// UserID returns the user_id field, or "".
func (s *SignedRequest) UserID() string {
	id, _ := toString(s.Get("user_id"))
	return id
}

// HasOAuthData reports whether the payload carries an oauth_token or code.
func (s *SignedRequest) HasOAuthData() bool {
	return s.Get("oauth_token") != nil || s.Get("code") != nil
}

// Base64URLEncode is padded standard base64 with "+/" replaced by "-_".
func Base64URLEncode(data []byte) string {
	return strings.NewReplacer("+", "-", "/", "_").Replace(base64.StdEncoding.EncodeToString(data))
}

// Base64URLDecode reverses Base64URLEncode. Padding is optional.
func Base64URLDecode(s string) ([]byte, error) {
	std := strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if !base64Alphabet.MatchString(std) {
		return nil, &SignedRequestError{Message: "Signed request contains malformed base64 encoding.", Code: CodeBadBase64}
	}
	std = strings.NewReplacer("\r", "", "\n", "").Replace(std)
	std = strings.TrimRight(std, "=")
	if rem := len(std) % 4; rem != 0 {
		std += strings.Repeat("=", 4-rem)
	}
	data, err := base64.StdEncoding.DecodeString(std)
	if err != nil {
		return nil, &SignedRequestError{Message: "Signed request contains malformed base64 encoding.", Code: CodeBadBase64}
	}
	return data, nil
}
