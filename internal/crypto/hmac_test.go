package crypto

import (
	"encoding/base64"
	"testing"
)

func TestHeadersAtDeterministic(t *testing.T) {
	auth := &HMACAuth{
		Key:        "key-1",
		Secret:     base64.StdEncoding.EncodeToString([]byte("topsecret")),
		Passphrase: "pass",
		Address:    "0xabc",
	}

	h1 := auth.HeadersAt("POST", "/order", `{"size":10}`, 1756000000)
	h2 := auth.HeadersAt("POST", "/order", `{"size":10}`, 1756000000)

	if h1["POLY_SIGNATURE"] == "" {
		t.Fatal("empty signature")
	}
	if h1["POLY_SIGNATURE"] != h2["POLY_SIGNATURE"] {
		t.Error("same inputs must produce the same signature")
	}
	if h1["POLY_TIMESTAMP"] != "1756000000" {
		t.Errorf("timestamp = %q", h1["POLY_TIMESTAMP"])
	}
	if h1["POLY_ADDRESS"] != "0xabc" || h1["POLY_API_KEY"] != "key-1" {
		t.Errorf("identity headers wrong: %v", h1)
	}

	// Any change to the signed message must change the signature.
	h3 := auth.HeadersAt("POST", "/order", `{"size":11}`, 1756000000)
	if h3["POLY_SIGNATURE"] == h1["POLY_SIGNATURE"] {
		t.Error("different body must produce a different signature")
	}
}

func TestStringRedacts(t *testing.T) {
	auth := &HMACAuth{Key: "abcdef123456", Secret: "supersecretvalue"}
	s := auth.String()
	if len(s) == 0 || s == "HMACAuth{key=abcdef123456, secret=supersecretvalue}" {
		t.Errorf("String() must redact: %s", s)
	}
}
