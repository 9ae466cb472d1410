// Package identifier validates banking and tax identifiers used to gate
// money movement: IBAN, BIC, SIRET, SIREN, VAT numbers, and the French
// social security number (NIR).
//
// Every validator is a pure function returning a Verdict, not an error.
// A failed check is a fact about the input, so batch callers (approving
// many payments, pre-flight profile checks) can collect verdicts and keep
// going. Use Verdict.Err when a caller needs the failure as a coded error.
//
// An empty value is always valid: every identifier field is optional and
// presence requirements belong to the caller.
package identifier

import (
	"strings"

	dErrors "roadbook/pkg/domain-errors"
)

// Kind names the identifier class a verdict refers to.
type Kind string

const (
	KindIBAN  Kind = "iban"
	KindBIC   Kind = "bic"
	KindSIRET Kind = "siret"
	KindSIREN Kind = "siren"
	KindVAT   Kind = "vat"
	KindNIR   Kind = "nir"
)

// Verdict is the outcome of validating one identifier.
type Verdict struct {
	Kind   Kind
	Valid  bool
	Reason string // empty when valid
	Note   string // caveat on the check itself, e.g. the VAT approximation
}

// Err converts a failed verdict into a coded error. Checksum-bearing
// identifiers (IBAN, SIRET, SIREN, NIR) map to CodeInvalidChecksum;
// pattern-only identifiers (BIC, VAT) map to CodeInvalidFormat.
// Returns nil for valid verdicts.
func (v Verdict) Err() error {
	if v.Valid {
		return nil
	}
	msg := string(v.Kind) + ": " + v.Reason
	switch v.Kind {
	case KindBIC, KindVAT:
		return dErrors.New(dErrors.CodeInvalidFormat, msg)
	default:
		return dErrors.New(dErrors.CodeInvalidChecksum, msg)
	}
}

func valid(kind Kind) Verdict {
	return Verdict{Kind: kind, Valid: true}
}

func fail(kind Kind, reason string) Verdict {
	return Verdict{Kind: kind, Reason: reason}
}

// normalize strips the separators identifiers are commonly written with
// (spaces, hyphens, dots) and uppercases the rest.
func normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case ' ', '\t', '-', '.':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

func isDigit(b byte) bool  { return b >= '0' && b <= '9' }
func isLetter(b byte) bool { return b >= 'A' && b <= 'Z' }
func isAlnum(b byte) bool  { return isDigit(b) || isLetter(b) }

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
