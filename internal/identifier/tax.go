package identifier

import "strconv"

// ValidateSIRET checks a French establishment number: 14 digits carrying a
// Luhn checksum.
func ValidateSIRET(raw string) Verdict {
	s := normalize(raw)
	if s == "" {
		return valid(KindSIRET)
	}
	if len(s) != 14 || !allDigits(s) {
		return fail(KindSIRET, "must be exactly 14 digits")
	}
	if !luhnValid(s) {
		return fail(KindSIRET, "checksum failed")
	}
	return valid(KindSIRET)
}

// ValidateSIREN checks a French business number: 9 digits carrying a Luhn
// checksum.
func ValidateSIREN(raw string) Verdict {
	s := normalize(raw)
	if s == "" {
		return valid(KindSIREN)
	}
	if len(s) != 9 || !allDigits(s) {
		return fail(KindSIREN, "must be exactly 9 digits")
	}
	if !luhnValid(s) {
		return fail(KindSIREN, "checksum failed")
	}
	return valid(KindSIREN)
}

// luhnValid runs the Luhn checksum: from the rightmost digit, double every
// second digit, sum the digits of each result, and require the total to be
// divisible by 10.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidateVAT checks a VAT number. French numbers (FR prefix) take the
// strict path: FR, a two-character control block, then the 9-digit SIREN.
// The control block is accepted if it is two digits, a letter and a digit
// in either order, or two letters, where letters exclude O and I.
//
// This is a structural approximation of the French VAT key, kept for
// compatibility with existing records. It does not verify the authoritative
// mod-97 control key, so a structurally plausible but wrong key passes; the
// returned verdict carries a Note saying so. Non-French numbers get a
// best-effort shape check only (two-letter country code plus 2 to 12
// alphanumerics).
func ValidateVAT(raw string) Verdict {
	s := normalize(raw)
	if s == "" {
		return valid(KindVAT)
	}
	if len(s) < 4 {
		return fail(KindVAT, "too short to be a vat number")
	}
	if !isLetter(s[0]) || !isLetter(s[1]) {
		return fail(KindVAT, "must start with a two-letter country code")
	}

	if s[:2] != "FR" {
		if len(s) > 14 {
			return fail(KindVAT, "too long to be a vat number")
		}
		for i := 2; i < len(s); i++ {
			if !isAlnum(s[i]) {
				return fail(KindVAT, "must contain only letters and digits after the country code")
			}
		}
		v := valid(KindVAT)
		v.Note = "non-French vat numbers get a shape check only"
		return v
	}

	if len(s) != 13 {
		return fail(KindVAT, "french vat number must be 13 characters")
	}
	if !vatControlPlausible(s[2], s[3]) {
		return fail(KindVAT, "control block is not plausible")
	}
	if !allDigits(s[4:]) {
		return fail(KindVAT, "must end with the 9-digit siren")
	}
	v := valid(KindVAT)
	v.Note = "french control block checked structurally, not against the authoritative key"
	return v
}

// vatControlPlausible accepts digit/digit, letter/digit, digit/letter, and
// letter/letter control blocks, where letters exclude O and I.
func vatControlPlausible(a, b byte) bool {
	keyLetter := func(c byte) bool {
		return isLetter(c) && c != 'O' && c != 'I'
	}
	switch {
	case isDigit(a) && isDigit(b):
		return true
	case keyLetter(a) && isDigit(b):
		return true
	case isDigit(a) && keyLetter(b):
		return true
	case keyLetter(a) && keyLetter(b):
		return true
	}
	return false
}

// ValidateNIR checks a French social security number: 15 digits where the
// last two are a control key equal to 97 minus (the first 13 digits modulo
// 97). Corsican department codes are the one non-numeric wrinkle: 2A maps
// to 19 and 2B to 18 before the checksum runs.
func ValidateNIR(raw string) Verdict {
	s := normalize(raw)
	if s == "" {
		return valid(KindNIR)
	}
	if len(s) != 15 {
		return fail(KindNIR, "must be exactly 15 characters")
	}

	body, key := s[:13], s[13:]
	if !allDigits(key) {
		return fail(KindNIR, "control key must be numeric")
	}

	// Department occupies positions 6 and 7 of the body.
	switch body[5:7] {
	case "2A":
		body = body[:5] + "19" + body[7:]
	case "2B":
		body = body[:5] + "18" + body[7:]
	}
	if !allDigits(body) {
		return fail(KindNIR, "must be numeric apart from a Corsican department code")
	}

	n, err := strconv.ParseUint(body, 10, 64)
	if err != nil {
		return fail(KindNIR, "must be numeric apart from a Corsican department code")
	}
	want := 97 - n%97
	got, _ := strconv.ParseUint(key, 10, 64)
	if want != got {
		return fail(KindNIR, "control key mismatch")
	}
	return valid(KindNIR)
}
