package identifier

// ValidateIBAN checks an International Bank Account Number.
//
// The input may contain spaces or hyphens; case is ignored. After
// normalization the IBAN must be 15 to 34 characters, start with two
// letters (country) and two digits (check), and contain only
// alphanumerics. The checksum moves the first four characters to the end,
// expands letters to two-digit numerals (A=10 .. Z=35), and requires the
// resulting integer to be congruent to 1 modulo 97.
func ValidateIBAN(raw string) Verdict {
	s := normalize(raw)
	if s == "" {
		return valid(KindIBAN)
	}
	if len(s) < 15 || len(s) > 34 {
		return fail(KindIBAN, "length must be between 15 and 34 characters")
	}
	if !isLetter(s[0]) || !isLetter(s[1]) {
		return fail(KindIBAN, "must start with a two-letter country code")
	}
	if !isDigit(s[2]) || !isDigit(s[3]) {
		return fail(KindIBAN, "characters 3 and 4 must be the numeric check digits")
	}
	for i := 4; i < len(s); i++ {
		if !isAlnum(s[i]) {
			return fail(KindIBAN, "must contain only letters and digits")
		}
	}

	// mod-97 over the rearranged string, digit by digit so the full
	// integer never needs to materialize.
	rearranged := s[4:] + s[:4]
	rem := 0
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		if isDigit(c) {
			rem = (rem*10 + int(c-'0')) % 97
		} else {
			rem = (rem*100 + int(c-'A') + 10) % 97
		}
	}
	if rem != 1 {
		return fail(KindIBAN, "checksum failed")
	}
	return valid(KindIBAN)
}

// ValidateBIC checks a Bank Identifier Code: 4 letters (institution),
// 2 letters (country), 2 alphanumerics (location), and an optional
// 3-alphanumeric branch suffix. No checksum exists for BICs; this is a
// pure format check.
func ValidateBIC(raw string) Verdict {
	s := normalize(raw)
	if s == "" {
		return valid(KindBIC)
	}
	if len(s) != 8 && len(s) != 11 {
		return fail(KindBIC, "length must be 8 or 11 characters")
	}
	for i := 0; i < 6; i++ {
		if !isLetter(s[i]) {
			return fail(KindBIC, "institution and country codes must be letters")
		}
	}
	for i := 6; i < len(s); i++ {
		if !isAlnum(s[i]) {
			return fail(KindBIC, "location and branch codes must be alphanumeric")
		}
	}
	return valid(KindBIC)
}
