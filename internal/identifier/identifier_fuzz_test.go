//go:build go1.18

package identifier

import "testing"

// FuzzValidateIBAN exercises the validator with arbitrary input. Validators
// sit at a trust boundary: they must never panic and a verdict must always
// carry a reason when it fails.
func FuzzValidateIBAN(f *testing.F) {
	f.Add("")
	f.Add("FR76 3000 1007 9412 3456 7890 185")
	f.Add("DE89370400440532013000")
	f.Add("FR76")
	f.Add("!!!!")
	f.Add(string([]byte{0x00, 0xff, 0x41}))

	f.Fuzz(func(t *testing.T, input string) {
		v := ValidateIBAN(input)
		if !v.Valid && v.Reason == "" {
			t.Error("failed verdict must carry a reason")
		}
		if v.Valid && v.Err() != nil {
			t.Error("valid verdict must not produce an error")
		}
	})
}

// FuzzValidateNIR covers the one validator that re-parses its input as an
// integer after character substitution.
func FuzzValidateNIR(f *testing.F) {
	f.Add("155057800608409")
	f.Add("194032A00401084")
	f.Add("194032B00401014")
	f.Add("")
	f.Add("2A2A2A2A2A2A2A2")

	f.Fuzz(func(t *testing.T, input string) {
		v := ValidateNIR(input)
		if !v.Valid && v.Reason == "" {
			t.Error("failed verdict must carry a reason")
		}
	})
}
