package phone

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"11987654321", "5511987654321"},
		{"+55 11 98765-4321", "5511987654321"},
		{"5511987654321", "5511987654321"},
		{"(11) 98765-4321", "5511987654321"},
		{"11 3456 7890", "551134567890"},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"11987654321", "+55 (11) 98765-4321", "5521999887766"}
	for _, in := range inputs {
		once, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", once, err)
		}
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeNoDigits(t *testing.T) {
	for _, in := range []string{"", "abc", "+-() ", "no digits here"} {
		if _, err := Normalize(in); err != ErrInvalidPhone {
			t.Errorf("Normalize(%q) error = %v, want ErrInvalidPhone", in, err)
		}
	}
}

func TestNormalizeStrict(t *testing.T) {
	// 11 national digits: mobile.
	if got, err := NormalizeStrict("11987654321"); err != nil || got != "5511987654321" {
		t.Errorf("NormalizeStrict mobile = %q, %v", got, err)
	}
	// 10 national digits: landline.
	if got, err := NormalizeStrict("1134567890"); err != nil || got != "551134567890" {
		t.Errorf("NormalizeStrict landline = %q, %v", got, err)
	}
	// Too short and too long are rejected.
	for _, in := range []string{"987654321", "55119876543210"} {
		if _, err := NormalizeStrict(in); err == nil {
			t.Errorf("NormalizeStrict(%q) accepted, want error", in)
		}
	}
}

func TestPlausibleLength(t *testing.T) {
	if PlausibleLength("123456789") {
		t.Error("9 digits should not be plausible")
	}
	if !PlausibleLength("1234567890") || !PlausibleLength("1234567890123") {
		t.Error("10-13 digits should be plausible")
	}
	if PlausibleLength("12345678901234") {
		t.Error("14 digits should not be plausible")
	}
}
