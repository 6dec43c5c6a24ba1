package validation

import "testing"

func TestRequiredAndEmail(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	Email("email", "not-an-email", v)
	if v.Empty() {
		t.Fatal("expected violations")
	}
	if v["name"] != "required" || v["email"] != "invalid_email" {
		t.Fatalf("unexpected violations: %#v", v)
	}
}

func TestIsEmail(t *testing.T) {
	cases := map[string]bool{
		"a@example.com":          true,
		"user.name+tag@host.org": true,
		"":                       false,
		"plainaddress":           false,
		"A B <a@example.com>":    false,
	}
	for in, want := range cases {
		if got := IsEmail(in); got != want {
			t.Errorf("IsEmail(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestOneOf(t *testing.T) {
	v := Violations{}
	OneOf("choice", "B", []string{"A", "B"}, v)
	if !v.Empty() {
		t.Fatalf("unexpected violation: %#v", v)
	}
	OneOf("choice", "C", []string{"A", "B"}, v)
	if v["choice"] != "not_an_option" {
		t.Fatalf("expected not_an_option, got %#v", v)
	}
}
