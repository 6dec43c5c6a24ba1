package models

import "testing"

func TestEnvelopeStatusPredicates(t *testing.T) {
	e := Envelope{Status: EnvelopeStatusDraft}
	if !e.IsDraft() || e.IsPending() || e.IsTerminal() {
		t.Fatalf("draft predicates wrong: %+v", e)
	}
	e.Status = EnvelopeStatusPending
	if !e.IsPending() || e.IsTerminal() {
		t.Fatalf("pending predicates wrong: %+v", e)
	}
	for _, s := range []EnvelopeStatus{EnvelopeStatusCompleted, EnvelopeStatusRejected} {
		e.Status = s
		if !e.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
}

func TestRecipientTerminal(t *testing.T) {
	r := Recipient{SigningStatus: SigningStatusNotSigned}
	if r.IsTerminal() {
		t.Fatal("not_signed should not be terminal")
	}
	r.SigningStatus = SigningStatusSigned
	if !r.IsSigned() || !r.IsTerminal() {
		t.Fatal("signed should be terminal")
	}
	r.SigningStatus = SigningStatusRejected
	if !r.IsTerminal() {
		t.Fatal("rejected should be terminal")
	}
}

func TestFieldMetaOptions(t *testing.T) {
	m := FieldMeta{Options: []FieldOption{{Value: "A"}, {Value: "B"}}}
	if !m.HasOption("A") || m.HasOption("C") {
		t.Fatalf("HasOption wrong: %#v", m)
	}
	if got := m.OptionValues(); len(got) != 2 || got[0] != "A" {
		t.Fatalf("OptionValues wrong: %#v", got)
	}
}
