package workflow

import "testing"

func TestStatusValid(t *testing.T) {
	for _, s := range All {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []Status{"", "hired", "NEW", "phone screen"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestOpenPolicyAllowsAnyPair(t *testing.T) {
	p := PolicyFromName("open")
	for _, from := range All {
		for _, to := range All {
			if !p.Allows(from, to) {
				t.Errorf("open policy rejected %s -> %s", from, to)
			}
		}
	}
	if p.Allows(StatusNew, "hired") {
		t.Error("open policy allowed transition to unknown status")
	}
	if p.Allows("hired", StatusNew) {
		t.Error("open policy allowed transition from unknown status")
	}
}

func TestStrictPolicyFreezesTerminalStages(t *testing.T) {
	p := PolicyFromName("strict")
	for _, from := range []Status{StatusOffer, StatusRejected} {
		for _, to := range All {
			if p.Allows(from, to) {
				t.Errorf("strict policy allowed %s -> %s", from, to)
			}
		}
	}
	if !p.Allows(StatusInterview, StatusScreening) {
		t.Error("strict policy should allow moving an application back a stage")
	}
	if !p.Allows(StatusNew, StatusRejected) {
		t.Error("strict policy should allow entering a terminal stage")
	}
}

func TestPolicyFromNameFallsBackToOpen(t *testing.T) {
	for _, name := range []string{"", "anything", "OPEN", " strict "} {
		p := PolicyFromName(name)
		if name == " strict " {
			if p.Name() != "strict" {
				t.Errorf("PolicyFromName(%q) = %s, want strict", name, p.Name())
			}
			continue
		}
		if p.Name() != "open" {
			t.Errorf("PolicyFromName(%q) = %s, want open", name, p.Name())
		}
	}
}
