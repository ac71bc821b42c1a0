package domain

import "testing"

func TestSuppressionMatches(t *testing.T) {
	cases := []struct {
		name     string
		rule     Suppression
		sender   string
		domain   string
		category Category
		want     bool
	}{
		{"sender scope hit", Suppression{Scope: ScopeSender, RuleValue: "a@b.c"}, "a@b.c", "b.c", CategoryWork, true},
		{"sender scope miss", Suppression{Scope: ScopeSender, RuleValue: "a@b.c"}, "x@b.c", "b.c", CategoryWork, false},
		{"domain scope hit", Suppression{Scope: ScopeDomain, RuleValue: "b.c"}, "a@b.c", "b.c", CategoryWork, true},
		{"category scope hit", Suppression{Scope: ScopeCategory, RuleValue: "Work"}, "a@b.c", "b.c", CategoryWork, true},
		{"sender+category hit", Suppression{Scope: ScopeSenderCategory, RuleValue: "a@b.c", CategoryKey: "Work"}, "a@b.c", "b.c", CategoryWork, true},
		{"sender+category wrong category", Suppression{Scope: ScopeSenderCategory, RuleValue: "a@b.c", CategoryKey: "Work"}, "a@b.c", "b.c", CategoryFinance, false},
		{"sender+category empty key is wildcard", Suppression{Scope: ScopeSenderCategory, RuleValue: "a@b.c"}, "a@b.c", "b.c", CategoryFinance, true},
	}
	for _, tc := range cases {
		if got := tc.rule.Matches(tc.sender, tc.domain, tc.category); got != tc.want {
			t.Fatalf("%s: Matches = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseScope(t *testing.T) {
	if got, ok := ParseScope("sender_category"); !ok || got != ScopeSenderCategory {
		t.Fatalf("ParseScope(sender_category) = %v, %v", got, ok)
	}
	if _, ok := ParseScope("everything"); ok {
		t.Fatal("expected unknown scope to be rejected")
	}
}
