package security

import (
	"testing"
	"time"
)

func TestIssuePairRoundTrip(t *testing.T) {
	p := NewTokenProvider("test-secret", time.Minute, time.Hour)

	pair, err := p.IssuePair(42, "recruiter")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	claims, err := p.Parse(pair.Access, TokenTypeAccess)
	if err != nil {
		t.Fatalf("Parse access: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Fatalf("UserID = %d, %v; want 42", id, err)
	}
	if claims.Username != "recruiter" {
		t.Errorf("Username = %q, want recruiter", claims.Username)
	}
	if claims.ID == "" {
		t.Error("expected a jti on issued tokens")
	}

	if _, err := p.Parse(pair.Refresh, TokenTypeRefresh); err != nil {
		t.Fatalf("Parse refresh: %v", err)
	}
}

func TestParseRejectsWrongTokenType(t *testing.T) {
	p := NewTokenProvider("test-secret", time.Minute, time.Hour)
	pair, err := p.IssuePair(1, "u")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := p.Parse(pair.Refresh, TokenTypeAccess); err == nil {
		t.Error("refresh token accepted as access token")
	}
	if _, err := p.Parse(pair.Access, TokenTypeRefresh); err == nil {
		t.Error("access token accepted as refresh token")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	p := NewTokenProvider("secret-a", time.Minute, time.Hour)
	other := NewTokenProvider("secret-b", time.Minute, time.Hour)

	tok, err := p.IssueAccess(7, "u")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := other.Parse(tok, TokenTypeAccess); err == nil {
		t.Error("token verified under a different secret")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	p := NewTokenProvider("test-secret", -time.Minute, time.Hour)
	tok, err := p.IssueAccess(7, "u")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.Parse(tok, TokenTypeAccess); err == nil {
		t.Error("expired token accepted")
	}
}
