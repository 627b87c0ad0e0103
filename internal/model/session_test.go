package model

import (
	"testing"
	"time"
)

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		sess Session
		want bool
	}{
		{"no expiry", Session{Authenticated: true}, false},
		{"future expiry", Session{Authenticated: true, TokenExpires: &future}, false},
		{"past expiry", Session{Authenticated: true, TokenExpires: &past}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sess.Expired(now); got != tt.want {
				t.Fatalf("Expired = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestSessionLive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)

	if (Session{Authenticated: true, TokenExpires: &past}).Live(now) {
		t.Fatal("expired session reported live")
	}
	if (Session{Authenticated: false}).Live(now) {
		t.Fatal("unauthenticated session reported live")
	}
	if !(Session{Authenticated: true}).Live(now) {
		t.Fatal("open-ended authenticated session must be live")
	}
}

func TestOrderDisplayID(t *testing.T) {
	if got := (Order{ID: "raw", OrderNumber: "ORD-1"}).DisplayID(); got != "ORD-1" {
		t.Fatalf("display id = %q", got)
	}
	if got := (Order{ID: "raw"}).DisplayID(); got != "raw" {
		t.Fatalf("display id = %q", got)
	}
}
