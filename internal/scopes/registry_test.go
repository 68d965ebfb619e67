package scopes

import (
	"testing"
)

func newTestRegistry() *Registry {
	r := New()
	r.Define(
		Definition{Name: "read", Description: "Read access"},
		Definition{Name: "write", Description: "Write access"},
		Definition{Name: "admin", Description: "Administrative access"},
	)
	return r
}

func TestValidate_SubstitutesDefaultsWhenRequestedEmpty(t *testing.T) {
	r := newTestRegistry()

	got, err := r.Validate(nil, nil, []string{"read"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "read" {
		t.Errorf("Validate() = %v, want [read]", got)
	}
}

func TestValidate_UnknownScopeFails(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Validate([]string{"nonexistent"}, nil, nil)
	if err == nil {
		t.Fatal("expected error for unregistered scope")
	}
	var target *ErrInvalidScope
	if !asErrInvalidScope(err, &target) {
		t.Errorf("expected *ErrInvalidScope, got %T", err)
	}
}

func TestValidate_ClientAllowListRestricts(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Validate([]string{"admin"}, []string{"read", "write"}, nil)
	if err == nil {
		t.Fatal("expected error when requested scope outside client allow-list")
	}

	got, err := r.Validate([]string{"write"}, []string{"read", "write"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "write" {
		t.Errorf("Validate() = %v, want [write]", got)
	}
}

func TestValidate_PreservesInputOrder(t *testing.T) {
	r := newTestRegistry()

	got, err := r.Validate([]string{"write", "read"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "write" || got[1] != "read" {
		t.Errorf("Validate() = %v, want [write read]", got)
	}
}

func TestDescribe_UnknownPassesThroughAsName(t *testing.T) {
	r := newTestRegistry()

	got := r.Describe([]string{"read", "mystery"})
	if len(got) != 2 {
		t.Fatalf("Describe() returned %d entries, want 2", len(got))
	}
	if got[0].Description != "Read access" {
		t.Errorf("Describe()[0].Description = %q, want %q", got[0].Description, "Read access")
	}
	if got[1].Description != "mystery" {
		t.Errorf("Describe()[1].Description = %q, want %q", got[1].Description, "mystery")
	}
}

func TestReset_ClearsRegistrations(t *testing.T) {
	r := newTestRegistry()
	r.Reset()

	if r.IsRegistered("read") {
		t.Error("expected registry to be empty after Reset")
	}
}

func asErrInvalidScope(err error, target **ErrInvalidScope) bool {
	e, ok := err.(*ErrInvalidScope)
	if ok {
		*target = e
	}
	return ok
}
