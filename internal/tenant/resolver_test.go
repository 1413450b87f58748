package tenant

import (
	"errors"
	"testing"
)

func testMappings() []Mapping {
	return []Mapping{
		{Host: "admin.x.com", Prefixes: []string{"/admin"}, OwnerID: "t1"},
		{Host: "app.y.com", Prefixes: []string{"/"}, OwnerID: "t2"},
		{Host: "shared.z.com", Prefixes: []string{"/inbox", "/send"}},
	}
}

func TestResolveMappedHost(t *testing.T) {
	r := NewResolver(testMappings(), "", true)

	got, err := r.Resolve("admin.x.com", "/admin/dashboard", "", false)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "t1" {
		t.Errorf("Resolve = %q, want t1", got)
	}
}

func TestResolveDisallowedPath(t *testing.T) {
	r := NewResolver(testMappings(), "", true)

	_, err := r.Resolve("admin.x.com", "/other", "", false)
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("Resolve error = %v, want *ResolutionError", err)
	}
}

func TestResolvePathSegmentBoundary(t *testing.T) {
	r := NewResolver(testMappings(), "", true)

	// "/admin" must not authorize "/administrator".
	if _, err := r.Resolve("admin.x.com", "/administrator", "", false); err == nil {
		t.Error("prefix matched across a segment boundary")
	}
	// Trailing slash is normalized.
	if _, err := r.Resolve("admin.x.com", "/admin/", "", false); err != nil {
		t.Errorf("trailing slash rejected: %v", err)
	}
}

func TestResolveUnmappedHostProduction(t *testing.T) {
	r := NewResolver(testMappings(), "", true)

	_, err := r.Resolve("evil.example.com", "/admin", "", false)
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("Resolve error = %v, want *ResolutionError", err)
	}
}

func TestResolveUnmappedHostDevFallsBack(t *testing.T) {
	r := NewResolver(testMappings(), "devtenant", false)

	got, err := r.Resolve("localhost:8080", "/anything", "", false)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "devtenant" {
		t.Errorf("Resolve = %q, want devtenant", got)
	}
}

func TestResolvePrecedence(t *testing.T) {
	r := NewResolver(testMappings(), "default-t", true)

	// User claim beats host mapping.
	got, err := r.Resolve("admin.x.com", "/admin", "claimed-t", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "claimed-t" {
		t.Errorf("claim precedence: got %q, want claimed-t", got)
	}

	// Host mapping beats default.
	got, err = r.Resolve("app.y.com", "/inbox", "", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "t2" {
		t.Errorf("host precedence: got %q, want t2", got)
	}

	// Ownerless mapping falls to the default.
	got, err = r.Resolve("shared.z.com", "/inbox", "", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "default-t" {
		t.Errorf("default precedence: got %q, want default-t", got)
	}
}

func TestResolvePublicSentinel(t *testing.T) {
	r := NewResolver([]Mapping{{Host: "demo.local", Prefixes: []string{"/"}}}, "", false)

	if _, err := r.Resolve("demo.local", "/", "", false); err == nil {
		t.Error("expected failure without public fallback")
	}
	got, err := r.Resolve("demo.local", "/", "", true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != PublicTenant {
		t.Errorf("Resolve = %q, want %q", got, PublicTenant)
	}
}

func TestResolveHostCaseAndPort(t *testing.T) {
	r := NewResolver(testMappings(), "", true)

	got, err := r.Resolve("Admin.X.Com:443", "/admin", "", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "t1" {
		t.Errorf("Resolve = %q, want t1", got)
	}
}
