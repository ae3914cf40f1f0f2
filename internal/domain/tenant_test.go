package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

func TestTenantID_String(t *testing.T) {
	if got := domain.NoTenant.String(); got != "null" {
		t.Errorf("NoTenant.String() = %q, want %q", got, "null")
	}
	if got := domain.TenantID("tenant1").String(); got != "tenant1" {
		t.Errorf("String() = %q, want %q", got, "tenant1")
	}
}

func TestTenantID_CaseSensitive(t *testing.T) {
	if domain.TenantID("Tenant1") == domain.TenantID("tenant1") {
		t.Error("tenant ids must compare case-sensitively")
	}
}

func TestCompareTenantIDs(t *testing.T) {
	cases := []struct {
		a, b domain.TenantID
		want int
	}{
		{domain.NoTenant, domain.NoTenant, 0},
		{domain.NoTenant, "a", -1},
		{"a", domain.NoTenant, 1},
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
	}
	for _, tc := range cases {
		if got := domain.CompareTenantIDs(tc.a, tc.b); got != tc.want {
			t.Errorf("CompareTenantIDs(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestNewTenantSet_DedupAndDropsNone(t *testing.T) {
	set := domain.NewTenantSet("t2", "t1", "t2", domain.NoTenant)
	if len(set) != 2 || set[0] != "t2" || set[1] != "t1" {
		t.Errorf("NewTenantSet = %v, want [t2 t1]", set)
	}
	if set.Contains(domain.NoTenant) {
		t.Error("set must not contain NoTenant")
	}
}

func TestTenantFilter(t *testing.T) {
	var unset domain.TenantFilter
	if unset.IsSet() {
		t.Error("zero filter should be unset")
	}
	if !unset.Matches("any") || !unset.Matches(domain.NoTenant) {
		t.Error("unset filter should match everything")
	}

	without := domain.WithoutTenant()
	if !without.IsSet() || !without.TenantID().IsNone() {
		t.Errorf("WithoutTenant() = %+v, want set with NoTenant", without)
	}
	if without.Matches("t1") {
		t.Error("WithoutTenant should not match t1")
	}

	one := domain.ForTenant("t1")
	if !one.Matches("t1") || one.Matches("t2") || one.Matches(domain.NoTenant) {
		t.Error("ForTenant(t1) should match only t1")
	}
}

func TestAuthorizeTenant(t *testing.T) {
	caller := &domain.Authentication{UserID: "u", TenantIDs: domain.NewTenantSet("t1")}

	cases := []struct {
		name     string
		resource domain.TenantID
		caller   *domain.Authentication
		enabled  bool
		want     bool
	}{
		{"check disabled", "t2", caller, false, true},
		{"no tenant resource", domain.NoTenant, caller, true, true},
		{"authorized", "t1", caller, true, true},
		{"other tenant", "t2", caller, true, false},
		{"unauthenticated", "t1", nil, true, false},
		{"unauthenticated, check disabled", "t1", nil, false, true},
		{"unauthenticated, no tenant", domain.NoTenant, nil, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.AuthorizeTenant(tc.resource, tc.caller, tc.enabled)
			if got.Allowed != tc.want {
				t.Errorf("Allowed = %v, want %v (reason %q)", got.Allowed, tc.want, got.Reason)
			}
			if !got.Allowed && got.Reason == "" {
				t.Error("deny decision should carry a reason")
			}
		})
	}
}

func TestAuthenticationContext(t *testing.T) {
	ctx := context.Background()
	if domain.AuthenticationFromContext(ctx) != nil {
		t.Fatal("background context should carry no authentication")
	}

	ctx = domain.WithAuthentication(ctx, domain.Authentication{UserID: "u", TenantIDs: domain.TenantSet{"t1", "t1"}})
	auth := domain.AuthenticationFromContext(ctx)
	if auth == nil || auth.UserID != "u" || len(auth.TenantIDs) != 1 {
		t.Fatalf("AuthenticationFromContext = %+v, want user u with one tenant", auth)
	}

	cleared := domain.WithoutAuthentication(ctx)
	if domain.AuthenticationFromContext(cleared) != nil {
		t.Error("WithoutAuthentication should hide the parent authentication")
	}
	if domain.AuthenticationFromContext(ctx) == nil {
		t.Error("clearing a child context must not affect the parent")
	}
}

func TestCheckPlanTenants(t *testing.T) {
	cases := []struct {
		source, target domain.TenantID
		ok             bool
	}{
		{"t1", "t1", true},
		{domain.NoTenant, "t1", true},
		{"t1", domain.NoTenant, true},
		{domain.NoTenant, domain.NoTenant, true},
		{"t1", "t2", false},
	}
	for _, tc := range cases {
		err := domain.CheckPlanTenants(tc.source, tc.target)
		if (err == nil) != tc.ok {
			t.Errorf("CheckPlanTenants(%q, %q) = %v, want ok=%v", tc.source, tc.target, err, tc.ok)
		}
	}

	err := domain.CheckPlanTenants("A", "B")
	want := "cannot migrate process instances between processes of different tenants ('A' != 'B')"
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}
}

func TestCheckInstanceTenant(t *testing.T) {
	cases := []struct {
		instance, target domain.TenantID
		ok               bool
	}{
		{"t1", "t1", true},
		{"t1", domain.NoTenant, true},
		{domain.NoTenant, domain.NoTenant, true},
		{domain.NoTenant, "t1", false},
		{"t1", "t2", false},
	}
	for _, tc := range cases {
		err := domain.CheckInstanceTenant("pi-1", tc.instance, tc.target)
		if (err == nil) != tc.ok {
			t.Errorf("CheckInstanceTenant(%q, %q) = %v, want ok=%v", tc.instance, tc.target, err, tc.ok)
		}
	}

	var instErr *domain.InstanceTenantError
	err := domain.CheckInstanceTenant("pi-1", domain.NoTenant, "tenant1")
	if !errors.As(err, &instErr) {
		t.Fatalf("expected InstanceTenantError, got %v", err)
	}
	want := "cannot migrate process instance 'pi-1' without tenant to a process definition with a tenant ('tenant1')"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}

	err = domain.CheckInstanceTenant("pi-2", "t1", "t2")
	want = "cannot migrate process instance 'pi-2' to a process definition of a different tenant ('t1' != 't2')"
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}
}

func TestBatchTenant(t *testing.T) {
	if got := domain.BatchTenant("t1", "t1"); got != "t1" {
		t.Errorf("BatchTenant(t1, t1) = %q, want t1", got)
	}
	if got := domain.BatchTenant("t1", domain.NoTenant); !got.IsNone() {
		t.Errorf("BatchTenant(t1, none) = %q, want none", got)
	}
	if got := domain.BatchTenant(domain.NoTenant, "t1"); !got.IsNone() {
		t.Errorf("BatchTenant(none, t1) = %q, want none", got)
	}
}

func TestProviderContext_IsCopy(t *testing.T) {
	vars := map[string]any{"a": 1}
	super := &domain.Entity{ID: "ex-1", TenantID: "t1"}
	pc := domain.NewProviderContext(domain.CreateProcessInstance, domain.Definition{Key: "p"}, vars, super, nil)

	pc.Variables["a"] = 2
	pc.SuperExecution.TenantID = "t2"

	if vars["a"] != 1 {
		t.Error("provider context must copy variables")
	}
	if super.TenantID != "t1" {
		t.Error("provider context must copy the super execution")
	}
	if pc.IsRoot() {
		t.Error("context with super execution is not root")
	}
	if !domain.NewProviderContext(domain.CreateProcessInstance, domain.Definition{}, nil, nil, nil).IsRoot() {
		t.Error("context without super execution is root")
	}
}

func TestTenantIDProviderFunc(t *testing.T) {
	p := domain.TenantIDProviderFunc(func(pc domain.ProviderContext) domain.TenantID {
		return domain.TenantID("for-" + pc.Definition.Key)
	})
	if got := p.ProvideTenantID(domain.ProviderContext{Definition: domain.Definition{Key: "p"}}); got != "for-p" {
		t.Errorf("ProvideTenantID = %q, want %q", got, "for-p")
	}
}
