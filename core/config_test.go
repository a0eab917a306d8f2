package core

import "testing"

func TestDefaultConfig_Validates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestConfigValidate_RejectsRelativePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SignInPath = "sign-in"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for relative sign_in_path")
	}
}

func TestConfigValidate_RequiresStorageKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageKey = "  "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for blank storage_key")
	}
}

func TestBootstrapExcluded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BootstrapExcludedPaths = []string{"/accept-invitation", "/auth/callback"}

	cases := map[string]bool{
		"/accept-invitation":         true,
		"/accept-invitation/abc":     true,
		"/auth/callback":             true,
		"/accept-invitation-summary": false,
		"/dashboard":                 false,
	}
	for path, want := range cases {
		if got := cfg.BootstrapExcluded(path); got != want {
			t.Fatalf("BootstrapExcluded(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestGoOptionsResolver_RuntimeWins(t *testing.T) {
	defaults := DefaultConfig()
	loaded := Config{Lang: "es"}
	runtime := Config{Lang: "fr", DefaultRedirect: "/home"}

	resolved, err := GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Lang != "fr" {
		t.Fatalf("expected runtime lang to win, got %q", resolved.Lang)
	}
	if resolved.DefaultRedirect != "/home" {
		t.Fatalf("expected runtime redirect, got %q", resolved.DefaultRedirect)
	}
	if resolved.SignInPath != defaults.SignInPath {
		t.Fatalf("expected default sign_in_path to survive, got %q", resolved.SignInPath)
	}
}
