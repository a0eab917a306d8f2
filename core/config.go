package core

import (
	"fmt"
	"strings"
)

// Config carries the redirect surface and storage settings for the callback
// subsystem. Paths are absolute (leading slash); base_url is only required
// when phase-two email-change callbacks need an absolute callback URL.
type Config struct {
	Lang                   string   `koanf:"lang" mapstructure:"lang"`
	DefaultRedirect        string   `koanf:"default_redirect" mapstructure:"default_redirect"`
	SignInPath             string   `koanf:"sign_in_path" mapstructure:"sign_in_path"`
	LinkExpiredPath        string   `koanf:"link_expired_path" mapstructure:"link_expired_path"`
	DeleteSuccessPath      string   `koanf:"delete_success_path" mapstructure:"delete_success_path"`
	ResetPasswordPath      string   `koanf:"reset_password_path" mapstructure:"reset_password_path"`
	VerifyEmailPath        string   `koanf:"verify_email_path" mapstructure:"verify_email_path"`
	CallbackPath           string   `koanf:"callback_path" mapstructure:"callback_path"`
	BaseURL                string   `koanf:"base_url" mapstructure:"base_url"`
	StorageKey             string   `koanf:"storage_key" mapstructure:"storage_key"`
	TokenParam             string   `koanf:"token_param" mapstructure:"token_param"`
	UnlinkProvider         string   `koanf:"unlink_provider" mapstructure:"unlink_provider"`
	BootstrapExcludedPaths []string `koanf:"bootstrap_excluded_paths" mapstructure:"bootstrap_excluded_paths"`
}

func DefaultConfig() Config {
	return Config{
		Lang:              "us",
		DefaultRedirect:   "/",
		SignInPath:        "/sign-in",
		LinkExpiredPath:   "/auth/link-expired",
		DeleteSuccessPath: "/auth/delete-success",
		ResetPasswordPath: "/reset-password",
		VerifyEmailPath:   "/auth/verify-email",
		CallbackPath:      "/auth/callback",
		StorageKey:        "authflow::credential",
		TokenParam:        "token",
		UnlinkProvider:    "google",
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Lang) == "" {
		return fmt.Errorf("core: lang is required")
	}
	if strings.TrimSpace(c.StorageKey) == "" {
		return fmt.Errorf("core: storage_key is required")
	}
	if strings.TrimSpace(c.TokenParam) == "" {
		return fmt.Errorf("core: token_param is required")
	}
	for name, path := range map[string]string{
		"default_redirect":    c.DefaultRedirect,
		"sign_in_path":        c.SignInPath,
		"link_expired_path":   c.LinkExpiredPath,
		"delete_success_path": c.DeleteSuccessPath,
		"reset_password_path": c.ResetPasswordPath,
		"verify_email_path":   c.VerifyEmailPath,
		"callback_path":       c.CallbackPath,
	} {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			return fmt.Errorf("core: %s is required", name)
		}
		if !strings.HasPrefix(trimmed, "/") {
			return fmt.Errorf("core: %s must be an absolute path", name)
		}
	}
	return nil
}

// BootstrapExcluded reports whether bootstrap must not fire for the given
// navigation path.
func (c Config) BootstrapExcluded(path string) bool {
	path = strings.TrimSpace(path)
	for _, excluded := range c.BootstrapExcludedPaths {
		excluded = strings.TrimSpace(excluded)
		if excluded == "" {
			continue
		}
		if path == excluded || strings.HasPrefix(path, excluded+"/") {
			return true
		}
	}
	return false
}
