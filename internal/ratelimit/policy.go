package ratelimit

import (
	"time"

	"github.com/BradenHooton/nexus/internal/config"
)

// Policy is one fixed-window limit applied per client IP.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration

	// SkipSuccessful refunds requests whose response status is below 400.
	SkipSuccessful bool
}

// Preset policy names, also used as the key prefix of every counter.
const (
	PolicyAPI    = "api"
	PolicyAuth   = "auth"
	PolicyPublic = "public"
)

var (
	DefaultAPI    = Policy{Name: PolicyAPI, Limit: 50, Window: time.Minute}
	DefaultAuth   = Policy{Name: PolicyAuth, Limit: 10, Window: 15 * time.Minute}
	DefaultPublic = Policy{Name: PolicyPublic, Limit: 200, Window: time.Minute}
)

// Policies groups the three endpoint classes.
type Policies struct {
	API    Policy
	Auth   Policy
	Public Policy
}

func DefaultPolicies() Policies {
	return Policies{API: DefaultAPI, Auth: DefaultAuth, Public: DefaultPublic}
}

// PoliciesFromConfig applies environment overrides to the presets.
func PoliciesFromConfig(cfg config.RateLimitConfig) Policies {
	p := DefaultPolicies()
	p.API = override(p.API, cfg.API)
	p.Auth = override(p.Auth, cfg.Auth)
	p.Auth.SkipSuccessful = cfg.AuthSkipSuccessful
	p.Public = override(p.Public, cfg.Public)
	return p
}

func override(p Policy, c config.PolicyConfig) Policy {
	if c.Limit > 0 {
		p.Limit = c.Limit
	}
	if c.Window > 0 {
		p.Window = c.Window
	}
	return p
}

// Key is the counter key for a policy and client IP.
func Key(policy, clientIP string) string {
	return policy + ":" + clientIP
}
