package gcptr

import "golang.org/x/time/rate"

// RegistryState is what a CollectPolicy sees when a Handle is released.
type RegistryState struct {
	Key      Key
	Records  int // live records in the registry
	Releases int // handle releases since the last sweep
}

// CollectPolicy decides whether a Handle release sweeps its registry.
//
// Explicit calls to Collect and the shutdown hook always sweep.
type CollectPolicy interface {
	ShouldCollect(s RegistryState) bool
}

// CollectPolicyFunc adapts a function to CollectPolicy.
type CollectPolicyFunc func(s RegistryState) bool

// ShouldCollect implements CollectPolicy.
func (f CollectPolicyFunc) ShouldCollect(s RegistryState) bool { return f(s) }

// CollectEager sweeps on every release, so memory is reclaimed as soon as the
// last owner lets go.
func CollectEager() CollectPolicy {
	return CollectPolicyFunc(func(RegistryState) bool { return true })
}

// CollectManual never sweeps on release. Memory is reclaimed by explicit
// Collect calls or at shutdown.
func CollectManual() CollectPolicy {
	return CollectPolicyFunc(func(RegistryState) bool { return false })
}

// CollectEvery sweeps a registry once n releases accumulated since its last
// sweep. n <= 1 behaves like CollectEager.
func CollectEvery(n int) CollectPolicy {
	return CollectPolicyFunc(func(s RegistryState) bool { return s.Releases >= n })
}

// CollectAtSize sweeps once a registry holds at least n records.
func CollectAtSize(n int) CollectPolicy {
	return CollectPolicyFunc(func(s RegistryState) bool { return s.Records >= n })
}

// CollectRateLimited sweeps at most perSecond times per second across all
// registries of a Table, allowing bursts of up to burst sweeps.
func CollectRateLimited(perSecond float64, burst int) CollectPolicy {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return CollectPolicyFunc(func(RegistryState) bool { return limiter.Allow() })
}
