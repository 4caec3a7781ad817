package types

// Unlimited marks an unset numeric filter bound.
const Unlimited = -1

// StreamFilters are the user's constraints for deciding which of the
// available stream variants to download. EnabledBackends is a preference
// ordering, not a set.
type StreamFilters struct {
	LatestOnly      bool
	MaxHeight       int
	MaxBitrate      int
	EnabledBackends []string
	SubLang         string
	Hardsubs        bool
}

// DefaultStreamFilters accepts every flavor and tries the backends in
// their default order.
func DefaultStreamFilters() StreamFilters {
	return StreamFilters{
		MaxHeight:       Unlimited,
		MaxBitrate:      Unlimited,
		EnabledBackends: DefaultBackends(),
		SubLang:         "all",
	}
}

func (f StreamFilters) HasHeightLimit() bool  { return f.MaxHeight != Unlimited }
func (f StreamFilters) HasBitrateLimit() bool { return f.MaxBitrate != Unlimited }
