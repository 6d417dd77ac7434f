package kvcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A call was rejected before reaching the provider (nil key, empty batch, negative ttl).
	IllegalArgument(op string)

	// A key or value codec failed or panicked.
	CodecFailure(op CodecOp, err error)

	// The provider returned an error for a call covering keys entries.
	ProviderFailure(op string, keys int, err error)

	// The provider refused a write under pressure.
	ProviderRejected(op string, keys int)

	// Distinct typed keys in one bulk call collapsed onto fewer binary keys.
	KeyCollision(op string, typed, binary int)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) IllegalArgument(string)             {}
func (NopHooks) CodecFailure(CodecOp, error)        {}
func (NopHooks) ProviderFailure(string, int, error) {}
func (NopHooks) ProviderRejected(string, int)       {}
func (NopHooks) KeyCollision(string, int, int)      {}
