// Per-request user-data bag. Middleware use this to publish artifacts
// (a parsed JSON body, decoded cookies, an authenticated principal) for
// downstream handlers to consume without a shared global.

package hannahttp

// RemoteAddrBagKey is where the connection handler publishes the peer's
// "network://host:port" label for middleware such as contrib/accesslog
// that want it without reaching into transport details.
const RemoteAddrBagKey = "remoteAddr"

// Bag is a string-keyed store of arbitrary values, scoped to one request.
type Bag struct {
	values map[string]any
	typed  *typedBagValues
}

// Get returns the value stored under key, if any.
func (b *Bag) Get(key string) (any, bool) {
	if b.values == nil {
		return nil, false
	}
	v, ok := b.values[key]
	return v, ok
}

// Set stores value under key, overwriting any prior value.
func (b *Bag) Set(key string, value any) {
	if b.values == nil {
		b.values = make(map[string]any)
	}
	b.values[key] = value
}

// Reset empties the bag for reuse across pipelined requests.
func (b *Bag) Reset() {
	for k := range b.values {
		delete(b.values, k)
	}
	if b.typed != nil {
		for k := range b.typed.values {
			delete(b.typed.values, k)
		}
	}
}

// Key is a typed, collision-proof alternative to string keys: two Keys are
// distinct even if constructed with the same label, because identity comes
// from the pointer, not the label. Prefer this over a raw string key when
// the value type matters to the compiler.
type Key[T any] struct {
	label string
}

// NewKey creates a fresh typed bag key. label is used only for diagnostics.
func NewKey[T any](label string) *Key[T] {
	return &Key[T]{label: label}
}

func (k *Key[T]) String() string { return k.label }

// typedBagValues holds what Key.Get/Set store in the Bag. It is a map of
// its own, separate from the string-keyed one, and its map key is the
// *Key[T] pointer itself, so a Key[T] never collides with a string key or
// with another Key.
type typedBagValues struct {
	values map[any]any
}

// Get looks up the value stored under k in bag. ok is false if nothing
// has been stored yet.
func (k *Key[T]) Get(b *Bag) (T, bool) {
	var zero T
	if b.typed == nil {
		return zero, false
	}
	v, ok := b.typed.values[k]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Set stores value under k in bag.
func (k *Key[T]) Set(b *Bag, value T) {
	if b.typed == nil {
		b.typed = &typedBagValues{values: make(map[any]any)}
	}
	b.typed.values[k] = value
}
