// Package registry provides a generic thread-safe registry for values indexed by key.
//
// Registry is designed for read-heavy workloads using sync.RWMutex. It supports
// any comparable key type and any value type through Go generics.
//
// # Basic Usage
//
// Create a registry and register values:
//
//	r := registry.New[string, int]()
//	r.Register("one", 1)
//	r.Register("two", 2)
//
//	value, ok := r.Get("one")
//	if ok {
//	    fmt.Println(value) // Output: 1
//	}
//
// # Registering Compiled Graphs
//
// A common pattern is registering compiled graphs by name so callers can
// look up workflows at runtime:
//
//	graphs := registry.New[string, *stategraph.CompiledGraph[OrderState]]()
//	graphs.Register("checkout", checkoutGraph)
//	graphs.Register("refund", refundGraph)
//
//	// Later, invoke a workflow by name
//	g, ok := graphs.Get("checkout")
//	if ok {
//	    result, err := g.Invoke(ctx, initial)
//	    // use result...
//	}
//
// Compiled graphs are immutable, so sharing them through a registry across
// goroutines is safe.
//
// # Lazy Initialization
//
// Use GetOrCreate for thread-safe lazy initialization:
//
//	// Snapshot store per run namespace
//	stores := registry.New[string, snapshot.Store]()
//
//	// First call creates the store, subsequent calls return the same one
//	store := stores.GetOrCreate("orders", func() snapshot.Store {
//	    return snapshot.NewMemoryStore()
//	})
//
// GetOrCreate is atomic - the factory function is called at most once per key,
// even under concurrent access.
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. The Range method iterates
// over a snapshot of the registry, allowing mutations during iteration without
// affecting the iteration itself:
//
//	r.Range(func(key string, value int) bool {
//	    // Safe to call r.Register() or r.Delete() here
//	    if value < 0 {
//	        r.Delete(key) // Won't affect current iteration
//	    }
//	    return true // continue iteration
//	})
package registry
