// Package members resolves the script-visible members of JVM classes.
//
// For a class and a visibility policy the package walks the hierarchy,
// deduplicates methods by signature, merges fields and overloaded methods
// into one entry per name and scope, and synthesizes bean properties from
// get/is/set methods. The result is an immutable ClassInfo, memoized per
// (class, visibility) in a Cache. A Table wraps a ClassInfo for one binding
// and serves the get/put protocol used by an embedding scripting engine.
//
// Tables come in two materialization strategies. Eager tables bind every
// entry when created; lazy tables bind a name the first time it is asked
// for. Both answer every query the same way. A third, legacy engine
// reflects the class in a single pass per table without going through the
// cache.
//
// The embedding engine supplies value wrapping, coercion and overload
// dispatch through the Host interface; DefaultHost implements it over a
// vm.VM for plain Go values.
package members
