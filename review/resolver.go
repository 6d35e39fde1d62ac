package review

import "context"

// Dimension describes how one dimension kind is looked up and created.
//
// Resolution is check-then-insert with no lock. That is only safe under the
// single-writer assumption of a load run; an implementation that adds
// concurrency must serialize writers to the same store.
type Dimension[K comparable] struct {
	Kind   string
	Lookup func(ctx context.Context, s Store, key K) (int64, bool, error)
	Create func(ctx context.Context, s Store, key K) (int64, error)
}

// AppVersions resolves VersionKey to app_versions surrogate ids.
var AppVersions = Dimension[VersionKey]{
	Kind: "app_version",
	Lookup: func(ctx context.Context, s Store, key VersionKey) (int64, bool, error) {
		return s.FindAppVersion(ctx, key)
	},
	Create: func(ctx context.Context, s Store, key VersionKey) (int64, error) {
		return s.InsertAppVersion(ctx, key)
	},
}

// Users resolves user names to users surrogate ids.
var Users = Dimension[string]{
	Kind: "user",
	Lookup: func(ctx context.Context, s Store, name string) (int64, bool, error) {
		return s.FindUser(ctx, name)
	},
	Create: func(ctx context.Context, s Store, name string) (int64, error) {
		return s.InsertUser(ctx, name)
	},
}

// Resolve returns the surrogate id for key, creating the dimension row on
// first sight. Repeated calls with the same key return the same id, within a
// run and across runs since the store persists.
func Resolve[K comparable](ctx context.Context, s Store, d Dimension[K], key K) (int64, error) {
	id, found, err := d.Lookup(ctx, s, key)
	if err != nil {
		return 0, &StorageError{Op: "lookup " + d.Kind, Err: err}
	}
	if found {
		return id, nil
	}

	id, err = d.Create(ctx, s, key)
	if err != nil {
		return 0, &StorageError{Op: "create " + d.Kind, Err: err}
	}
	return id, nil
}
