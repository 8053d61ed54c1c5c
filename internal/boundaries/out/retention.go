package out

import "context"

// Retention prunes local archives. dir is the backup directory of the run;
// nothing outside it is ever deleted.
type Retention interface {
	// Apply keeps the keep most recently modified archives of one category
	// and deletes the rest. It returns the number of files deleted.
	Apply(ctx context.Context, dir, site, category string, keep int) (int, error)

	// RemoveFiles deletes the given archives, continuing past failures.
	RemoveFiles(ctx context.Context, dir string, paths []string) (int, error)
}
