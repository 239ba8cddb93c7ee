package ports

import "context"

// HealthChecker probes one dependency of the service: the database, Redis or
// the remote data source. GET /health reports each checker by Name and
// degrades when Check returns an error. Check must respect ctx's deadline.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
