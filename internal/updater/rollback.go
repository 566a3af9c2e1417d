package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fdu/internal/portal/domain"
	"fdu/internal/snapshot"

	"github.com/sirupsen/logrus"
)

// ErrNoSnapshot is returned when a domain has no stored snapshot to restore.
var ErrNoSnapshot = errors.New("no record snapshot")

// Rollback restores a snapshot on an already logged-in session. The
// records are bound to the owned domain of the same name, and the current
// table is itself snapshotted first so the rollback can be undone.
func (r *Runner) Rollback(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap == nil {
		return ErrNoSnapshot
	}
	if len(snap.Records) == 0 {
		return fmt.Errorf("%w: snapshot %d of %s is empty", ErrNoSnapshot, snap.ID, snap.DomainName)
	}

	domains, err := r.Client.ListDomains(ctx)
	if err != nil {
		return err
	}
	owner, ok := domain.FindDomainByName(domains, snap.DomainName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDomainNotOwned, snap.DomainName)
	}

	current, err := r.Client.ListRecords(ctx, *owner)
	if err != nil {
		return err
	}
	r.snapshot(*owner, current, fmt.Sprintf("rollback to %d", snap.ID))

	records := make([]domain.Record, len(snap.Records))
	for i, rec := range snap.Records {
		records[i] = rec.WithDomain(owner)
	}

	start := time.Now()
	_, err = r.Client.RollbackUpdate(ctx, records)
	if domain.IsNoChanges(err) {
		err = nil
	}
	r.auditDomain(ctx, *owner, "rollback", start, err)
	if err != nil {
		return err
	}
	r.log().WithFields(logrus.Fields{"domain": owner.Name, "snapshot": snap.ID}).Info("records restored")
	return nil
}
