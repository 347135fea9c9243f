package catalog

import (
	"context"
	"errors"
	"fmt"

	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/sentinel"
)

// Store is the persistence contract for inventory counters. The adjust
// methods must be atomic conditional updates: AdjustX with a negative delta
// fails with sentinel.ErrInsufficient when it would drive available below
// zero, and with sentinel.ErrInvalidState when a positive delta would push
// available above total. Neither failure mutates the row.
type Store interface {
	FindTitle(ctx context.Context, tenantID id.TenantID, titleID id.TitleID) (*Title, error)
	FindVolume(ctx context.Context, tenantID id.TenantID, volumeID id.VolumeID) (*Volume, error)
	AdjustTitle(ctx context.Context, tenantID id.TenantID, titleID id.TitleID, delta int) error
	AdjustVolume(ctx context.Context, tenantID id.TenantID, volumeID id.VolumeID, delta int) error
}

// Inventory is the only code path that touches inventory counters. It routes
// each ref to the volume or the title counter so callers never branch on
// HasVolumes themselves.
type Inventory struct {
	store Store
}

func NewInventory(store Store) *Inventory {
	return &Inventory{store: store}
}

// Title loads a title, translating a missing row into NotFound.
func (i *Inventory) Title(ctx context.Context, tenantID id.TenantID, titleID id.TitleID) (*Title, error) {
	t, err := i.store.FindTitle(ctx, tenantID, titleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "title not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load title")
	}
	return t, nil
}

// Volume loads a volume, translating a missing row into NotFound.
func (i *Inventory) Volume(ctx context.Context, tenantID id.TenantID, volumeID id.VolumeID) (*Volume, error) {
	v, err := i.store.FindVolume(ctx, tenantID, volumeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "volume not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load volume")
	}
	return v, nil
}

// Snapshot reads the counter the ref points at.
func (i *Inventory) Snapshot(ctx context.Context, tenantID id.TenantID, ref Ref) (Snapshot, error) {
	t, err := i.Title(ctx, tenantID, ref.TitleID)
	if err != nil {
		return Snapshot{}, err
	}
	if !ref.HasVolume() {
		return SnapshotOf(t, nil), nil
	}
	v, err := i.Volume(ctx, tenantID, *ref.VolumeID)
	if err != nil {
		return Snapshot{}, err
	}
	if v.TitleID != t.ID {
		return Snapshot{}, dErrors.New(dErrors.CodeVolumeMismatch, "volume does not belong to title")
	}
	return SnapshotOf(t, v), nil
}

// Reserve takes qty units off the counter. On failure nothing is mutated.
func (i *Inventory) Reserve(ctx context.Context, tenantID id.TenantID, ref Ref, qty int) error {
	if qty < 1 {
		return dErrors.New(dErrors.CodeBadQuantity, "quantity must be at least 1")
	}
	if err := i.adjust(ctx, tenantID, ref, -qty); err != nil {
		if errors.Is(err, sentinel.ErrInsufficient) {
			return dErrors.New(dErrors.CodeInsufficientInventory,
				fmt.Sprintf("pas assez d'exemplaires disponibles pour %d unité(s)", qty))
		}
		return err
	}
	return nil
}

// Release returns qty units to the counter. Releasing past the total is an
// integrity failure, never clamped.
func (i *Inventory) Release(ctx context.Context, tenantID id.TenantID, ref Ref, qty int) error {
	if qty < 1 {
		return dErrors.New(dErrors.CodeBadQuantity, "quantity must be at least 1")
	}
	if err := i.adjust(ctx, tenantID, ref, qty); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "release would exceed total quantity")
		}
		return err
	}
	return nil
}

func (i *Inventory) adjust(ctx context.Context, tenantID id.TenantID, ref Ref, delta int) error {
	var err error
	if ref.HasVolume() {
		err = i.store.AdjustVolume(ctx, tenantID, *ref.VolumeID, delta)
	} else {
		err = i.store.AdjustTitle(ctx, tenantID, ref.TitleID, delta)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "inventory counter not found")
	case errors.Is(err, sentinel.ErrInsufficient), errors.Is(err, sentinel.ErrInvalidState):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to adjust inventory")
	}
}
