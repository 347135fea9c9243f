// Package catalog exposes the inventory side of the catalog: titles, their
// optional volumes and the counters loans reserve against.
package catalog

import (
	id "doccenter/pkg/domain"
)

// TitleStatus is the physical condition of a title. Only available titles
// are lendable.
type TitleStatus string

const (
	TitleAvailable TitleStatus = "available"
	TitleOnLoan    TitleStatus = "on_loan"
	TitleDamaged   TitleStatus = "damaged"
	TitleLost      TitleStatus = "lost"
)

// Title is a catalog entry. When HasVolumes is set the per-volume counters
// are authoritative and the title counters are informational.
type Title struct {
	ID                 id.TitleID  `json:"id"`
	TenantID           id.TenantID `json:"tenant_id"`
	Name               string      `json:"title"`
	MinimumAgeRequired int         `json:"minimum_age_required"`
	HasVolumes         bool        `json:"has_volumes"`
	TotalQuantity      int         `json:"total_quantity"`
	AvailableQuantity  int         `json:"available_quantity"`
	IsDigital          bool        `json:"is_digital"`
	Status             TitleStatus `json:"status"`
}

// IsLendable reports whether the title can leave the shelf at all.
func (t *Title) IsLendable() bool {
	return !t.IsDigital && t.Status == TitleAvailable
}

// IsAgeRestricted reports whether lending requires an age check.
func (t *Title) IsAgeRestricted() bool {
	return t.MinimumAgeRequired > 0
}

// Volume is one physical volume of a multi-volume title.
type Volume struct {
	ID                id.VolumeID `json:"id"`
	TenantID          id.TenantID `json:"tenant_id"`
	TitleID           id.TitleID  `json:"title_id"`
	Number            int         `json:"volume_number"`
	TotalQuantity     int         `json:"total_quantity"`
	AvailableQuantity int         `json:"available_quantity"`
}

// Ref addresses the counter a loan reserves against: the volume when one is
// given, otherwise the title.
type Ref struct {
	TitleID  id.TitleID
	VolumeID *id.VolumeID
}

// HasVolume reports whether the ref targets a volume counter.
func (r Ref) HasVolume() bool {
	return r.VolumeID != nil && !r.VolumeID.IsNil()
}

// Snapshot is a read-only view of the counter a ref points at together with
// the title-level lending attributes.
type Snapshot struct {
	Available          int
	Total              int
	MinimumAgeRequired int
	HasVolumes         bool
	IsDigital          bool
	Status             TitleStatus
}

// SnapshotOf builds the snapshot for a title and, when given, one of its
// volumes.
func SnapshotOf(t *Title, v *Volume) Snapshot {
	s := Snapshot{
		Available:          t.AvailableQuantity,
		Total:              t.TotalQuantity,
		MinimumAgeRequired: t.MinimumAgeRequired,
		HasVolumes:         t.HasVolumes,
		IsDigital:          t.IsDigital,
		Status:             t.Status,
	}
	if v != nil {
		s.Available = v.AvailableQuantity
		s.Total = v.TotalQuantity
	}
	return s
}
