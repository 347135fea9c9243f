package catalog

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/sentinel"
)

type counterStore struct {
	titles  map[id.TitleID]*Title
	volumes map[id.VolumeID]*Volume
}

func (s *counterStore) FindTitle(_ context.Context, _ id.TenantID, titleID id.TitleID) (*Title, error) {
	t, ok := s.titles[titleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *counterStore) FindVolume(_ context.Context, _ id.TenantID, volumeID id.VolumeID) (*Volume, error) {
	v, ok := s.volumes[volumeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *counterStore) AdjustTitle(_ context.Context, _ id.TenantID, titleID id.TitleID, delta int) error {
	t, ok := s.titles[titleID]
	if !ok {
		return sentinel.ErrNotFound
	}
	return adjustCounter(&t.AvailableQuantity, t.TotalQuantity, delta)
}

func (s *counterStore) AdjustVolume(_ context.Context, _ id.TenantID, volumeID id.VolumeID, delta int) error {
	v, ok := s.volumes[volumeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	return adjustCounter(&v.AvailableQuantity, v.TotalQuantity, delta)
}

func adjustCounter(available *int, total, delta int) error {
	next := *available + delta
	if next < 0 {
		return sentinel.ErrInsufficient
	}
	if next > total {
		return sentinel.ErrInvalidState
	}
	*available = next
	return nil
}

type InventorySuite struct {
	suite.Suite
	ctx      context.Context
	tenantID id.TenantID
	store    *counterStore
	inv      *Inventory
	flat     *Title
	series   *Title
	volume   *Volume
}

func TestInventorySuite(t *testing.T) {
	suite.Run(t, new(InventorySuite))
}

func (s *InventorySuite) SetupTest() {
	s.ctx = context.Background()
	s.tenantID = id.TenantID(uuid.New())
	s.flat = &Title{ID: id.TitleID(uuid.New()), TenantID: s.tenantID, Name: "Le Petit Prince",
		TotalQuantity: 3, AvailableQuantity: 3, Status: TitleAvailable}
	s.series = &Title{ID: id.TitleID(uuid.New()), TenantID: s.tenantID, Name: "Les Misérables",
		HasVolumes: true, TotalQuantity: 10, AvailableQuantity: 10, Status: TitleAvailable}
	s.volume = &Volume{ID: id.VolumeID(uuid.New()), TenantID: s.tenantID, TitleID: s.series.ID,
		Number: 2, TotalQuantity: 2, AvailableQuantity: 2}
	s.store = &counterStore{
		titles:  map[id.TitleID]*Title{s.flat.ID: s.flat, s.series.ID: s.series},
		volumes: map[id.VolumeID]*Volume{s.volume.ID: s.volume},
	}
	s.inv = NewInventory(s.store)
}

func (s *InventorySuite) volumeRef() Ref {
	vid := s.volume.ID
	return Ref{TitleID: s.series.ID, VolumeID: &vid}
}

func (s *InventorySuite) TestReserve() {
	s.Run("decrements title counter when no volume is given", func() {
		s.SetupTest()
		err := s.inv.Reserve(s.ctx, s.tenantID, Ref{TitleID: s.flat.ID}, 2)
		s.Require().NoError(err)
		s.Equal(1, s.flat.AvailableQuantity)
	})

	s.Run("decrements volume counter and leaves title untouched", func() {
		s.SetupTest()
		err := s.inv.Reserve(s.ctx, s.tenantID, s.volumeRef(), 1)
		s.Require().NoError(err)
		s.Equal(1, s.volume.AvailableQuantity)
		s.Equal(10, s.series.AvailableQuantity)
	})

	s.Run("insufficient stock fails without mutation", func() {
		s.SetupTest()
		err := s.inv.Reserve(s.ctx, s.tenantID, s.volumeRef(), 3)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientInventory))
		s.Equal(2, s.volume.AvailableQuantity)
	})

	s.Run("zero quantity is rejected", func() {
		s.SetupTest()
		err := s.inv.Reserve(s.ctx, s.tenantID, Ref{TitleID: s.flat.ID}, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeBadQuantity))
	})

	s.Run("unknown counter is not found", func() {
		s.SetupTest()
		err := s.inv.Reserve(s.ctx, s.tenantID, Ref{TitleID: id.TitleID(uuid.New())}, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *InventorySuite) TestRelease() {
	s.Run("restores reserved units", func() {
		s.SetupTest()
		s.Require().NoError(s.inv.Reserve(s.ctx, s.tenantID, Ref{TitleID: s.flat.ID}, 2))
		s.Require().NoError(s.inv.Release(s.ctx, s.tenantID, Ref{TitleID: s.flat.ID}, 2))
		s.Equal(3, s.flat.AvailableQuantity)
	})

	s.Run("refuses to exceed total", func() {
		s.SetupTest()
		err := s.inv.Release(s.ctx, s.tenantID, Ref{TitleID: s.flat.ID}, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		s.Equal(3, s.flat.AvailableQuantity)
	})
}

func (s *InventorySuite) TestSnapshot() {
	s.Run("title ref reports title counters", func() {
		s.SetupTest()
		snap, err := s.inv.Snapshot(s.ctx, s.tenantID, Ref{TitleID: s.flat.ID})
		s.Require().NoError(err)
		s.Equal(3, snap.Available)
		s.Equal(3, snap.Total)
		s.False(snap.HasVolumes)
	})

	s.Run("volume ref reports volume counters", func() {
		s.SetupTest()
		snap, err := s.inv.Snapshot(s.ctx, s.tenantID, s.volumeRef())
		s.Require().NoError(err)
		s.Equal(2, snap.Available)
		s.True(snap.HasVolumes)
	})

	s.Run("volume of another title is a mismatch", func() {
		s.SetupTest()
		vid := s.volume.ID
		_, err := s.inv.Snapshot(s.ctx, s.tenantID, Ref{TitleID: s.flat.ID, VolumeID: &vid})
		s.True(dErrors.HasCode(err, dErrors.CodeVolumeMismatch))
	})
}

// Any interleaving of successful reserves and releases keeps
// reserved + available equal to total.
func TestInventoryConservation(t *testing.T) {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	title := &Title{ID: id.TitleID(uuid.New()), TotalQuantity: 5, AvailableQuantity: 5, Status: TitleAvailable}
	store := &counterStore{titles: map[id.TitleID]*Title{title.ID: title}, volumes: map[id.VolumeID]*Volume{}}
	inv := NewInventory(store)
	ref := Ref{TitleID: title.ID}

	rng := rand.New(rand.NewSource(42))
	var held []int
	reserved := 0
	for range 500 {
		if len(held) > 0 && rng.Intn(2) == 0 {
			idx := rng.Intn(len(held))
			qty := held[idx]
			require.NoError(t, inv.Release(ctx, tenantID, ref, qty))
			held = append(held[:idx], held[idx+1:]...)
			reserved -= qty
		} else {
			qty := rng.Intn(3) + 1
			if err := inv.Reserve(ctx, tenantID, ref, qty); err == nil {
				held = append(held, qty)
				reserved += qty
			} else {
				require.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientInventory))
			}
		}
		assert.GreaterOrEqual(t, title.AvailableQuantity, 0)
		assert.Equal(t, title.TotalQuantity, reserved+title.AvailableQuantity)
	}
}
