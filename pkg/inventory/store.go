// Package inventory keeps SFP inventory runs in a SQLite database so a run
// can be compared with the previous one for the same organization.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/newtron-network/merakiops/pkg/sfp"
)

// Snapshot is one sfp-inventory run.
type Snapshot struct {
	ID          uint      `gorm:"primaryKey"`
	OrgID       string    `gorm:"index;not null"`
	TakenAt     time.Time `gorm:"index"`
	SwitchCount int
	ModuleCount int
	Modules     []Module `gorm:"foreignKey:SnapshotID;constraint:OnDelete:CASCADE"`
}

// Module is one populated SFP port within a snapshot.
type Module struct {
	ID               uint   `gorm:"primaryKey"`
	SnapshotID       uint   `gorm:"index"`
	SwitchSerial     string `gorm:"index"`
	SwitchName       string
	SwitchModel      string
	NetworkName      string
	NetworkID        string
	PortID           string
	Speed            string
	Status           string
	ModuleType       string
	IsUplink         bool
	TrafficTotalKbps float64
}

// Key identifies the port a module sits in across snapshots.
func (m Module) Key() string {
	return m.SwitchSerial + "/" + m.PortID
}

// Store wraps the snapshot database.
type Store struct {
	db *gorm.DB
}

// Open opens (creating and migrating if needed) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening inventory database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Snapshot{}, &Module{}); err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("migrating inventory database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save records a run and returns the stored snapshot.
func (s *Store) Save(orgID string, takenAt time.Time, switchCount int, mods []sfp.Module) (*Snapshot, error) {
	snap := &Snapshot{
		OrgID:       orgID,
		TakenAt:     takenAt,
		SwitchCount: switchCount,
		ModuleCount: len(mods),
		Modules:     make([]Module, len(mods)),
	}
	for i, m := range mods {
		snap.Modules[i] = Module{
			SwitchSerial:     m.SwitchSerial,
			SwitchName:       m.SwitchName,
			SwitchModel:      m.SwitchModel,
			NetworkName:      m.NetworkName,
			NetworkID:        m.NetworkID,
			PortID:           m.PortID,
			Speed:            m.Speed,
			Status:           m.Status,
			ModuleType:       m.ModuleType,
			IsUplink:         m.IsUplink,
			TrafficTotalKbps: m.TrafficTotalKbps,
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(snap).Error
	})
	if err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	return snap, nil
}

// Previous returns the newest snapshot for orgID older than snapshot id
// before, with its modules. It returns nil, nil when there is none.
func (s *Store) Previous(orgID string, before uint) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.Preload("Modules").
		Where("org_id = ? AND id < ?", orgID, before).
		Order("id DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading previous snapshot: %w", err)
	}
	return &snap, nil
}

// Snapshots lists the newest snapshots for orgID without their modules.
func (s *Store) Snapshots(orgID string, limit int) ([]Snapshot, error) {
	var snaps []Snapshot
	q := s.db.Where("org_id = ?", orgID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	return snaps, nil
}
