package equipment

import (
	"math"
	"time"
)

// Status is the closed state set for a piece of equipment
type Status string

const (
	StatusActive      Status = "active"
	StatusMaintenance Status = "maintenance"
	StatusRetired     Status = "retired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusMaintenance, StatusRetired:
		return true
	}
	return false
}

// ServiceType classifies a service record
type ServiceType string

const (
	ServiceMaintenance ServiceType = "maintenance"
	ServiceCalibration ServiceType = "calibration"
	ServiceRepair      ServiceType = "repair"
	ServiceInspection  ServiceType = "inspection"
)

// RollsNextDue reports whether completing this service type moves an
// equipment due date forward
func (t ServiceType) RollsNextDue() bool {
	return t == ServiceMaintenance || t == ServiceCalibration
}

// RecordStatus is the state of one service record
type RecordStatus string

const (
	RecordScheduled RecordStatus = "scheduled"
	RecordCompleted RecordStatus = "completed"
	RecordCancelled RecordStatus = "cancelled"
)

// Equipment is a registered instrument or machine under metrological control
type Equipment struct {
	ID                  uint64          `json:"id"`
	Code                string          `json:"code" gorm:"uniqueIndex"`
	Name                string          `json:"name"`
	Type                string          `json:"type"`
	EquipmentTypeID     *uint64         `json:"equipment_type_id"`
	Manufacturer        string          `json:"manufacturer"`
	Model               string          `json:"model"`
	SerialNumber        string          `json:"serial_number"`
	Location            string          `json:"location"`
	ResponsibleID       *uint64         `json:"responsible_id"`
	Status              Status          `json:"status" gorm:"default:active"`
	AcquisitionDate     *time.Time      `json:"acquisition_date"`
	CalibrationFreqDays int             `json:"calibration_freq_days"`
	MaintenanceFreqDays int             `json:"maintenance_freq_days"`
	NextCalibration     *time.Time      `json:"next_calibration"`
	NextMaintenance     *time.Time      `json:"next_maintenance"`
	CreatedAt           time.Time       `json:"created_at"`
	Records             []ServiceRecord `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// IsCalibrationDue reports whether active equipment is at or past its
// calibration date
func (e *Equipment) IsCalibrationDue() bool {
	if e.NextCalibration == nil || e.Status == StatusRetired {
		return false
	}
	return !time.Now().UTC().Before(*e.NextCalibration)
}

// IsMaintenanceDue reports whether active equipment is at or past its
// maintenance date
func (e *Equipment) IsMaintenanceDue() bool {
	if e.NextMaintenance == nil || e.Status == StatusRetired {
		return false
	}
	return !time.Now().UTC().Before(*e.NextMaintenance)
}

// DaysToCalibration returns signed whole days until calibration is due
func (e *Equipment) DaysToCalibration() *int {
	if e.NextCalibration == nil || e.Status == StatusRetired {
		return nil
	}
	days := int(math.Floor(time.Until(*e.NextCalibration).Hours() / 24))
	return &days
}

// DaysToMaintenance returns signed whole days until maintenance is due
func (e *Equipment) DaysToMaintenance() *int {
	if e.NextMaintenance == nil || e.Status == StatusRetired {
		return nil
	}
	days := int(math.Floor(time.Until(*e.NextMaintenance).Hours() / 24))
	return &days
}

// Type is a dynamic equipment category registered by administrators
type Type struct {
	ID          uint64    `json:"id"`
	Code        string    `json:"code" gorm:"uniqueIndex"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active" gorm:"default:true"`
	CreatedBy   uint64    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Type) TableName() string { return "equipment_types" }

// ServiceRecord is one logged maintenance, calibration, repair or
// inspection event
type ServiceRecord struct {
	ID              uint64       `json:"id"`
	EquipmentID     uint64       `json:"equipment_id"`
	Type            ServiceType  `json:"type"`
	Status          RecordStatus `json:"status" gorm:"default:scheduled"`
	Description     string       `json:"description"`
	ServiceDate     time.Time    `json:"service_date"`
	Provider        string       `json:"provider"`
	Cost            float64      `json:"cost"`
	NextService     *time.Time   `json:"next_service"`
	CertificatePath string       `json:"certificate_path"`
	LoggedByID      uint64       `json:"logged_by_id"`
	CreatedAt       time.Time    `json:"created_at"`
}
