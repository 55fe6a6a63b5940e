package domain

type MachineStatus string

const (
	MachineStatusAvailable   MachineStatus = "AVAILABLE"
	MachineStatusLeased      MachineStatus = "LEASED"
	MachineStatusMaintenance MachineStatus = "MAINTENANCE"
)

type Machine struct {
	ID     int64         `json:"id"`
	Serial string        `json:"serial"`
	Tier   ResourceTier  `json:"tier"`
	Status MachineStatus `json:"status"`
	Specs  string        `json:"specs"`
}
