package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records who changed what during destructive or batch mutations
// (ride deletes, post-ride processing).
type AuditLog struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	ActorUserID  uint           `json:"actorUserID" gorm:"index;not null"`
	Action       string         `json:"action" gorm:"size:64;index"`
	ResourceType string         `json:"resourceType" gorm:"size:64;index"`
	ResourceID   uint           `json:"resourceID" gorm:"index"`
	Before       datatypes.JSON `json:"before"`
	After        datatypes.JSON `json:"after"`
	IPAddress    string         `json:"ipAddress" gorm:"size:64"`
	CreatedAt    time.Time      `json:"createdAt"`
}
