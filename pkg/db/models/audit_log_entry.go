package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vantagefund/wallet-engine/pkg/enums"
)

// AuditLogEntry captures a privileged decision for compliance. The table is a
// write-only side channel: the engine appends rows and never reads them back.
type AuditLogEntry struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ActorUserID  uuid.UUID       `gorm:"column:actor_user_id;type:uuid;not null" json:"actor_user_id"`
	ActorRole    enums.Role      `gorm:"column:actor_role;not null" json:"actor_role"`
	Action       string          `gorm:"column:action;not null" json:"action"`
	TargetUserID uuid.UUID       `gorm:"column:target_user_id;type:uuid;not null" json:"target_user_id"`
	Before       json.RawMessage `gorm:"column:before;type:jsonb" json:"before,omitempty"`
	After        json.RawMessage `gorm:"column:after;type:jsonb" json:"after,omitempty"`
	Reason       *string         `gorm:"column:reason" json:"reason,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName pins the table name for GORM.
func (AuditLogEntry) TableName() string { return "audit_log" }
