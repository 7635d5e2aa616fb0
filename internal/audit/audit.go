package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
)

// Recorder appends audit rows for privileged decisions. It is a write-only
// side channel: nothing in the engine reads the table back.
type Recorder interface {
	WithTx(tx *gorm.DB) Recorder
	Record(ctx context.Context, input RecordInput) error
}

// RecordInput describes a privileged action with before/after snapshots.
type RecordInput struct {
	ActorUserID  uuid.UUID
	ActorRole    enums.Role
	Action       string
	TargetUserID uuid.UUID
	Before       any
	After        any
	Reason       *string
}

type recorder struct {
	db *gorm.DB
}

// NewRecorder returns an audit recorder bound to the provided database.
func NewRecorder(db *gorm.DB) Recorder {
	return &recorder{db: db}
}

func (r *recorder) WithTx(tx *gorm.DB) Recorder {
	if tx == nil {
		return r
	}
	return &recorder{db: tx}
}

func (r *recorder) Record(ctx context.Context, input RecordInput) error {
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit actor is required")
	}
	if !input.ActorRole.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid actor role %q", input.ActorRole))
	}
	if input.Action == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit action is required")
	}
	if input.TargetUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit target user is required")
	}

	before, err := marshalSnapshot(input.Before)
	if err != nil {
		return err
	}
	after, err := marshalSnapshot(input.After)
	if err != nil {
		return err
	}

	entry := &models.AuditLogEntry{
		ActorUserID:  input.ActorUserID,
		ActorRole:    input.ActorRole,
		Action:       input.Action,
		TargetUserID: input.TargetUserID,
		Before:       before,
		After:        after,
		Reason:       input.Reason,
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append audit entry")
	}
	return nil
}

func marshalSnapshot(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal audit snapshot")
	}
	return raw, nil
}
