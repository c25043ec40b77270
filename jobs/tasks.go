package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity scans vouchers for entry pairs that do not balance.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskAgeingWarmup precomputes ageing reports into the report cache.
	TaskAgeingWarmup = "reports:ageing_warmup"
)

// IntegrityPayload scopes an integrity scan. Zero values mean every company or every
// fiscal year.
type IntegrityPayload struct {
	CompanyID    int64 `json:"company_id,omitempty"`
	FiscalYearID int64 `json:"fiscal_year_id,omitempty"`
}

// WarmupPayload scopes an ageing warmup. A zero company warms every company.
type WarmupPayload struct {
	CompanyID int64 `json:"company_id,omitempty"`
}

// NewIntegrityTask builds an asynq integrity task.
func NewIntegrityTask(payload IntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// NewWarmupTask builds an asynq warmup task.
func NewWarmupTask(payload WarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAgeingWarmup, data), nil
}
