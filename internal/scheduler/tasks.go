package scheduler

import (
	"encoding/json"

	"pos_invoicing_backend/internal/invoicing/ports"

	"github.com/hibiken/asynq"
)

const TaskCreateVoucher = "invoicing.voucher.create"

const TaskCheckVoucher = "invoicing.voucher.check"

// CreateVoucherPayload carries the full business payload of a sale.
type CreateVoucherPayload = ports.VoucherPayload

type CheckVoucherPayload struct {
	SaleID string `json:"saleId"`
	// ScheduleID is empty for out-of-band checks.
	ScheduleID string `json:"scheduleId,omitempty"`
}

func NewCreateVoucherTask(payload CreateVoucherPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCreateVoucher, data), nil
}

func ParseCreateVoucherPayload(task *asynq.Task) (CreateVoucherPayload, error) {
	var payload CreateVoucherPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CreateVoucherPayload{}, err
	}
	return payload, nil
}

func NewCheckVoucherTask(payload CheckVoucherPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCheckVoucher, data), nil
}

func ParseCheckVoucherPayload(task *asynq.Task) (CheckVoucherPayload, error) {
	var payload CheckVoucherPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CheckVoucherPayload{}, err
	}
	return payload, nil
}
