package errors

import "errors"

var (
	// ErrSlotExhausted 条件扣减未命中：该档期剩余名额已被并发预约抢光
	ErrSlotExhausted = errors.New("该档期名额已被抢占，请重新选择")

	// ErrOrderStateChanged 条件更新未命中：工单状态已被并发操作改变
	ErrOrderStateChanged = errors.New("工单状态已变化，请刷新后重试")
)
