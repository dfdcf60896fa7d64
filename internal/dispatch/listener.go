// Package dispatch 订阅派单事件并驱动待派工单对账。
// 事件是电平触发的信号：不携带精确语义，收到任何一条都触发全量重扫，
// 因此重复投递、乱序投递都不影响正确性。
package dispatch

import (
	"context"

	"go.uber.org/zap"

	"hydrofix/backend/pkg/redis"
)

// Reconciler 对账入口，由派单服务实现
type Reconciler interface {
	ReassignPending(ctx context.Context) error
}

// Listener 派单事件监听器
type Listener struct {
	rdb    *redis.Client
	rec    Reconciler
	logger *zap.Logger
}

// NewListener 创建 Listener
func NewListener(rdb *redis.Client, rec Reconciler, logger *zap.Logger) *Listener {
	return &Listener{rdb: rdb, rec: rec, logger: logger}
}

// Run 阻塞运行直到 ctx 取消。由 main 以独立 goroutine 启动。
// 启动时先做一次对账：补上服务停机期间漏掉的事件
func (l *Listener) Run(ctx context.Context) {
	l.logger.Info("派单事件监听器启动",
		zap.Strings("channels", []string{redis.ChannelOrderArrived, redis.ChannelWorkerFreed}))

	if err := l.rec.ReassignPending(ctx); err != nil {
		l.logger.Error("启动对账失败", zap.Error(err))
	}

	if l.rdb == nil {
		// Redis 不可用时退化为仅启动对账；下单路径仍会即时派单
		l.logger.Warn("Redis 不可用，事件监听未启动")
		<-ctx.Done()
		return
	}

	pubsub := l.rdb.Subscribe(ctx, redis.ChannelOrderArrived, redis.ChannelWorkerFreed)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("派单事件监听器退出")
			return
		case msg, ok := <-ch:
			if !ok {
				l.logger.Warn("事件订阅通道已关闭")
				return
			}
			l.handleEvent(ctx, msg.Channel, msg.Payload)
		}
	}
}

// handleEvent 处理单条事件：记录来源并触发全量对账
func (l *Listener) handleEvent(ctx context.Context, channel, payload string) {
	l.logger.Info("收到派单事件",
		zap.String("channel", channel),
		zap.String("payload", payload))

	if err := l.rec.ReassignPending(ctx); err != nil {
		l.logger.Error("事件触发对账失败",
			zap.String("channel", channel),
			zap.Error(err))
	}
}
