package mq

import (
	"context"
	"strconv"
)

// Message 一条流程事件；同一 ProcessID 的消息落在同一分区
type Message struct {
	Topic     string
	ProcessID int64
	EventID   int64
	Value     []byte
	Headers   map[string]string
}

type PublishResult struct {
	Partition int32
	Offset    int64
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) (PublishResult, error)
	Close() error
}

// PartitionKey 流程 id 作为分区键
func PartitionKey(processID int64) string {
	return strconv.FormatInt(processID, 10)
}
