package mq

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"LiveDock/internal/modules/reception/domain/entity"
	"LiveDock/internal/modules/reception/domain/repository"
)

// ProcessEventMessage 发布到事件流的消息体
type ProcessEventMessage struct {
	EventID            int64           `json:"eventId"`
	ReceptionProcessID int64           `json:"receptionProcessId"`
	TypeOfMaterial     string          `json:"typeOfMaterial"`
	ProcessStatus      string          `json:"processStatus"`
	Event              string          `json:"event"`
	Status             string          `json:"status"`
	Role               string          `json:"role"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
	CreatedByID        int64           `json:"createdById"`
	CreatedAt          time.Time       `json:"createdAt"`
}

type processEventStream struct {
	pub   Publisher
	topic string
}

// NewProcessEventStream pub 为空时返回空实现
func NewProcessEventStream(pub Publisher, topic string) repository.ProcessEventStream {
	if pub == nil || strings.TrimSpace(topic) == "" {
		return NopProcessEventStream{}
	}
	return &processEventStream{pub: pub, topic: strings.TrimSpace(topic)}
}

func (s *processEventStream) Publish(ctx context.Context, process *entity.ReceptionProcess, ev *entity.ProcessEvent) error {
	msg := ProcessEventMessage{
		EventID:            ev.ID,
		ReceptionProcessID: ev.ReceptionProcessID,
		Event:              ev.Event,
		Status:             ev.Status,
		Role:               ev.Role,
		CreatedByID:        ev.CreatedByID,
		CreatedAt:          ev.CreatedAt,
	}
	if len(ev.Metadata) > 0 {
		msg.Metadata = json.RawMessage(ev.Metadata)
	}
	if process != nil {
		msg.TypeOfMaterial = process.TypeOfMaterial
		msg.ProcessStatus = process.Status
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = s.pub.Publish(ctx, Message{
		Topic:     s.topic,
		ProcessID: ev.ReceptionProcessID,
		EventID:   ev.ID,
		Value:     value,
		Headers: map[string]string{
			"event": ev.Event,
			"role":  ev.Role,
		},
	})
	return err
}

type NopProcessEventStream struct{}

func (NopProcessEventStream) Publish(context.Context, *entity.ReceptionProcess, *entity.ProcessEvent) error {
	return nil
}
