package entity

import "time"

// Kind 推送类型，对应流程中下一个负责角色要做的事
type Kind string

const (
	KindArrival              Kind = "arrival"
	KindPendingTest          Kind = "pending-test"
	KindPendingUnload        Kind = "pending-unload"
	KindPendingWeightCapture Kind = "pending-weight-capture"
	KindPendingRelease       Kind = "pending-release"
	KindRejected             Kind = "rejected"
	KindFinished             Kind = "finished"
)

// DeliveryStatus 单次投递结果
type DeliveryStatus int

const (
	Delivered DeliveryStatus = iota
	Gone
	Failed
)

func (s DeliveryStatus) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Gone:
		return "gone"
	}
	return "failed"
}

// ProcessRef 推送内容所需的流程信息
type ProcessRef struct {
	ID             int64
	TypeOfMaterial string
	Status         string
	ActionConfirm  string
	CreatedByName  string
	EventTime      time.Time
}

type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// PayloadData 客户端在通知动作中回调后端所需的数据
type PayloadData struct {
	ID               int64  `json:"id"`
	NotifiedUserID   int64  `json:"notifiedUserId"`
	PublicBackendURL string `json:"publicBackendUrl"`
	AppKey           string `json:"appKey"`
	EventRole        string `json:"eventRole"`
	StatusProcess    string `json:"statusProcess"`
	ActionConfirm    string `json:"actionConfirm,omitempty"`
}

// Payload Service Worker 收到的推送内容
type Payload struct {
	Title              string      `json:"title"`
	Body               string      `json:"body"`
	TypeNotification   string      `json:"typeNotification"`
	TagID              string      `json:"tagId"`
	EventTime          string      `json:"eventTime"`
	RequireInteraction bool        `json:"requireInteraction"`
	Vibrate            []int       `json:"vibrate,omitempty"`
	Actions            []Action    `json:"actions,omitempty"`
	Data               PayloadData `json:"data"`
}
