package request

import "encoding/json"

// SubscriptionRequest 浏览器 PushSubscription，既可以是 JSON 字符串也可以是对象
type SubscriptionRequest struct {
	Subscription json.RawMessage `json:"subscription" binding:"required"`
}
