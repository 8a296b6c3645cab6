package respond

import "time"

type SubscriptionRespond struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Endpoint  string    `json:"endpoint"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessageRespond struct {
	Message string `json:"message"`
}

// PublicKeyRespond applicationServerKey，data 为解码后的字节
type PublicKeyRespond struct {
	PublicKey string `json:"publicKey"`
	Data      []int  `json:"data"`
}
