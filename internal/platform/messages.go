package platform

import (
	"github.com/nerrad567/gray-logic-simulator/internal/client"
	"github.com/nerrad567/gray-logic-simulator/internal/schema"
)

// Operations carried in requestMessage.Op besides the client methods.
const (
	opObserve       = "OBSERVE"
	opCancelObserve = "CANCEL_OBSERVE"
)

type requestMessage struct {
	ID         string                `json:"id"`
	Op         string                `json:"op"`
	URI        string                `json:"uri"`
	Query      map[string]string     `json:"query,omitempty"`
	Payload    *schema.ResourceModel `json:"payload,omitempty"`
	ReplyTo    string                `json:"reply_to"`
	ObserverID string                `json:"observer_id,omitempty"`
}

type responseMessage struct {
	ID      string                `json:"id"`
	Code    int                   `json:"code"`
	Payload *schema.ResourceModel `json:"payload,omitempty"`
	Error   string                `json:"error,omitempty"`
}

func (m responseMessage) response() client.Response {
	return client.Response{Code: m.Code, Payload: m.Payload}
}

type notifyMessage struct {
	URI        string                `json:"uri"`
	ObserverID string                `json:"observer_id"`
	Payload    *schema.ResourceModel `json:"payload"`
}

// announcement is the retained discovery document of a hosted resource.
type announcement = client.RemoteInfo
