package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Job types carried on the stream
const (
	JobNotification = "notification"
	JobSendEmail    = "send-email"
	JobMLTrigger    = "ml-trigger"
)

// Job is one unit of background work. Only the fields relevant to Type are set.
type Job struct {
	ID   string `json:"-"` // stream entry id, set on read
	Type string `json:"type"`

	// notification
	UserID string `json:"user_id,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Title  string `json:"title,omitempty"`
	Body   string `json:"body,omitempty"`

	// send-email
	Email   string `json:"email,omitempty"`
	Subject string `json:"subject,omitempty"`

	// order context, used for export of ORDER_STATUS events
	OrderID string `json:"order_id,omitempty"`
	Status  string `json:"status,omitempty"`

	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NotificationJob(userID, kind, title, body string) Job {
	return Job{Type: JobNotification, UserID: userID, Kind: kind, Title: title, Body: body}
}

func EmailJob(to, subject, body string) Job {
	return Job{Type: JobSendEmail, Email: to, Subject: subject, Body: body}
}

func MLTriggerJob(reason string) Job {
	return Job{Type: JobMLTrigger, Reason: reason}
}

// WithOrder tags a job with the order it concerns.
func (j Job) WithOrder(orderID, status string) Job {
	j.OrderID = orderID
	j.Status = status
	return j
}

func (j Job) validate() error {
	switch j.Type {
	case JobNotification:
		if j.UserID == "" || j.Kind == "" {
			return fmt.Errorf("notification job requires user_id and kind")
		}
	case JobSendEmail:
		if j.Email == "" {
			return fmt.Errorf("send-email job requires email")
		}
	case JobMLTrigger:
	default:
		return fmt.Errorf("unknown job type %q", j.Type)
	}
	return nil
}

func encode(j Job) (map[string]interface{}, error) {
	payload, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"type":    j.Type,
		"payload": string(payload),
	}, nil
}

func decode(id string, values map[string]interface{}) (Job, error) {
	raw, ok := values["payload"]
	if !ok {
		return Job{}, fmt.Errorf("missing field payload")
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return Job{}, fmt.Errorf("unsupported payload type %T", raw)
	}

	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return Job{}, fmt.Errorf("invalid payload: %w", err)
	}
	j.ID = id
	if err := j.validate(); err != nil {
		return Job{}, err
	}
	return j, nil
}
