package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// SendMessageRequest is the body of POST /api/messages/send.
type SendMessageRequest struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId"`
	Message     string `json:"message"`
}

// ScheduleMessageRequest is the body of POST /api/messages/schedule.
type ScheduleMessageRequest struct {
	WorkspaceID   string    `json:"workspaceId"`
	ChannelID     string    `json:"channelId"`
	ChannelName   string    `json:"channelName"`
	Message       string    `json:"message"`
	ScheduledTime Timestamp `json:"scheduledTime"`
}

// Timestamp is unix seconds decoded from an RFC 3339 string, a numeric string or
// a JSON number. Numbers above 1e12 are taken as milliseconds.
type Timestamp int64

const millisThreshold = 1_000_000_000_000

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseTimestamp(s)
		if err != nil {
			return err
		}
		*t = v
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid timestamp: %s", data)
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("invalid timestamp: %s", data)
	}
	*t = fromNumber(f)
	return nil
}

// ParseTimestamp accepts RFC 3339 (with or without fractional seconds) or a unix number.
func ParseTimestamp(s string) (Timestamp, error) {
	if s == "" {
		return 0, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromNumber(f), nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: expected RFC 3339 or unix seconds", s)
	}
	return Timestamp(ts.Unix()), nil
}

func fromNumber(f float64) Timestamp {
	if f > millisThreshold {
		return Timestamp(int64(f) / 1000)
	}
	return Timestamp(int64(f))
}

// ScheduleMessageResponse mirrors the creation response of the scheduling endpoint.
type ScheduleMessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int64  `json:"id"`
}
