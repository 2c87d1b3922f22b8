package tools

import (
	"context"
	"time"
)

// DatetimeTool reports the current date and time. Models reason about
// "today" and "this week" constantly and get it wrong without an anchor.
type DatetimeTool struct {
	now func() time.Time
}

type datetimeArgs struct{}

// NewDatetimeTool returns the tool with the wall clock.
func NewDatetimeTool() *DatetimeTool {
	return &DatetimeTool{now: time.Now}
}

func (t *DatetimeTool) Name() string { return "get_datetime" }

func (t *DatetimeTool) Description() string {
	return "Get the current local date and time. Use this before reasoning about dates, deadlines or recency."
}

func (t *DatetimeTool) Schema() map[string]interface{} {
	return schemaFor(&datetimeArgs{})
}

func (t *DatetimeTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	now := t.now()
	return jsonPayload(map[string]string{
		"datetime": now.Format("2006-01-02 15:04:05 MST"),
		"weekday":  now.Weekday().String(),
	}), nil
}
