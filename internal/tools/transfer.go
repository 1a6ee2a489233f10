package tools

import (
	"context"
	"fmt"
	"time"
)

// queueWaits maps each transfer queue to its advertised wait so the agent
// can set expectations before handing off.
var queueWaits = map[string]string{
	"primary_agent": "2-3 minutes",
	"after_hours":   "5-10 minutes",
	"spanish_line":  "3-5 minutes",
}

// TransferHandler implements the transfer_to_human tool.
type TransferHandler struct{}

func NewTransferHandler() *TransferHandler { return &TransferHandler{} }

func (h *TransferHandler) Name() string { return "transfer_to_human" }

func (h *TransferHandler) Execute(ctx context.Context, args map[string]interface{}) (map[string]interface{}, *ToolError) {
	queue := stringArg(args, "queue")
	if queue == "" {
		queue = "primary_agent"
	}

	wait, ok := queueWaits[queue]
	if !ok {
		return nil, NotFoundError(fmt.Sprintf("unknown transfer queue: %s", queue))
	}

	// Urgent transfers jump the queue.
	if urgent, _ := args["urgent"].(bool); urgent {
		wait = "1 minute"
	}

	return map[string]interface{}{
		"transferId":    "XFER-" + time.Now().Format("20060102150405"),
		"queue":         queue,
		"estimatedWait": wait,
		"status":        "transferring",
	}, nil
}
