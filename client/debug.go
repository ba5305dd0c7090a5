package client

import (
	"encoding/json"
	"fmt"
)

const debugTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// GetDebugInfo returns a snapshot of client state for debugging.
func (c *Client) GetDebugInfo() map[string]interface{} {
	m := c.transport.GetMetrics()

	info := map[string]interface{}{
		"version":   Version,
		"state":     c.GetState().String(),
		"debugMode": c.IsDebugMode(),
		"hooks":     c.GetHooks(),
		"session": map[string]interface{}{
			"open":               c.transport.IsOpen(),
			"totalRequests":      m.TotalRequests,
			"totalErrors":        m.TotalErrors,
			"averageLatency":     m.AverageLatency.String(),
			"bytesSent":          m.BytesSent,
			"bytesReceived":      m.BytesReceived,
			"bytesDrained":       m.BytesDrained,
			"connectionsCreated": m.ConnectionsCreated,
		},
		"options": map[string]interface{}{
			"address":        c.opts.Address,
			"dialTimeout":    c.opts.DialTimeout.String(),
			"drainWindow":    c.opts.DrainWindow.String(),
			"bufferSize":     c.opts.BufferSize,
			"commandTimeout": c.opts.CommandTimeout.String(),
			"tlsEnabled":     c.opts.TLSEnabled,
		},
	}

	if m.LastError != nil {
		info["lastError"] = map[string]interface{}{
			"message":   m.LastError.Error(),
			"timestamp": m.LastErrorTime.Format(debugTimeFormat),
		}
	}

	last := c.GetLastTransition()
	info["lastTransition"] = map[string]interface{}{
		"from":      last.From.String(),
		"to":        last.To.String(),
		"timestamp": last.Timestamp.Format(debugTimeFormat),
		"duration":  last.Duration.String(),
	}

	return info
}

// DumpDebugInfoJSON returns debug info as formatted JSON string.
func (c *Client) DumpDebugInfoJSON() string {
	info := c.GetDebugInfo()
	bytes, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to marshal debug info: %s"}`, err.Error())
	}
	return string(bytes)
}
