// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxDecimals is the most decimal places a slot may display.
const MaxDecimals = 4

// FormatValue renders v with a fixed number of decimals.
func FormatValue(v float32, decimals uint8) string {
	if decimals > MaxDecimals {
		decimals = MaxDecimals
	}
	return strconv.FormatFloat(float64(v), 'f', int(decimals), 32)
}

// FormatFrameName returns the role of a bus id from the keypad's point of view.
func FormatFrameName(id uint32, table *Table) string {
	switch id {
	case KeypadQueryID:
		return "KEYPAD_QUERY"
	case KeypadResponseID:
		return "KEYPAD_RESPONSE"
	case KeepAliveID:
		return "KEEP_ALIVE"
	case ButtonStatusID:
		return "BUTTON_STATUS"
	}
	if table != nil && len(table.ChannelsForBusID(id)) > 0 {
		return "BROADCAST"
	}
	return "UNKNOWN"
}

// FormatFrame formats a frame and, for broadcast ids, the values its channels
// decode to.
func FormatFrame(f Frame, table *Table, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %v\n", at.Format("15:04:05.000"), FormatFrameName(f.ID, table), f)

	if table == nil {
		return b.String()
	}
	payload := f.Padded()
	for _, id := range table.ChannelsForBusID(f.ID) {
		s := table.channels[id].Signal
		v := ScaledValue(payload, s)
		fmt.Fprintf(&b, "  %-30s %12s %s\n", s.Name, FormatValue(v, 3), s.Unit)
	}
	return b.String()
}

// FormatCSVFrame renders one frame log line: micros,0xID,len,"HEX HEX".
func FormatCSVFrame(f Frame, micros uint64) string {
	return fmt.Sprintf("%d,0x%03X,%d,\"% X\"", micros, f.ID, f.Len, f.Payload())
}
