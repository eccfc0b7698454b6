package domain

import "time"

// InboundMediaStats summarizes the health of the inbound media flow for one
// real-time attempt, derived from RTP/RTCP observation.
type InboundMediaStats struct {
	Packets        uint64
	Bytes          uint64
	LastPacketAt   time.Time
	LastSenderSSRC uint32
	LastReportAt   time.Time
}
