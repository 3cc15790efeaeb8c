package model

import "time"

type Protocol string

const (
	ProtocolOCPP  Protocol = "OCPP"
	ProtocolHTTP  Protocol = "HTTP"
	ProtocolHTTPS Protocol = "HTTPS"
	ProtocolWS    Protocol = "WS"
	ProtocolWSS   Protocol = "WSS"
	ProtocolOther Protocol = "OTHER"
)

type TrafficStatus string

const (
	TrafficSuccess    TrafficStatus = "success"
	TrafficError      TrafficStatus = "error"
	TrafficWarning    TrafficStatus = "warning"
	TrafficSuspicious TrafficStatus = "suspicious"
)

// TrafficLog is one row of the raw network log view
type TrafficLog struct {
	ID            string        `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	SourceIP      string        `json:"sourceIP"`
	DestinationIP string        `json:"destinationIP"`
	Port          int           `json:"port"`
	Protocol      Protocol      `json:"protocol"`
	Method        string        `json:"method,omitempty"`
	Action        string        `json:"action,omitempty"`
	Status        TrafficStatus `json:"status"`
	Size          int64         `json:"size"`
	Duration      *int64        `json:"duration,omitempty"`
	Message       string        `json:"message,omitempty"`
}
