// Package msgs defines the telemetry payloads published by a running system.
package msgs

import (
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/robowdt/pkg/console"
	"github.com/robotalks/robowdt/pkg/tasks"
)

// LogLine mirrors a console line.
type LogLine struct {
	Owner       string `protobuf:"bytes,1,opt,name=owner,proto3" json:"owner,omitempty"`
	Module      string `protobuf:"bytes,2,opt,name=module,proto3" json:"module,omitempty"`
	Message     string `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
	TimestampNs int64  `protobuf:"varint,4,opt,name=timestamp_ns,proto3" json:"timestamp_ns,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *LogLine) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LogLine) Reset() { *m = LogLine{} }

// String implements proto.Message.
func (m *LogLine) String() string { return proto.CompactTextString(m) }

// Line converts back to a console line.
func (m *LogLine) Line() console.Line {
	return console.Line{
		Owner:   m.Owner,
		Module:  console.Module(m.Module),
		Message: m.Message,
	}
}

// StatusReport mirrors a supervisor report.
type StatusReport struct {
	Owner       string `protobuf:"bytes,1,opt,name=owner,proto3" json:"owner,omitempty"`
	Generation  bool   `protobuf:"varint,2,opt,name=generation,proto3" json:"generation,omitempty"`
	Reception   bool   `protobuf:"varint,3,opt,name=reception,proto3" json:"reception,omitempty"`
	TimestampNs int64  `protobuf:"varint,4,opt,name=timestamp_ns,proto3" json:"timestamp_ns,omitempty"`
	Boot        uint32 `protobuf:"varint,5,opt,name=boot,proto3" json:"boot,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *StatusReport) ProtoMessage() {}

// Reset implements proto.Message.
func (m *StatusReport) Reset() { *m = StatusReport{} }

// String implements proto.Message.
func (m *StatusReport) String() string { return proto.CompactTextString(m) }

// LogLineFrom creates a LogLine from a console line.
func LogLineFrom(line console.Line) *LogLine {
	msg := &LogLine{
		Owner:   line.Owner,
		Module:  string(line.Module),
		Message: line.Message,
	}
	if !line.Time.IsZero() {
		msg.TimestampNs = line.Time.UnixNano()
	}
	return msg
}

// StatusReportFrom creates a StatusReport from a supervisor report.
func StatusReportFrom(owner string, boot int, st tasks.Status) *StatusReport {
	msg := &StatusReport{
		Owner:      owner,
		Generation: st.Generation,
		Reception:  st.Reception,
		Boot:       uint32(boot),
	}
	if !st.Time.IsZero() {
		msg.TimestampNs = st.Time.UnixNano()
	}
	return msg
}

// Encode serializes a message.
func Encode(msg proto.Message) ([]byte, error) {
	return proto.Marshal(msg)
}

// DecodeLogLine decodes bytes into LogLine.
func DecodeLogLine(data []byte) (*LogLine, error) {
	var msg LogLine
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DecodeStatusReport decodes bytes into StatusReport.
func DecodeStatusReport(data []byte) (*StatusReport, error) {
	var msg StatusReport
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
