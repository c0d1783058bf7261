package websocket

import "encoding/json"

// Frame types understood by the chat page.
const (
	FrameHTML    = "html"
	FrameData    = "data"
	FrameCommand = "command"
)

// Command names the browser reacts to.
const (
	CmdShowError   = "show_error"
	CmdClearError  = "clear_error"
	CmdClearChat   = "clear_chat"
	CmdReload      = "reload"
	CmdScrollToEnd = "scroll_to_end"
)

// Frame is one server-to-browser websocket message.
type Frame struct {
	Type    string `json:"type"`
	Target  string `json:"target,omitempty"`
	Payload any    `json:"payload"`
}

// MarshalJSON writes []byte payloads as strings so HTML fragments survive.
func (f Frame) MarshalJSON() ([]byte, error) {
	type alias Frame
	out := alias(f)
	if b, ok := f.Payload.([]byte); ok {
		out.Payload = string(b)
	}
	return json.Marshal(out)
}

// Command is the payload of a command frame.
type Command struct {
	Name    string `json:"name"`
	Payload any    `json:"payload,omitempty"`
}

// NewHTMLFrame swaps html into the element with id target.
func NewHTMLFrame(html, target string) *Frame {
	return &Frame{Type: FrameHTML, Target: target, Payload: html}
}

func NewDataFrame(target string, data any) *Frame {
	return &Frame{Type: FrameData, Target: target, Payload: data}
}

func NewCommand(name string, payload ...any) *Frame {
	var p any
	if len(payload) > 0 {
		p = payload[0]
	}
	return &Frame{Type: FrameCommand, Payload: Command{Name: name, Payload: p}}
}

// incomingFrame is what the browser sends up the socket.
type incomingFrame struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
}
