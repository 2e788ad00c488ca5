package event

import (
	"testing"
)

func TestDecodeContentFrame(t *testing.T) {
	frame := []byte(`{"type":"Content","content":"hello","sessionId":"abc"}`)
	ev, err := Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != TypeContent || ev.Content != "hello" || ev.SessionID != "abc" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if string(ev.Raw) != string(frame) {
		t.Fatalf("raw bytes must be preserved")
	}
}

func TestDecodeCopiesRawBytes(t *testing.T) {
	frame := []byte(`{"type":"ping"}`)
	ev, err := Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	frame[2] = 'X'
	if string(ev.Raw) != `{"type":"ping"}` {
		t.Fatalf("mutating the read buffer must not change the event")
	}
}

func TestDecodeToolCallFrames(t *testing.T) {
	start, err := Decode([]byte(`{"type":"ToolCallStart","tool":"search","arguments":{"q":"x"}}`))
	if err != nil {
		t.Fatalf("decode start: %v", err)
	}
	if start.Tool != "search" || string(start.Arguments) != `{"q":"x"}` {
		t.Fatalf("unexpected start event: %+v", start)
	}

	end, err := Decode([]byte(`{"type":"ToolCallEnd","tool":"search","result":{"hits":3},"success":true}`))
	if err != nil {
		t.Fatalf("decode end: %v", err)
	}
	if end.Tool != "search" || string(end.Result) != `{"hits":3}` {
		t.Fatalf("unexpected end event: %+v", end)
	}
	if end.Success == nil || !*end.Success {
		t.Fatalf("success flag must decode")
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	if _, err := Decode([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected an error for truncated JSON")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		ev     Event
		active string
		want   Class
	}{
		{"thinking delta", Event{Type: TypeThinking}, "A", ClassDelta},
		{"content delta", Event{Type: TypeContent}, "A", ClassDelta},
		{"tool start delta", Event{Type: TypeToolCallStart}, "A", ClassDelta},
		{"tool end delta", Event{Type: TypeToolCallEnd}, "A", ClassDelta},
		{"end terminal", Event{Type: TypeEnd}, "A", ClassTerminal},
		{"error terminal", Event{Type: TypeError}, "A", ClassTerminal},
		{"sync response", Event{Type: TypeResponse}, "A", ClassResponse},
		{"device update", Event{Type: TypeDeviceUpdate, DeviceID: "d1"}, "A", ClassPassthrough},

		{"matching session tag", Event{Type: TypeContent, SessionID: "A"}, "A", ClassDelta},
		{"foreign session tag", Event{Type: TypeContent, SessionID: "B"}, "A", ClassIgnore},
		{"foreign end", Event{Type: TypeEnd, SessionID: "B"}, "A", ClassIgnore},
		{"untagged with no active session", Event{Type: TypeContent}, "", ClassDelta},

		{"session created", Event{Type: TypeSessionCreated, SessionID: "B"}, "A", ClassLifecycle},
		{"session switched", Event{Type: TypeSessionSwitched, SessionID: "B"}, "A", ClassLifecycle},
		{"lifecycle without id", Event{Type: TypeSessionCreated}, "A", ClassIgnore},

		{"ping", Event{Type: TypePing}, "A", ClassIgnore},
		{"pong", Event{Type: TypePong}, "A", ClassIgnore},
		{"unknown type", Event{Type: "Telemetry"}, "A", ClassIgnore},
		{"empty type", Event{}, "A", ClassIgnore},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.ev, tc.active); got != tc.want {
				t.Fatalf("Classify(%+v, %q) = %v, want %v", tc.ev, tc.active, got, tc.want)
			}
		})
	}
}
