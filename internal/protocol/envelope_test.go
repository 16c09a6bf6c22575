package protocol

import (
	"strings"
	"testing"
)

func TestEnvelopeMarshal(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
		want string
	}{
		{
			name: "toggle command",
			env:  BuildToggleCommand(300, true),
			want: `{"messagetype":17,"messagecmd":1,"size":3,"data":[44,1,1]}`,
		},
		{
			name: "heartbeat ack",
			env:  BuildHeartbeatAck(),
			want: `{"messagetype":128,"messagecmd":0,"size":1,"data":[0]}`,
		},
		{
			name: "empty payload",
			env:  Envelope{Type: TypeSubscription},
			want: `{"messagetype":96,"messagecmd":0,"size":0,"data":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.env.Marshal()
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		verify  func(t *testing.T, e Envelope)
	}{
		{
			name:  "status toggle",
			input: `{"messagetype":16,"messagecmd":1,"size":3,"data":[44,1,1]}`,
			verify: func(t *testing.T, e Envelope) {
				if e.Type != TypeStatus || e.Command != CmdToggle {
					t.Errorf("type/cmd = %d/%d, want 16/1", e.Type, e.Command)
				}
				if string(e.Data) != string([]byte{44, 1, 1}) {
					t.Errorf("data = %v", []byte(e.Data))
				}
			},
		},
		{
			name:  "heartbeat",
			input: `{"messagetype":48,"messagecmd":5,"size":0,"data":[]}`,
			verify: func(t *testing.T, e Envelope) {
				if !e.IsHeartbeat() {
					t.Error("IsHeartbeat() = false, want true")
				}
			},
		},
		{
			name:  "size mismatch is tolerated",
			input: `{"messagetype":16,"messagecmd":1,"size":9,"data":[1,0,1]}`,
			verify: func(t *testing.T, e Envelope) {
				if !e.SizeMismatch() {
					t.Error("SizeMismatch() = false, want true")
				}
			},
		},
		{
			name:  "missing data",
			input: `{"messagetype":48,"messagecmd":5}`,
			verify: func(t *testing.T, e Envelope) {
				if len(e.Data) != 0 {
					t.Errorf("data = %v, want empty", []byte(e.Data))
				}
			},
		},
		{
			name:    "not json",
			input:   `hello`,
			wantErr: true,
		},
		{
			name:    "byte out of range",
			input:   `{"messagetype":16,"messagecmd":1,"size":1,"data":[256]}`,
			wantErr: true,
		},
		{
			name:    "negative byte",
			input:   `{"messagetype":16,"messagecmd":1,"size":1,"data":[-1]}`,
			wantErr: true,
		},
		{
			name:    "base64 data",
			input:   `{"messagetype":16,"messagecmd":1,"size":3,"data":"LAEB"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseEnvelope([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEnvelope() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.verify != nil {
				tt.verify(t, e)
			}
		})
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	in := BuildDimmerCommand(1234, 55.5, 2)
	data, err := in.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out, err := ParseEnvelope(data)
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if out.Type != in.Type || out.Command != in.Command || out.Size != in.Size {
		t.Errorf("header = %+v, want %+v", out, in)
	}
	if string(out.Data) != string(in.Data) {
		t.Errorf("data = %v, want %v", []byte(out.Data), []byte(in.Data))
	}
}

func TestMessageTypeName(t *testing.T) {
	if got := MessageTypeName(TypeStatus); got != "status" {
		t.Errorf("MessageTypeName(16) = %q", got)
	}
	if got := MessageTypeName(7); got != "unknown(7)" {
		t.Errorf("MessageTypeName(7) = %q", got)
	}
}

func TestEnvelopeString(t *testing.T) {
	s := BuildHandshake().String()
	for _, want := range []string{"type=49(system_request)", "cmd=1", "size=3"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
