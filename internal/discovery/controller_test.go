package discovery

import "testing"

func TestController_Host(t *testing.T) {
	tests := []struct {
		name       string
		controller *Controller
		expected   string
	}{
		{"default port", &Controller{IP: "192.168.1.1", Port: 80}, "192.168.1.1"},
		{"zero port", &Controller{IP: "192.168.1.1"}, "192.168.1.1"},
		{"custom port", &Controller{IP: "10.0.0.5", Port: 8080}, "10.0.0.5:8080"},
		{"IPv6 default port", &Controller{IP: "fe80::1", Port: 80}, "[fe80::1]"},
		{"IPv6 custom port", &Controller{IP: "fe80::1", Port: 8080}, "[fe80::1]:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.controller.Host(); got != tt.expected {
				t.Errorf("Host() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestController_String(t *testing.T) {
	c := &Controller{Instance: "EmpirBus MFD", Hostname: "mfd.local.", IP: "192.168.1.1", Port: 80}

	expected := "EmpirBus MFD (mfd.local.) at 192.168.1.1:80"
	if c.String() != expected {
		t.Errorf("String() = %v, want %v", c.String(), expected)
	}
}

func TestController_GetMetadataNil(t *testing.T) {
	c := &Controller{}
	if got := c.GetMetadata("path"); got != "" {
		t.Errorf("GetMetadata() = %q, want empty", got)
	}
}
