package mqtt

import "testing"

func TestTopics(t *testing.T) {
	const uuid = "3f2a09c4-7d1e-4b8a-9c3f-2e5d6a7b8c9d"
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Event", topics.Event("device_expired"), "vigil/event/device_expired"},
		{"LastWill", topics.LastWill(uuid), "vigil/lastwill/" + uuid},
		{"KeepAlive", topics.KeepAlive(uuid), "vigil/keepalive/" + uuid},
		{"SystemStatus", topics.SystemStatus(), "vigil/system/status"},
		{"AllEvents", topics.AllEvents(), "vigil/event/+"},
		{"AllKeepAlives", topics.AllKeepAlives(), "vigil/keepalive/+"},
		{"AllLastWills", topics.AllLastWills(), "vigil/lastwill/+"},
		{"AllTopics", topics.AllTopics(), "vigil/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
