package adapter

import "testing"

func TestExtractRef(t *testing.T) {
	tests := []struct {
		name string
		body string
		keys []string
		want string
	}{
		{"first key wins", `{"idReserva": "R1", "id": "other"}`, []string{"idReserva", "reserva_id", "id"}, "R1"},
		{"fallback key", `{"reserva_id": "R2"}`, []string{"idReserva", "reserva_id", "id"}, "R2"},
		{"numeric id rendered verbatim", `{"id": 12345678901}`, []string{"id"}, "12345678901"},
		{"empty string skipped", `{"idReserva": "", "id": "R3"}`, []string{"idReserva", "id"}, "R3"},
		{"numeric zero skipped", `{"idReserva": 0, "id": "R4"}`, []string{"idReserva", "id"}, "R4"},
		{"numeric zero alone is unusable", `{"id": 0}`, []string{"id"}, ""},
		{"no usable key", `{"ok": true}`, []string{"id"}, ""},
		{"not json", `oops`, []string{"id"}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractRef([]byte(tc.body), tc.keys...); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
