package tools

import "testing"

func TestPayloadValue(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    float64
		ok      bool
	}{
		{"measurement", `{"value":118,"unit":"mmHg"}`, 118, true},
		{"no value field", `{"note":"慢跑 30 分钟"}`, 0, false},
		{"non-numeric value", `{"value":"high"}`, 0, false},
		{"invalid json", `not json`, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := payloadValue([]byte(tc.payload))
			if ok != tc.ok || got != tc.want {
				t.Errorf("payloadValue(%s) = (%v, %v), want (%v, %v)", tc.payload, got, ok, tc.want, tc.ok)
			}
		})
	}
}
