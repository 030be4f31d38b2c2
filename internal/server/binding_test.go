package server

import (
	"net/http"
	"strings"
	"testing"
)

func TestBindErrorMessages(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty", "", "request body is required"},
		{"truncated", `{"concern":`, "request body is not valid JSON"},
		{"syntax", `{"concern" "x"}`, "request body is not valid JSON"},
		{"type", `{"concern": 12}`, "concern has the wrong type"},
	}
	for _, tc := range cases {
		req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/api/public-referrals", strings.NewReader(tc.body))
		if err != nil {
			t.Fatalf("%s: build request: %v", tc.name, err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s: request: %v", tc.name, err)
		}
		expectStatus(t, resp, http.StatusBadRequest)
		if got := decodeBody(t, resp)["error"]; got != tc.want {
			t.Fatalf("%s: expected %q, got %#v", tc.name, tc.want, got)
		}
	}
}
