package plan

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "2024-02-01", want: "2024-02-01"},
		{input: "2024-12-31", want: "2024-12-31"},
		{input: "2024-2-1", wantErr: true},
		{input: "2024-02-01T00:00:00Z", wantErr: true},
		{input: "not-a-date", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		d, err := ParseDate(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDate(%q): expected error, got %v", tt.input, d)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if d.String() != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.input, d, tt.want)
		}
	}
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, time.February, 1)

	if got := d.AddDays(5).String(); got != "2024-02-06" {
		t.Errorf("AddDays(5) = %s, want 2024-02-06", got)
	}
	if got := d.AddDays(-1).String(); got != "2024-01-31" {
		t.Errorf("AddDays(-1) = %s, want 2024-01-31", got)
	}
	// Month and year boundaries
	if got := NewDate(2024, time.December, 30).AddDays(3).String(); got != "2025-01-02" {
		t.Errorf("year boundary AddDays = %s, want 2025-01-02", got)
	}

	other := NewDate(2024, time.February, 10)
	if got := d.DaysUntil(other); got != 9 {
		t.Errorf("DaysUntil = %d, want 9", got)
	}
	if got := other.DaysUntil(d); got != -9 {
		t.Errorf("reverse DaysUntil = %d, want -9", got)
	}
	if got := d.DaysUntil(d); got != 0 {
		t.Errorf("DaysUntil self = %d, want 0", got)
	}
}

func TestDateComparisons(t *testing.T) {
	a := NewDate(2024, time.January, 10)
	b := NewDate(2024, time.January, 20)

	if !a.Before(b) || b.Before(a) {
		t.Error("Before is wrong")
	}
	if !b.After(a) || a.After(b) {
		t.Error("After is wrong")
	}
	if !a.Equal(a) || a.Equal(b) {
		t.Error("Equal is wrong")
	}
	if !MaxDate(a, b).Equal(b) || !MinDate(a, b).Equal(a) {
		t.Error("MaxDate/MinDate are wrong")
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, time.March, 15)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"2024-03-15"` {
		t.Errorf("Marshal = %s, want %q", data, "2024-03-15")
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !back.Equal(d) {
		t.Errorf("round trip = %s, want %s", back, d)
	}

	if err := json.Unmarshal([]byte(`42`), &back); err == nil {
		t.Error("expected error unmarshaling a number")
	}
}
