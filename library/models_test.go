package library

import (
	"encoding/json"
	"testing"
)

func TestStatusValid(t *testing.T) {
	for _, s := range Statuses() {
		if !s.Valid() {
			t.Fatalf("status %q should be valid", s)
		}
	}
	for _, s := range []Status{"", "read", "Done", "Abandoned"} {
		if s.Valid() {
			t.Fatalf("status %q should be invalid", s)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := DateOf(2024, 3, 17)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2024-03-17"` {
		t.Fatalf("want plain date string, got %s", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip changed date: %s != %s", back, d)
	}
}

func TestDateUnmarshalAcceptsTimestamps(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-03-17T10:30:00Z"`), &d); err != nil {
		t.Fatalf("unmarshal RFC 3339: %v", err)
	}
	if d.YearMonth() != "2024-03" {
		t.Fatalf("wrong month: %s", d.YearMonth())
	}

	if err := json.Unmarshal([]byte(`"March 17"`), &d); err == nil {
		t.Fatalf("expected error for unparseable date")
	}
}

func TestBookValidate(t *testing.T) {
	valid := Book{Title: "T", Author: "A", Status: StatusReading, Rating: intPtr(3)}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	unrated := Book{Title: "T", Author: "A", Status: StatusUnread}
	if err := unrated.Validate(); err != nil {
		t.Fatalf("unrated record rejected: %v", err)
	}
}
