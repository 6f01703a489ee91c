package validation

import (
	"fmt"
	"testing"
)

func TestPhone(t *testing.T) {
	testCases := []struct {
		in    string
		valid bool
	}{
		{"254712345678", true},
		{"254000000000", true},
		{"", true},
		{"0712345678", false},
		{"25471234567", false},
		{"2547123456789", false},
		{"+254712345678", false},
		{"254 12345678", false},
		{"254abcdefghi", false},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			errs := Errors{}
			errs.Phone("phone", tc.in)
			_, failed := errs["phone"]
			if failed == tc.valid {
				t.Errorf("Phone(%q) failed=%v, want valid=%v", tc.in, failed, tc.valid)
			}
			if failed && errs["phone"] != PhoneMessage {
				t.Errorf("message = %q", errs["phone"])
			}
		})
	}
}

func TestRequired_FirstMessageWins(t *testing.T) {
	errs := Errors{}
	errs.Required("phone", "  ", "Phone number is required")
	errs.Phone("phone", "abc")
	if errs["phone"] != "Phone number is required" {
		t.Errorf("phone = %q", errs["phone"])
	}
}

func TestRequiredID(t *testing.T) {
	errs := Errors{}
	errs.RequiredID("program_id", 0, "Program selection is required")
	errs.RequiredID("sublocation_id", 9, "Location selection is required")
	if len(errs) != 1 || errs["program_id"] == "" {
		t.Errorf("errs = %v", errs)
	}
}

func TestErr(t *testing.T) {
	if (Errors{}).Err() != nil {
		t.Error("empty Errors should be nil error")
	}
	errs := Errors{"b": "B", "a": "A"}
	err := errs.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "validation failed: a: A; b: B" {
		t.Errorf("Error() = %q", err.Error())
	}
	got, ok := As(fmt.Errorf("wrap: %w", err))
	if !ok || got["a"] != "A" {
		t.Errorf("As = %v, %v", got, ok)
	}
	if _, ok := As(fmt.Errorf("plain")); ok {
		t.Error("As should fail on unrelated errors")
	}
}

func TestDateAndOneOf(t *testing.T) {
	errs := Errors{}
	errs.Date("date_of_birth", "2010-02-30", "Invalid date")
	errs.Date("ok_date", "2010-02-28", "Invalid date")
	errs.OneOf("relationship", "Cousin", []string{"Son", "Other"}, "Invalid relationship")
	errs.OneOf("ok_rel", "Son", []string{"Son", "Other"}, "Invalid relationship")
	if len(errs) != 2 || errs["date_of_birth"] == "" || errs["relationship"] == "" {
		t.Errorf("errs = %v", errs)
	}
}
