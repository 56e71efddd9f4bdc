package validator

import (
	"strings"
	"testing"
	"time"

	"reservations/pkg/logger"
	"reservations/pkg/model"
)

var start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func validRequest() *model.ReservationRequest {
	return &model.ReservationRequest{
		UserID:     "alice",
		Facilities: []string{"Room", "Projector"},
		Range:      model.TimeRange{Start: start, End: start.Add(time.Hour)},
	}
}

func TestValidate(t *testing.T) {
	v := NewReservationValidator(logger.Discard())

	tests := []struct {
		name      string
		mutate    func(r *model.ReservationRequest)
		wantField string
	}{
		{
			name:   "valid",
			mutate: func(r *model.ReservationRequest) {},
		},
		{
			name:      "missing user",
			mutate:    func(r *model.ReservationRequest) { r.UserID = "" },
			wantField: "user_id",
		},
		{
			name:      "user id too long",
			mutate:    func(r *model.ReservationRequest) { r.UserID = strings.Repeat("u", 129) },
			wantField: "user_id",
		},
		{
			name:      "nil facilities",
			mutate:    func(r *model.ReservationRequest) { r.Facilities = nil },
			wantField: "facilities",
		},
		{
			name:      "empty facilities",
			mutate:    func(r *model.ReservationRequest) { r.Facilities = []string{} },
			wantField: "facilities",
		},
		{
			name:      "blank facility name",
			mutate:    func(r *model.ReservationRequest) { r.Facilities = []string{"Room", ""} },
			wantField: "facilities[1]",
		},
		{
			name:      "facility name with control characters",
			mutate:    func(r *model.ReservationRequest) { r.Facilities = []string{"Ro\nom"} },
			wantField: "facilities[0]",
		},
		{
			name:      "end before start",
			mutate:    func(r *model.ReservationRequest) { r.Range.End = start.Add(-time.Hour) },
			wantField: "range.end",
		},
		{
			name:      "empty range",
			mutate:    func(r *model.ReservationRequest) { r.Range.End = start },
			wantField: "range.end",
		},
		{
			name:      "missing start",
			mutate:    func(r *model.ReservationRequest) { r.Range.Start = time.Time{} },
			wantField: "range.start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			err := v.Validate(req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error = %v", err)
				}
				return
			}

			verrs, ok := err.(ValidationErrors)
			if !ok {
				t.Fatalf("Validate() error = %T %v, want ValidationErrors", err, err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() errors = %v, want one on %s", verrs, tt.wantField)
			}
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	v := NewReservationValidator(logger.Discard())
	if err := v.Validate(nil); err == nil {
		t.Error("expected error for nil request")
	}
}

func TestValidationErrors_Details(t *testing.T) {
	errs := ValidationErrors{
		{Field: "user_id", Message: "user_id is required"},
		{Field: "range.end", Message: "range.end must be after start"},
	}

	if !strings.Contains(errs.Error(), "2 error(s)") {
		t.Errorf("unexpected message %q", errs.Error())
	}
	fields := errs.Details()["fields"].(map[string]any)
	if fields["user_id"] != "user_id is required" {
		t.Errorf("unexpected details %v", fields)
	}
}
