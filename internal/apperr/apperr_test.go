package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "direct kinded error",
			err:  New(KindBadRequest, "nope"),
			want: KindBadRequest,
		},
		{
			name: "wrapped kinded error",
			err:  fmt.Errorf("outer: %w", New(KindSMSCooldown, "Too many SMS")),
			want: KindSMSCooldown,
		},
		{
			name: "plain error defaults to internal",
			err:  errors.New("boom"),
			want: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindBadRequest, http.StatusBadRequest},
		{KindUserExists, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindSMSCooldown, http.StatusServiceUnavailable},
		{KindInternal, http.StatusInternalServerError},
		{Kind("unheard-of"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.kind); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestMessageOf(t *testing.T) {
	if got := MessageOf(New(KindNotFound, "Business does not exist.")); got != "Business does not exist." {
		t.Errorf("MessageOf kinded = %q", got)
	}
	if got := MessageOf(errors.New("sql: connection reset")); got != "Internal server error." {
		t.Errorf("MessageOf plain = %q, want generic message", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("pq: duplicate key")
	err := Wrap(KindUserExists, "User already exists.", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
}
