package noteid

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/starford/lumen/internal/apperr"
)

func TestIsValid(t *testing.T) {
	cases := map[string]bool{
		"project-alpha":        true,
		"1700000000000":        true,
		"2024-01-05":           true,
		"2024-W01":             true,
		"folder/sub note":      true,
		"a_b.c~d!e$f&g'h(i)j*": true,
		"k+l,m;n@o{p}":         true,
		"note|alias":           false,
		"note[1]":              false,
		"":                     false,
		"tab\there":            false,
		"emoji🙂":               false,
		"equals=sign":          false,
	}
	for id, want := range cases {
		if got := IsValid(id); got != want {
			t.Errorf("IsValid(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestInvalidCharacters(t *testing.T) {
	got := InvalidCharacters("note/with|bad[chars]")
	want := []string{"|", "[", "]"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InvalidCharacters = %v, want %v", got, want)
	}
	if got := InvalidCharacters("a||b"); !reflect.DeepEqual(got, []string{"|"}) {
		t.Errorf("duplicates should be collapsed, got %v", got)
	}
	if got := InvalidCharacters("fine"); got != nil {
		t.Errorf("valid id should report nothing, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("ok-id"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range []string{"", "a|b"} {
		err := Validate(id)
		if !errors.Is(err, apperr.ErrInvalidID) {
			t.Errorf("Validate(%q) = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestGenerate(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	if got := Generate(now); got != "1700000000123" {
		t.Errorf("Generate = %q", got)
	}
	if !IsNumeric(Generate(time.Now())) {
		t.Error("generated id should be numeric")
	}
}

func TestIsDate(t *testing.T) {
	for s, want := range map[string]bool{
		"2024-01-05": true,
		"2024-02-29": true,
		"2023-02-29": false,
		"2024-13-01": false,
		"2024-00-10": false,
		"2024-1-05":  false,
		"24-01-05":   false,
		"2024-01-5x": false,
	} {
		if got := IsDate(s); got != want {
			t.Errorf("IsDate(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestIsWeek(t *testing.T) {
	for s, want := range map[string]bool{
		"2024-W01": true,
		"2024-W52": true,
		"2020-W53": true,
		"2021-W53": false,
		"2024-W00": false,
		"2024-W1":  false,
		"2024-w01": false,
	} {
		if got := IsWeek(s); got != want {
			t.Errorf("IsWeek(%q) = %v, want %v", s, got, want)
		}
	}
}
