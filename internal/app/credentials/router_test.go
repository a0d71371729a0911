package credentials

import (
	"errors"
	"testing"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

var (
	primary   = core.Credentials{URL: "wss://primary", APIKey: "pk", APISecret: "ps"}
	secondary = core.Credentials{URL: "wss://secondary", APIKey: "sk", APISecret: "ss"}
)

func TestSelectRoutesOneLanguageToPrimary(t *testing.T) {
	r := NewRouter("ar", primary, secondary)
	tests := []struct {
		lang string
		want string
	}{
		{"ar", "wss://primary"},
		{"AR ", "wss://primary"},
		{"en", "wss://secondary"},
		{"", "wss://secondary"},
		{"xx-unknown", "wss://secondary"},
	}
	for _, tt := range tests {
		if got := r.Select(tt.lang).URL; got != tt.want {
			t.Errorf("Select(%q) = %s, want %s", tt.lang, got, tt.want)
		}
	}
}

func TestSelectFallsBackWithoutSecondary(t *testing.T) {
	r := NewRouter("ar", primary, core.Credentials{URL: "wss://half-configured"})
	if got := r.Select("en").Name; got != "primary" {
		t.Errorf("Select(en).Name = %s, want primary", got)
	}
	if n := len(r.All()); n != 1 {
		t.Errorf("All() returned %d backends, want 1", n)
	}
}

func TestSelectConfiguredReportsMissingBackend(t *testing.T) {
	r := NewRouter("ar", core.Credentials{}, core.Credentials{})
	if _, err := r.SelectConfigured("en"); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("SelectConfigured err = %v, want ErrNotConfigured", err)
	}
}

func TestRegionOverride(t *testing.T) {
	c := primary
	c.Regions = map[string]string{"eu": "wss://eu.primary"}
	if got := c.URLFor("eu"); got != "wss://eu.primary" {
		t.Errorf("URLFor(eu) = %s", got)
	}
	if got := c.URLFor("us"); got != "wss://primary" {
		t.Errorf("URLFor(us) = %s", got)
	}
}
