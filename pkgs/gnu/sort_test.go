package gnu

import (
	"os"
	"slices"
	"strings"
	"testing"
)

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "2.0", -1},
		{"2.0", "1.0", 1},
		{"1.0", "1.0", 0},
		{"5.2.2", "5.2.10", -1},
		{"1.10", "1.9", 1},
		{"10", "9", 1},
		{"1.01", "1.1", 0},
		{"01", "1", 0},
		{"", "", 0},
		{"1", "", 1},
		{"", "1", -1},
		{"1.0~rc1", "1.0", -1},
		{"1.0~alpha", "1.0~beta", -1},
		{"~", "", -1},
		{"a", "1", 1},
		{"1.0a", "1.0", 1},
		{"1.0alpha1", "1.0alpha2", -1},
		{"1.0.0-rc10", "1.0.0-rc9", 1},
		{"2.6.32", "2.6.32.1", -1},
		{"3.0", "2.6.39", 1},
		{"1-2", "1.2", -1},
		{"1_2", "1.2", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			if got := sign(Compare(tt.a, tt.b)); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := sign(Compare(tt.b, tt.a)); got != -tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestSortAndLatest(t *testing.T) {
	vs := []string{"5.2.2", "5.2.0", "5.10", "5.2.10", "4.9"}
	Sort(vs)
	want := []string{"4.9", "5.2.0", "5.2.2", "5.2.10", "5.10"}
	if !slices.Equal(vs, want) {
		t.Fatalf("Sort() = %v, want %v", vs, want)
	}
	if got := Latest([]string{"5.2.2", "5.10", "5.2.10"}); got != "5.10" {
		t.Fatalf("Latest() = %q, want %q", got, "5.10")
	}
	if got := Latest(nil); got != "" {
		t.Fatalf("Latest(nil) = %q, want empty", got)
	}
}

func TestOrder(t *testing.T) {
	tests := []struct {
		c    byte
		want int
	}{
		{'0', 0},
		{'9', 0},
		{'a', int('a')},
		{'Z', int('Z')},
		{'~', -1},
		{0, 0},
		{'.', int('.') + 256},
		{'-', int('-') + 256},
	}

	for _, tt := range tests {
		t.Run(string(tt.c), func(t *testing.T) {
			if got := order(tt.c); got != tt.want {
				t.Errorf("order(%q) = %d, want %d", tt.c, got, tt.want)
			}
		})
	}
}

func TestSourceCarriesLicenseNotice(t *testing.T) {
	data, err := os.ReadFile("sort.go")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Copyright (C) 1995 Ian Jackson",
		"Copyright (C) 2001 Anthony Towns",
		"Free Software Foundation, Inc.",
		"GNU Lesser General Public License",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("sort.go is missing %q", want)
		}
	}
}
