package agent

import (
	"math"
	"testing"
)

func TestEvalExpression(t *testing.T) {
	t.Parallel()

	cases := []struct {
		expr string
		want float64
	}{
		{"1+2", 3},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"-5 + 3", -2},
		{"--4", 4},
		{"30 * 1500 / 100", 450},
		{"2 * (3 + (4 - 1))", 12},
		{"3.5 * 2", 7},
		{"  7  ", 7},
	}
	for _, c := range cases {
		got, err := evalExpression(c.expr)
		if err != nil {
			t.Fatalf("evalExpression(%q): %v", c.expr, err)
		}
		if math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("evalExpression(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestEvalExpression_Errors(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"1/0",
		"2 +",
		"(1 + 2",
		"1 + * 2",
		"abc",
		"1 2",
	}
	for _, expr := range cases {
		if _, err := evalExpression(expr); err == nil {
			t.Fatalf("evalExpression(%q): expected error", expr)
		}
	}
}
