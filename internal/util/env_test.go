package util

import "testing"

func TestGetEnvString(t *testing.T) {
	t.Setenv("STRATEGRAPH_TEST_STR", "value")
	if got := GetEnvString("STRATEGRAPH_TEST_STR", "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
	if got := GetEnvString("STRATEGRAPH_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("STRATEGRAPH_TEST_INT", "7")
	if got := GetEnvInt("STRATEGRAPH_TEST_INT", 1); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}

	t.Setenv("STRATEGRAPH_TEST_INT", "not a number")
	if got := GetEnvInt("STRATEGRAPH_TEST_INT", 1); got != 1 {
		t.Fatalf("expected fallback 1, got %d", got)
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("STRATEGRAPH_TEST_FLOAT", "2.5")
	if got := GetEnvFloat("STRATEGRAPH_TEST_FLOAT", 0.1); got != 2.5 {
		t.Fatalf("expected 2.5, got %v", got)
	}
	if got := GetEnvFloat("STRATEGRAPH_TEST_FLOAT_UNSET", 0.1); got != 0.1 {
		t.Fatalf("expected fallback 0.1, got %v", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("STRATEGRAPH_TEST_BOOL", "true")
	if !GetEnvBool("STRATEGRAPH_TEST_BOOL", false) {
		t.Fatal("expected true")
	}

	t.Setenv("STRATEGRAPH_TEST_BOOL", "yes")
	if GetEnvBool("STRATEGRAPH_TEST_BOOL", false) {
		t.Fatal("expected fallback false for non-boolean value")
	}
}
