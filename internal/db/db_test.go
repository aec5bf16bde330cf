package db

import "testing"

func TestDriver(t *testing.T) {
	cases := []struct {
		dsn  string
		want string
	}{
		{"file:messages.db", "sqlite"},
		{"file::memory:?cache=shared", "sqlite"},
		{":memory:", "sqlite"},
		{"/var/lib/chat/client.db", "sqlite"},
		{"state.sqlite", "sqlite"},
		{"app:apppass@tcp(127.0.0.1:3306)/messages?parseTime=true", "mysql"},
	}
	for _, tc := range cases {
		if got := Driver(tc.dsn); got != tc.want {
			t.Fatalf("Driver(%q) = %q, want %q", tc.dsn, got, tc.want)
		}
	}
}

func TestConnect_SQLite(t *testing.T) {
	gdb, err := Connect("file::memory:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := gdb.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("select: %v", err)
	}
}
