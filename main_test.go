package main

import (
	"fmt"
	"net"
	"testing"
)

func TestFindAvailablePort(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	busy := listener.Addr().(*net.TCPAddr).Port

	port, err := findAvailablePort(busy, 10)
	if err != nil {
		t.Fatalf("Expected a free port, got %v", err)
	}
	if port == busy {
		t.Errorf("Expected a port other than %d", busy)
	}
	if port <= busy || port >= busy+10 {
		t.Errorf("Expected a port in (%d, %d), got %d", busy, busy+10, port)
	}
}

func TestFindAvailablePortExhausted(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	busy := listener.Addr().(*net.TCPAddr).Port

	_, err = findAvailablePort(busy, 1)
	expected := fmt.Sprintf("no available port found after 1 attempts starting from %d", busy)
	if err == nil || err.Error() != expected {
		t.Errorf("Expected %q, got %v", expected, err)
	}
}
