package concurrency

import "testing"

func TestPinCurrentThread(t *testing.T) {
	cpus := AllowedCPUs()
	if len(cpus) == 0 {
		t.Skip("affinity mask unavailable")
	}
	done := make(chan error, 1)
	go func() {
		unpin, err := PinCurrentThread(cpus[0])
		if err == nil {
			unpin()
		}
		done <- err
	}()
	if err := <-done; err != nil {
		t.Fatalf("pin to allowed cpu %d: %v", cpus[0], err)
	}
	if _, err := PinCurrentThread(-1); err == nil {
		t.Fatal("negative cpu accepted")
	}
}
