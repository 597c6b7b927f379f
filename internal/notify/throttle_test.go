package notify

import (
	"testing"
	"time"
)

func TestThrottle_NoDelayBeforeFirst(t *testing.T) {
	var slept []time.Duration
	th := NewThrottle(time.Second)
	th.sleep = func(d time.Duration) { slept = append(slept, d) }

	th.Wait()
	if len(slept) != 0 {
		t.Fatalf("primer Wait no debe dormir, durmió %v", slept)
	}
}

func TestThrottle_FixedDelayBetweenCalls(t *testing.T) {
	var slept []time.Duration
	th := NewThrottle(750 * time.Millisecond)
	th.sleep = func(d time.Duration) { slept = append(slept, d) }

	for i := 0; i < 4; i++ {
		th.Wait()
	}
	if len(slept) != 3 {
		t.Fatalf("esperaba 3 pausas para 4 intentos, hubo %d", len(slept))
	}
	for _, d := range slept {
		if d != 750*time.Millisecond {
			t.Fatalf("pausa inesperada: %v", d)
		}
	}
}

func TestThrottle_ZeroIntervalNeverSleeps(t *testing.T) {
	th := NewThrottle(0)
	th.sleep = func(time.Duration) { t.Fatal("no debería dormir con intervalo cero") }

	th.Wait()
	th.Wait()
	th.Wait()
}
