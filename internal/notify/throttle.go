package notify

import "time"

// Throttle impone la pausa fija entre envíos consecutivos de una corrida:
// ningún delay antes del primer envío, el intervalo completo antes de cada
// uno de los siguientes. No es thread-safe: el pipeline es un único worker
// secuencial por contrato.
type Throttle struct {
	interval time.Duration
	sleep    func(time.Duration)
	started  bool
}

// NewThrottle crea un Throttle con el intervalo dado.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval, sleep: time.Sleep}
}

// Wait bloquea el intervalo configurado, salvo en la primera llamada de la
// corrida. Cuenta intentos, no éxitos: un envío fallido también espacia al
// siguiente.
func (t *Throttle) Wait() {
	if !t.started {
		t.started = true
		return
	}
	if t.interval > 0 {
		t.sleep(t.interval)
	}
}
