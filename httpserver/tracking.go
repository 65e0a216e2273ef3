package httpserver

import (
	"context"
	"net"
	"sync"
)

// countingListener counts the connections it accepts and how many are still open,
// so a test can tell whether a stub was ever called.
type countingListener struct {
	net.Listener
	name string

	mu       sync.Mutex
	accepted int
	active   int
}

func (l *countingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.accepted++
	l.active++
	l.mu.Unlock()
	return &countedConn{Conn: conn, l: l}, nil
}

func (l *countingListener) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active--
}

func (l *countingListener) counts() (accepted, active int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accepted, l.active
}

func (l *countingListener) MetricName() string {
	return l.name + "-listener"
}

func (l *countingListener) Gauges(context.Context) map[string]float64 {
	accepted, active := l.counts()
	return map[string]float64{
		"total_connections":  float64(accepted),
		"active_connections": float64(active),
	}
}

type countedConn struct {
	net.Conn
	l    *countingListener
	once sync.Once
}

// Close releases the connection from the count once, however often it is called.
func (c *countedConn) Close() error {
	c.once.Do(c.l.release)
	return c.Conn.Close()
}
