package eventlog

// AppendSignal returns a channel closed by the next successful append. Use it
// to wait for appends alongside other channels such as ctx.Done().
func (l *Log) AppendSignal() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.notifyCh
}
