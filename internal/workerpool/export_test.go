package workerpool

// resetShared discards the shared pool so each test starts unconfigured.
func resetShared() {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.pool != nil {
		shared.pool.Close()
		shared.pool = nil
	}
}
