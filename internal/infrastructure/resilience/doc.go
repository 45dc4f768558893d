/*
Package resilience provides a circuit breaker for calls into local services.

The daemon routes window-change handling through a breaker so a Terminal
Service that keeps failing is not hit by every resize event a client sends.

# Usage

	breaker := resilience.New("terminal-resize", resilience.Settings{
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("breaker state changed", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	err := breaker.Do(ctx, func(ctx context.Context) error {
		return terminals.SetTerminalSize(ctx, id, cols, rows)
	})

# States

	Closed --[ReadyToTrip]--> Open --[Timeout]--> Half-Open --[MaxRequests successes]--> Closed
	                                                  |
	                                               failure
	                                                  v
	                                                 Open

Counts belong to a generation; a call that completes after a state change is
not counted against the new generation.
*/
package resilience
