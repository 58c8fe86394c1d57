package store

// Key namespace for every entity kind in the shared store.
const (
	keyWaitingQueue = "waiting_queue"
	keyTimerState   = "timer_state"
	keyTimerLeader  = "timer_leader"

	prefixUser      = "user:"
	prefixUserStats = "user_stats:"
	prefixGame      = "game:"
)

func keyUser(userID string) string {
	return prefixUser + userID
}

func keyUserStats(userID string) string {
	return prefixUserStats + userID
}

func keyGame(gameID string) string {
	return prefixGame + gameID
}
